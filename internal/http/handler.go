package http

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"anpr-api/internal/config"
	"anpr-api/internal/service"
)

type Handler struct {
	anprService *service.ANPRService
	config      *config.Config
	log         zerolog.Logger
}

func NewHandler(
	anprService *service.ANPRService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		anprService: anprService,
		config:      cfg,
		log:         log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.dashboard)
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	{
		api.GET("/stats", h.getStats)
		api.GET("/plates", h.listPlates)
		api.GET("/plates/:id", h.getPlate)
		api.GET("/plates/:id/image", h.getPlateImage)
		api.GET("/plates/:id/image/img", h.getPlateImageBinary)
		api.GET("/export/excel", h.exportExcel)
	}
}

func (h *Handler) dashboard(c *gin.Context) {
	c.File(filepath.Join(h.config.HTTP.StaticDir, h.config.HTTP.DashboardFile))
}

func (h *Handler) health(c *gin.Context) {
	if err := h.anprService.Ping(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, errorResponse("store unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.anprService.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) listPlates(c *gin.Context) {
	q := service.PageQuery{
		Page:  c.Query("page"),
		Limit: c.Query("limit"),
		Sort:  c.Query("sort"),
	}

	stream := newEnvelopeWriter(c.Writer)
	meta, err := h.anprService.ListPlates(c.Request.Context(), q, stream.item)
	if err != nil {
		if !stream.started {
			h.handleError(c, err, "")
			return
		}
		// headers are gone; the client sees a truncated body
		h.log.Error().Err(err).Int("written", stream.count).Msg("plate list stream aborted")
		c.Abort()
		return
	}

	if err := stream.finish(meta); err != nil {
		h.log.Warn().Err(err).Msg("failed to finish plate list")
	}
}

func (h *Handler) getPlate(c *gin.Context) {
	view, err := h.anprService.GetPlate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "Not found")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) getPlateImage(c *gin.Context) {
	img, err := h.anprService.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "Image not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": img})
}

func (h *Handler) getPlateImageBinary(c *gin.Context) {
	id := c.Param("id")
	raw, err := h.anprService.GetImageBytes(c.Request.Context(), id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("id", id).Msg("failed to serve plate image")
		}
		c.AbortWithStatus(status)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", raw)
}

func (h *Handler) exportExcel(c *gin.Context) {
	q := service.ExportQuery{
		From: c.Query("from"),
		To:   c.Query("to"),
	}

	export, err := h.anprService.ExportExcel(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err, "")
		return
	}
	defer export.Close()

	c.Header("Content-Type", service.ExportContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer); err != nil {
		h.log.Error().Err(err).Str("filename", export.Filename).Msg("failed to write excel export")
	}
}

func (h *Handler) handleError(c *gin.Context, err error, notFoundMessage string) {
	switch statusFor(err) {
	case http.StatusBadRequest:
		c.JSON(http.StatusBadRequest, errorResponse("Invalid id"))
	case http.StatusNotFound:
		c.JSON(http.StatusNotFound, errorResponse(notFoundMessage))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
