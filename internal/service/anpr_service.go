package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"anpr-api/internal/domain/anpr"
	"anpr-api/internal/imaging"
	"anpr-api/internal/repository"
	"anpr-api/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrImageDecode  = errors.New("image decode failed")
)

type ANPRService struct {
	repo    repository.ANPRRepository
	cameras int
	sites   int
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*ANPRService)

// WithClock replaces time.Now for window calculations.
func WithClock(now func() time.Time) Option {
	return func(s *ANPRService) {
		s.now = now
	}
}

func NewANPRService(repo repository.ANPRRepository, cameras, sites int, log zerolog.Logger, opts ...Option) *ANPRService {
	s := &ANPRService{
		repo:    repo,
		cameras: cameras,
		sites:   sites,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageQuery holds raw pagination parameters as received from a client.
type PageQuery struct {
	Page  string
	Limit string
	Sort  string
}

// Windows returns the start of the current UTC day and of the current ISO
// week (Monday) for the instant now.
func Windows(now time.Time) (todayStart, weekStart time.Time) {
	now = now.UTC()
	todayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(now.Weekday()) + 6) % 7
	weekStart = todayStart.AddDate(0, 0, -sinceMonday)
	return todayStart, weekStart
}

// Ping checks that the store answers queries.
func (s *ANPRService) Ping(ctx context.Context) error {
	_, err := s.repo.Count(ctx)
	return err
}

func (s *ANPRService) Stats(ctx context.Context) (*anpr.Stats, error) {
	now := s.now().UTC()
	todayStart, weekStart := Windows(now)

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count detections: %w", err)
	}
	today, err := s.repo.CountInRange(ctx, anpr.TimeRange{From: &todayStart, To: &now})
	if err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}
	week, err := s.repo.CountInRange(ctx, anpr.TimeRange{From: &weekStart, To: &now})
	if err != nil {
		return nil, fmt.Errorf("count week: %w", err)
	}

	return &anpr.Stats{
		Total:   total,
		Today:   today,
		Week:    week,
		Cameras: s.cameras,
		Sites:   s.sites,
	}, nil
}

// ListPlates counts the collection, then streams one page of normalized
// records to emit. Page records never carry image payloads.
func (s *ANPRService) ListPlates(ctx context.Context, q PageQuery, emit func(anpr.PlateView) error) (anpr.PageMeta, error) {
	page := utils.ParsePage(q.Page)
	limit := utils.ParseLimit(q.Limit)
	sortName := utils.ParseSort(q.Sort)

	total, err := s.repo.Count(ctx)
	if err != nil {
		return anpr.PageMeta{}, fmt.Errorf("count detections: %w", err)
	}
	meta := anpr.NewPageMeta(total, page, limit)

	skip, ok := pageOffset(page, limit)
	if !ok || skip >= total {
		return meta, nil
	}
	query := repository.ListQuery{
		Sort:  anpr.SortOrder(sortName),
		Skip:  skip,
		Limit: int64(limit),
	}
	err = s.repo.Iterate(ctx, query, func(rec anpr.DetectionRecord) error {
		return emit(anpr.Normalize(rec, false))
	})
	if err != nil {
		return meta, fmt.Errorf("list detections: %w", err)
	}
	return meta, nil
}

// pageOffset returns (page-1)*limit, or false when the product does not fit
// in an int64. Such a page lies past the end of any collection.
func pageOffset(page, limit int) (int64, bool) {
	if page < 1 || limit < 1 {
		return 0, false
	}
	n := int64(page - 1)
	if n > math.MaxInt64/int64(limit) {
		return 0, false
	}
	return n * int64(limit), true
}

// Page is ListPlates collected into a single envelope.
func (s *ANPRService) Page(ctx context.Context, q PageQuery) (*anpr.PageEnvelope, error) {
	items := []anpr.PlateView{}
	meta, err := s.ListPlates(ctx, q, func(v anpr.PlateView) error {
		items = append(items, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &anpr.PageEnvelope{Items: items, PageMeta: meta}, nil
}

func (s *ANPRService) GetPlate(ctx context.Context, id string) (*anpr.PlateView, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	view := anpr.Normalize(*rec, true)
	return &view, nil
}

// GetImage returns the stored base64 image payload.
func (s *ANPRService) GetImage(ctx context.Context, id string) (string, error) {
	img, err := s.repo.FindImage(ctx, id)
	if err != nil {
		return "", lookupError(err)
	}
	return img, nil
}

// GetImageBytes returns the decoded image payload.
func (s *ANPRService) GetImageBytes(ctx context.Context, id string) ([]byte, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := imaging.DecodeBase64(img)
	if err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("stored plate image is not valid base64")
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return raw, nil
}

func lookupError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return fmt.Errorf("%w: invalid id", ErrInvalidInput)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return fmt.Errorf("find detection: %w", err)
	}
}
