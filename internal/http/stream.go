package http

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"anpr-api/internal/domain/anpr"
)

// envelopeWriter writes a page envelope item by item so that large pages are
// never held in memory. Headers are committed with the first item.
type envelopeWriter struct {
	w       http.ResponseWriter
	started bool
	count   int
}

func newEnvelopeWriter(w http.ResponseWriter) *envelopeWriter {
	return &envelopeWriter{w: w}
}

func (e *envelopeWriter) start() error {
	if e.started {
		return nil
	}
	e.started = true
	e.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	e.w.WriteHeader(http.StatusOK)
	_, err := e.w.Write([]byte(`{"items":[`))
	return err
}

func (e *envelopeWriter) item(v anpr.PlateView) error {
	if err := e.start(); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if e.count > 0 {
		if _, err := e.w.Write([]byte{','}); err != nil {
			return err
		}
	}
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	e.count++
	return nil
}

func (e *envelopeWriter) finish(meta anpr.PageMeta) error {
	if err := e.start(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(e.w, `],"total":%d,"page":%d,"limit":%d,"pages":%d}`,
		meta.Total, meta.Page, meta.Limit, meta.Pages)
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
	return err
}
