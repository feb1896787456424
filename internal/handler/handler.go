// Package handler serves byte-reversed query text after a random delay.
package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0xReLogic/slowpoke/internal/delay"
	"github.com/0xReLogic/slowpoke/internal/logging"
	"github.com/0xReLogic/slowpoke/internal/reverse"
)

const (
	contentTypeHTML  = "text/html"
	contentTypePlain = "text/plain; charset=utf-8"
	allowedMethods   = "GET, HEAD"
)

// Handler answers GET and HEAD on any path. It holds no per-request state
// and may be shared by every connection.
type Handler struct {
	source delay.Source
	sleep  func(time.Duration)
}

// Option customizes a Handler.
type Option func(*Handler)

// WithSleep replaces the function used to block for the chosen delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(h *Handler) {
		if sleep != nil {
			h.sleep = sleep
		}
	}
}

// New creates a Handler drawing delays from source.
func New(source delay.Source, opts ...Option) *Handler {
	h := &Handler{
		source: source,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveGet(w, r)
	case http.MethodHead:
		setHeaders(w)
		w.WriteHeader(http.StatusOK)
	default:
		w.Header().Set("Allow", allowedMethods)
		w.Header().Set("Content-Type", contentTypePlain)
		w.WriteHeader(http.StatusNotImplemented)
		fmt.Fprintf(w, "Unsupported method ('%s')\n", r.Method)
	}
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context())

	text, err := reverse.TextFromQuery(r.URL.RawQuery)
	if err != nil {
		logger.Warn().Err(err).Str("query", r.URL.RawQuery).Msg("rejecting request")
		w.Header().Set("Content-Type", contentTypePlain)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, err.Error())
		return
	}

	d := h.source.Next()
	logger.Info().
		Int64("delay_seconds", int64(d/time.Second)).
		Dur("delay", d).
		Msg("sleeping before reply")
	// Not interrupted by client disconnects.
	h.sleep(d)

	setHeaders(w)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, reverse.Bytes(text)); err != nil {
		logger.Debug().Err(err).Msg("failed to write reply")
	}
}

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", contentTypeHTML)
}
