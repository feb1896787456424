package logging

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/0xReLogic/slowpoke/internal/config"
)

// RequestContextMiddleware stores a request scoped logger in the request context.
// With request ids enabled, the id from the configured header (or a fresh one)
// is attached to the logger and echoed on the response.
func RequestContextMiddleware(cfg config.LoggingConfig) func(http.Handler) http.Handler {
	header := RequestHeaderName(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := L()
			requestID := ""
			if cfg.RequestID.Enabled {
				requestID = requestIDFor(r, header)
				w.Header().Set(header, requestID)
				logger = logger.With().Str("request_id", requestID).Logger()
			}

			ctx := contextWithRequestID(r.Context(), logger, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestIDFor(r *http.Request, header string) string {
	if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
		return id
	}
	return newRequestID()
}

// newRequestID returns "req_" followed by 16 hex characters.
func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req_" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return "req_" + hex.EncodeToString(b[:])
}
