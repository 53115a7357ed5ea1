package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Theadekanmi/softspace/pkg/common"
	"github.com/Theadekanmi/softspace/pkg/logger"
)

type Logging struct {
	l *zap.SugaredLogger
}

func NewLoggingMiddleware(l *zap.SugaredLogger) *Logging {
	return &Logging{l: l}
}

// SetupTracing assigns a request id so all log lines of one request
// can be grepped together.
func (lm *Logging) SetupTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-Id")
		if traceID == "" {
			traceID = common.RandStringRunes(10)
		}
		w.Header().Set("X-Request-Id", traceID)
		ctx := logger.WithLogger(r.Context(), lm.l.With("trace_id", traceID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetupLogging guarantees a logger is present in the context even when
// tracing middleware was not mounted.
func (lm *Logging) SetupLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !logger.InContext(r.Context()) {
			ctx := logger.WithLogger(r.Context(), lm.l)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (lm *Logging) AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log(r.Context()).Infow("request handled",
			"method", r.Method,
			"url", r.URL.Path,
			"remote", r.RemoteAddr,
			"took", time.Since(start),
		)
	})
}
