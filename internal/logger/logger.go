package logger

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// New builds a zap logger for the given level and encoding ("json" or "console").
// Development mode switches to zap's development preset.
func New(level, encoding string, dev bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	if dev {
		zapcfg = zap.NewDevelopmentConfig()
	}
	zapcfg.Level = lvl
	if encoding != "" {
		zapcfg.Encoding = encoding
	}
	return zapcfg.Build()
}

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// RequestLog logs one line per request with status, size and duration.
// An incoming X-Request-ID is kept, otherwise a new one is generated.
func RequestLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			wl := newResponseWriterLogger(w)
			start := time.Now()
			next.ServeHTTP(wl, r)

			log.Info("http request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wl.statusCode),
				zap.Int("bytes", wl.length),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recover turns a panic into a logged 500 response. When the handler already
// sent its headers the panic is only logged.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := newResponseWriterLogger(w)
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic in handler",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", w.Header().Get(RequestIDHeader)),
						zap.Bool("headers_sent", tw.wroteHeader),
					)
					if tw.wroteHeader {
						return
					}
					tw.Header().Set("Content-Type", "application/json")
					tw.WriteHeader(http.StatusInternalServerError)
					_, _ = tw.Write([]byte(`{"error":"internal_error"}`))
				}
			}()
			next.ServeHTTP(tw, r)
		})
	}
}

type responseWriterLogger struct {
	http.ResponseWriter
	statusCode  int
	length      int
	wroteHeader bool
}

func newResponseWriterLogger(w http.ResponseWriter) *responseWriterLogger {
	return &responseWriterLogger{ResponseWriter: w, statusCode: http.StatusOK}
}

func (wl *responseWriterLogger) WriteHeader(code int) {
	if !wl.wroteHeader {
		wl.statusCode = code
		wl.wroteHeader = true
	}
	wl.ResponseWriter.WriteHeader(code)
}

func (wl *responseWriterLogger) Write(b []byte) (int, error) {
	wl.wroteHeader = true
	n, err := wl.ResponseWriter.Write(b)
	wl.length += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (wl *responseWriterLogger) Unwrap() http.ResponseWriter { return wl.ResponseWriter }
