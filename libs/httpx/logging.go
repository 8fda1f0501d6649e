package httpx

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// RequestInfo is what the access log knows about a finished request.
type RequestInfo struct {
	Method   string
	Path     string
	Status   int
	Bytes    int64
	Duration time.Duration
}

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusCapturingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusCapturingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Hijack lets websocket upgrades pass through the access log.
func (w *statusCapturingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpx: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (w *statusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WithAccessLog logs one line per request and hands the same data to any observers
// (metrics, usually).
func WithAccessLog(logger *slog.Logger, observers ...func(RequestInfo)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusCapturingResponseWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			info := RequestInfo{
				Method:   r.Method,
				Path:     r.URL.Path,
				Status:   sw.status,
				Bytes:    sw.bytes,
				Duration: time.Since(start),
			}
			if info.Status == 0 {
				info.Status = http.StatusOK
			}
			for _, observe := range observers {
				observe(info)
			}

			logger.Info("http request",
				"request_id", RequestIDFromContext(r.Context()),
				"method", info.Method,
				"path", info.Path,
				"status", info.Status,
				"bytes", info.Bytes,
				"duration_ms", info.Duration.Milliseconds(),
			)
		})
	}
}
