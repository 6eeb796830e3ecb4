package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// statusRecorder captures what the handler wrote. It forwards Flush so SSE handlers keep
// streaming through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Status is 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *statusRecorder) streamed() bool {
	return strings.HasPrefix(r.Header().Get("Content-Type"), "text/event-stream")
}

// routeInfo reads the matched route after the router has run. Unmatched requests report
// an empty pattern.
type routeInfo struct {
	pattern string
	jobID   string
	tool    string
}

func matchedRoute(r *http.Request) routeInfo {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return routeInfo{}
	}
	info := routeInfo{pattern: rctx.RoutePattern()}
	switch {
	case strings.HasPrefix(info.pattern, "/jobs/{id}"):
		info.jobID = rctx.URLParam("id")
	case info.pattern == "/tools/{name}":
		info.tool = rctx.URLParam("name")
	}
	return info
}
