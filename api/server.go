// Package api serves the REST control surface: a thin HTTP layer over the
// orchestrator so other tools can trigger and watch grade-entry jobs.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	v1 "github.com/gradepush/gradepush/api/v1"
	"github.com/gradepush/gradepush/lib/run"
)

func newHandler(logger logrus.FieldLogger, orc *run.Orchestrator) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/", v1.NewHandler(logger, orc))
	mux.Handle("/ping", handlePing(logger))
	mux.Handle("/", handlePing(logger))
	return mux
}

// GetServer returns an http.Server serving the control surface.
func GetServer(addr string, logger logrus.FieldLogger, orc *run.Orchestrator) *http.Server {
	mux := withLoggingHandler(logger, newHandler(logger, orc))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}

type wrappedResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrappedResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// withLoggingHandler returns the middleware which logs response status for request.
func withLoggingHandler(l logrus.FieldLogger, next http.Handler) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wrapped := &wrappedResponseWriter{ResponseWriter: rw, status: 200} // The default status code is 200 if it's not set
		next.ServeHTTP(wrapped, r)

		l.WithField("status", wrapped.status).Debugf("%s %s", r.Method, r.URL.Path)
	}
}

func handlePing(logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Add("Content-Type", "text/plain; charset=utf-8")
		if _, err := fmt.Fprint(rw, "ok"); err != nil {
			logger.WithError(err).Error("Error while printing ok")
		}
	})
}
