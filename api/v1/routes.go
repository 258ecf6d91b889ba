// Package v1 implements v1 of the control-surface API.
package v1

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gradepush/gradepush/lib/run"
)

// NewHandler returns the v1 route mux.
func NewHandler(logger logrus.FieldLogger, orc *run.Orchestrator) http.Handler {
	s := &surface{logger: logger, orc: orc}
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/login", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleLogin(rw, r)
	})

	mux.HandleFunc("/v1/status", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleGetStatus(rw, r)
	})

	mux.HandleFunc("/v1/jobs", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleRunJob(rw, r)
	})

	mux.HandleFunc("/v1/navigate", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleNavigate(rw, r)
	})

	mux.HandleFunc("/v1/session", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleReleaseSession(rw, r)
	})

	return mux
}

type surface struct {
	logger logrus.FieldLogger
	orc    *run.Orchestrator
}
