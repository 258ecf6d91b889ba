package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gradepush/gradepush/lib"
)

func (s *surface) handleLogin(rw http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(rw, http.StatusBadRequest, Envelope{Message: "invalid request body: " + err.Error()})
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeJSON(rw, http.StatusBadRequest, Envelope{Message: "username and password are required"})
		return
	}
	if err := s.orc.LoginAs(r.Context(), req.Username, req.Password); err != nil {
		s.writeJSON(rw, http.StatusUnauthorized, Envelope{Message: err.Error()})
		return
	}
	s.writeJSON(rw, http.StatusOK, Envelope{Success: true, Message: "authenticated"})
}

func (s *surface) handleGetStatus(rw http.ResponseWriter, _ *http.Request) {
	s.writeJSON(rw, http.StatusOK, StatusResponse{
		Authenticated: s.orc.Authenticated(),
		Phase:         string(s.orc.Phase()),
	})
}

func (s *surface) handleRunJob(rw http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(rw, http.StatusBadRequest, Envelope{Message: "invalid request body: " + err.Error()})
		return
	}
	if req.ClassCode == "" {
		s.writeJSON(rw, http.StatusBadRequest, Envelope{Message: "classCode is required"})
		return
	}
	job := s.orc.JobFromDefaults()
	job.ClassCode = req.ClassCode
	job.Intelligent = req.Intelligent
	job.PushFinalGrades = req.PushFinalGrades
	if req.Period != nil {
		job.Period = *req.Period
	}
	if req.DefaultAttitude != nil {
		job.DefaultAttitude = *req.DefaultAttitude
	}
	if req.DefaultGrade != nil {
		job.DefaultGrade = *req.DefaultGrade
	}

	summary, err := s.orc.Run(r.Context(), job)
	if err != nil {
		s.writeJSON(rw, statusForError(err), Envelope{Message: err.Error()})
		return
	}
	s.writeJSON(rw, http.StatusOK, JobResponse{
		Envelope:  Envelope{Success: summary.Success, Message: summary.Message},
		Processed: summary.Processed,
		Total:     summary.Total,
		Errored:   summary.Errored,
	})
}

func (s *surface) handleNavigate(rw http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(rw, http.StatusBadRequest, Envelope{Message: "invalid request body: " + err.Error()})
		return
	}
	if req.ClassCode == "" {
		s.writeJSON(rw, http.StatusBadRequest, Envelope{Message: "classCode is required"})
		return
	}
	if err := s.orc.Navigate(r.Context(), req.ClassCode); err != nil {
		s.writeJSON(rw, statusForError(err), Envelope{Message: err.Error()})
		return
	}
	s.writeJSON(rw, http.StatusOK, Envelope{Success: true, Message: "grading view opened"})
}

func (s *surface) handleReleaseSession(rw http.ResponseWriter, _ *http.Request) {
	s.orc.Close()
	s.writeJSON(rw, http.StatusOK, Envelope{Success: true, Message: "session released"})
}

func statusForError(err error) int {
	var validation *lib.ValidationError
	switch {
	case errors.Is(err, lib.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, lib.ErrSessionUnavailable):
		return http.StatusUnauthorized
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *surface) writeJSON(rw http.ResponseWriter, status int, payload interface{}) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Error while writing response")
	}
}
