package v1

import (
	"github.com/gradepush/gradepush/lib/types"
)

// Envelope is the common response shape.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginRequest carries the upstream credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JobRequest describes a grade-entry job. Unset fields take the process
// defaults.
type JobRequest struct {
	ClassCode       string                 `json:"classCode"`
	Period          *types.ReportingPeriod `json:"period"`
	DefaultAttitude *types.Attitude        `json:"defaultAttitude"`
	DefaultGrade    *types.Grade           `json:"defaultGrade"`
	Intelligent     bool                   `json:"intelligent"`
	PushFinalGrades bool                   `json:"pushFinalGrades"`
}

// JobResponse reports a finished job.
type JobResponse struct {
	Envelope
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Errored   int `json:"errored"`
}

// NavigateRequest opens the grading view without running a job.
type NavigateRequest struct {
	ClassCode string `json:"classCode"`
}

// StatusResponse reports process state.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Phase         string `json:"phase"`
}
