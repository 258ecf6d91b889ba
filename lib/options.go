package lib

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/gradepush/gradepush/lib/types"
)

// Defaults for everything tunable. The worker counts and the request
// interval were measured against the real upstream; pushing them higher
// starts tripping its error pages.
const (
	DefaultSessionTTL      = 30 * time.Second
	DefaultRequestInterval = 500 * time.Millisecond
	DefaultRequestTimeout  = 8 * time.Second
	DefaultRetries         = 2
	DefaultRetryBackoff    = 1 * time.Second
	DefaultAttitudeWorkers = 2
	DefaultGradeWorkers    = 3
	MaxWorkers             = 4
	MaxStudentsPerClass    = 50
	DefaultListenAddress   = "localhost:6565"
)

// Options holds the full runtime configuration. Invalid (null) fields fall
// back to defaults; the precedence is defaults < environment < flags, merged
// with Apply the same way each layer is built.
type Options struct {
	// Upstream origin, e.g. https://sgn.example.gov.br.
	BaseURL  null.String `json:"baseURL" envconfig:"GRADEPUSH_BASE_URL"`
	Username null.String `json:"username" envconfig:"GRADEPUSH_USERNAME"`
	Password null.String `json:"-" envconfig:"GRADEPUSH_PASSWORD"`

	// Digits-only class diary code.
	ClassCode null.String `json:"classCode" envconfig:"GRADEPUSH_CLASS_CODE"`
	Period    null.String `json:"period" envconfig:"GRADEPUSH_PERIOD"`

	DefaultAttitude null.String `json:"defaultAttitude" envconfig:"GRADEPUSH_DEFAULT_ATTITUDE"`
	DefaultGrade    null.String `json:"defaultGrade" envconfig:"GRADEPUSH_DEFAULT_GRADE"`

	// Intelligent mode resolves each skill grade from recorded scores;
	// when false every skill gets DefaultGrade.
	Intelligent     null.Bool `json:"intelligent" envconfig:"GRADEPUSH_INTELLIGENT"`
	PushFinalGrades null.Bool `json:"pushFinalGrades" envconfig:"GRADEPUSH_PUSH_FINAL_GRADES"`

	AttitudeWorkers null.Int           `json:"attitudeWorkers" envconfig:"GRADEPUSH_ATTITUDE_WORKERS"`
	GradeWorkers    null.Int           `json:"gradeWorkers" envconfig:"GRADEPUSH_GRADE_WORKERS"`
	RequestInterval types.NullDuration `json:"requestInterval" envconfig:"GRADEPUSH_REQUEST_INTERVAL"`
	RequestTimeout  types.NullDuration `json:"requestTimeout" envconfig:"GRADEPUSH_REQUEST_TIMEOUT"`
	SessionTTL      types.NullDuration `json:"sessionTTL" envconfig:"GRADEPUSH_SESSION_TTL"`
	Retries         null.Int           `json:"retries" envconfig:"GRADEPUSH_RETRIES"`
	RetryBackoff    types.NullDuration `json:"retryBackoff" envconfig:"GRADEPUSH_RETRY_BACKOFF"`

	// REST control-surface listen address.
	Address null.String `json:"address" envconfig:"GRADEPUSH_ADDRESS"`

	InsecureSkipTLSVerify null.Bool `json:"insecureSkipTLSVerify" envconfig:"GRADEPUSH_INSECURE_SKIP_TLS_VERIFY"`
}

// Apply overwrites o's fields with every valid field of opts and returns the
// result.
func (o Options) Apply(opts Options) Options {
	if opts.BaseURL.Valid {
		o.BaseURL = opts.BaseURL
	}
	if opts.Username.Valid {
		o.Username = opts.Username
	}
	if opts.Password.Valid {
		o.Password = opts.Password
	}
	if opts.ClassCode.Valid {
		o.ClassCode = opts.ClassCode
	}
	if opts.Period.Valid {
		o.Period = opts.Period
	}
	if opts.DefaultAttitude.Valid {
		o.DefaultAttitude = opts.DefaultAttitude
	}
	if opts.DefaultGrade.Valid {
		o.DefaultGrade = opts.DefaultGrade
	}
	if opts.Intelligent.Valid {
		o.Intelligent = opts.Intelligent
	}
	if opts.PushFinalGrades.Valid {
		o.PushFinalGrades = opts.PushFinalGrades
	}
	if opts.AttitudeWorkers.Valid {
		o.AttitudeWorkers = opts.AttitudeWorkers
	}
	if opts.GradeWorkers.Valid {
		o.GradeWorkers = opts.GradeWorkers
	}
	if opts.RequestInterval.Valid {
		o.RequestInterval = opts.RequestInterval
	}
	if opts.RequestTimeout.Valid {
		o.RequestTimeout = opts.RequestTimeout
	}
	if opts.SessionTTL.Valid {
		o.SessionTTL = opts.SessionTTL
	}
	if opts.Retries.Valid {
		o.Retries = opts.Retries
	}
	if opts.RetryBackoff.Valid {
		o.RetryBackoff = opts.RetryBackoff
	}
	if opts.Address.Valid {
		o.Address = opts.Address
	}
	if opts.InsecureSkipTLSVerify.Valid {
		o.InsecureSkipTLSVerify = opts.InsecureSkipTLSVerify
	}
	return o
}

// Validate checks the option values that have a constrained domain. It does
// not require credentials or a class code; those are checked where they are
// first needed.
func (o Options) Validate() []error {
	var errs []error
	if o.Period.Valid {
		if p := types.ReportingPeriod(o.Period.String); !p.IsValid() {
			errs = append(errs, fmt.Errorf("invalid reporting period '%s', want TR1, TR2 or TR3", o.Period.String))
		}
	}
	if o.DefaultGrade.Valid {
		if g := types.Grade(o.DefaultGrade.String); !g.IsValid() {
			errs = append(errs, fmt.Errorf("invalid default grade '%s', want one of A, B, C, NE", o.DefaultGrade.String))
		}
	}
	if o.DefaultAttitude.Valid {
		if a := types.Attitude(o.DefaultAttitude.String); !a.IsValid() {
			errs = append(errs, fmt.Errorf("invalid default attitude '%s'", o.DefaultAttitude.String))
		}
	}
	if o.ClassCode.Valid && strings.ContainsFunc(o.ClassCode.String, func(r rune) bool { return r < '0' || r > '9' }) {
		errs = append(errs, fmt.Errorf("class code '%s' must contain only digits", o.ClassCode.String))
	}
	if o.AttitudeWorkers.Valid && (o.AttitudeWorkers.Int64 < 1 || o.AttitudeWorkers.Int64 > MaxWorkers) {
		errs = append(errs, fmt.Errorf("attitude workers must be between 1 and %d", MaxWorkers))
	}
	if o.GradeWorkers.Valid && (o.GradeWorkers.Int64 < 1 || o.GradeWorkers.Int64 > MaxWorkers) {
		errs = append(errs, fmt.Errorf("grade workers must be between 1 and %d", MaxWorkers))
	}
	return errs
}

// Period returns the configured reporting period, TR2 when unset.
func (o Options) ReportingPeriod() types.ReportingPeriod {
	if o.Period.Valid {
		return types.ReportingPeriod(o.Period.String)
	}
	return types.PeriodSecond
}

// Attitude returns the configured default attitude, Raramente when unset.
func (o Options) Attitude() types.Attitude {
	if o.DefaultAttitude.Valid {
		return types.Attitude(o.DefaultAttitude.String)
	}
	return types.AttitudeRarely
}

// Grade returns the configured default grade, B when unset.
func (o Options) Grade() types.Grade {
	if o.DefaultGrade.Valid {
		return types.Grade(o.DefaultGrade.String)
	}
	return types.GradeB
}

// WorkersFor returns the clamped pool sizes for the two submission phases.
func (o Options) WorkersFor() (attitudes, grades int) {
	attitudes, grades = DefaultAttitudeWorkers, DefaultGradeWorkers
	if o.AttitudeWorkers.Valid {
		attitudes = int(o.AttitudeWorkers.Int64)
	}
	if o.GradeWorkers.Valid {
		grades = int(o.GradeWorkers.Int64)
	}
	if attitudes > MaxWorkers {
		attitudes = MaxWorkers
	}
	if grades > MaxWorkers {
		grades = MaxWorkers
	}
	return attitudes, grades
}

// Interval returns the minimum delay between request starts.
func (o Options) Interval() time.Duration {
	if o.RequestInterval.Valid {
		return o.RequestInterval.TimeDuration()
	}
	return DefaultRequestInterval
}

// Timeout returns the per-request timeout.
func (o Options) Timeout() time.Duration {
	if o.RequestTimeout.Valid {
		return o.RequestTimeout.TimeDuration()
	}
	return DefaultRequestTimeout
}

// TTL returns the session snapshot lifetime.
func (o Options) TTL() time.Duration {
	if o.SessionTTL.Valid {
		return o.SessionTTL.TimeDuration()
	}
	return DefaultSessionTTL
}

// RetryCeiling returns the retry count for failed submissions.
func (o Options) RetryCeiling() int {
	if o.Retries.Valid {
		return int(o.Retries.Int64)
	}
	return DefaultRetries
}

// Backoff returns the initial retry delay.
func (o Options) Backoff() time.Duration {
	if o.RetryBackoff.Valid {
		return o.RetryBackoff.TimeDuration()
	}
	return DefaultRetryBackoff
}
