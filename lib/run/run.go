// Package run drives a full grade-entry job: authenticate, open the class
// diary, collect the period's assessments and skills, then walk the roster
// student by student pushing attitudes and resolved skill grades.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/discovery"
	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/grading"
	"github.com/gradepush/gradepush/lib/session"
	"github.com/gradepush/gradepush/lib/submit"
	"github.com/gradepush/gradepush/lib/types"
)

// Phase is where a job currently stands. Every phase transition is logged.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseNavigating      Phase = "navigating"
	PhaseSelectingPeriod Phase = "selecting-period"
	PhaseCollecting      Phase = "collecting"
	PhaseProcessing      Phase = "processing"
	PhaseDone            Phase = "done"
	PhaseAborted         Phase = "aborted"
)

// Job describes one grade-entry run.
type Job struct {
	ClassCode       string
	Period          types.ReportingPeriod
	DefaultAttitude types.Attitude
	DefaultGrade    types.Grade

	// Intelligent resolves each skill from the student's recorded scores
	// instead of applying DefaultGrade across the board.
	Intelligent bool

	// PushFinalGrades also fills each student's final-grade combo with
	// the mode of their resolved skill grades.
	PushFinalGrades bool
}

// Summary is the job's outcome. Success means at least one student went
// through cleanly; individual failures never abort the run.
type Summary struct {
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Errored   int    `json:"errored"`
	Message   string `json:"message"`
	Success   bool   `json:"success"`
}

// Orchestrator owns the session and runs jobs one at a time.
type Orchestrator struct {
	opts     lib.Options
	sessions *session.Manager
	collect  *discovery.Collector
	logger   logrus.FieldLogger

	mx      sync.Mutex
	phase   Phase
	running bool
}

// New wires an Orchestrator from options. The BaseURL and credentials must
// be set; everything else has defaults.
func New(opts lib.Options, logger logrus.FieldLogger) (*Orchestrator, error) {
	if !opts.BaseURL.Valid || opts.BaseURL.String == "" {
		return nil, fmt.Errorf("a base URL is required")
	}
	client, err := faces.NewClient(faces.ClientConfig{
		BaseURL:         opts.BaseURL.String,
		RequestInterval: opts.Interval(),
		RequestTimeout:  opts.Timeout(),
		InsecureSkipTLS: opts.InsecureSkipTLSVerify.Bool,
	}, logger)
	if err != nil {
		return nil, err
	}
	creds := session.Credentials{Username: opts.Username.String, Password: opts.Password.String}
	sessions := session.NewManager(client, creds, opts.TTL(), logger)
	return &Orchestrator{
		opts:     opts,
		sessions: sessions,
		collect:  discovery.NewCollector(sessions, logger),
		logger:   logger,
		phase:    PhaseIdle,
	}, nil
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mx.Lock()
	defer o.mx.Unlock()
	return o.phase
}

// Authenticated reports whether a login has succeeded.
func (o *Orchestrator) Authenticated() bool { return o.sessions.Authenticated() }

// Login authenticates without starting a job.
func (o *Orchestrator) Login(ctx context.Context) error {
	o.setPhase(PhaseAuthenticating)
	err := o.sessions.Login(ctx)
	o.setPhase(PhaseIdle)
	return err
}

// LoginAs swaps in new credentials and authenticates with them.
func (o *Orchestrator) LoginAs(ctx context.Context, username, password string) error {
	o.sessions.SetCredentials(session.Credentials{Username: username, Password: password})
	return o.Login(ctx)
}

// JobFromDefaults returns a Job pre-filled from the process options.
func (o *Orchestrator) JobFromDefaults() Job {
	return Job{
		ClassCode:       o.opts.ClassCode.String,
		Period:          o.opts.ReportingPeriod(),
		DefaultAttitude: o.opts.Attitude(),
		DefaultGrade:    o.opts.Grade(),
		Intelligent:     o.opts.Intelligent.Bool,
		PushFinalGrades: o.opts.PushFinalGrades.Bool,
	}
}

// Navigate opens the grading view for a class without submitting anything.
func (o *Orchestrator) Navigate(ctx context.Context, classCode string) error {
	o.setPhase(PhaseNavigating)
	_, err := o.sessions.Navigate(ctx, classCode)
	o.setPhase(PhaseIdle)
	return err
}

// Close releases the upstream session and idle connections.
func (o *Orchestrator) Close() {
	o.sessions.Close()
	o.setPhase(PhaseIdle)
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mx.Lock()
	o.phase = p
	o.mx.Unlock()
	o.logger.WithField("phase", p).Debug("Phase change")
}

// Run executes one job. A second concurrent call fails with ErrBusy.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Summary, error) {
	o.mx.Lock()
	if o.running {
		o.mx.Unlock()
		return nil, lib.ErrBusy
	}
	o.running = true
	o.mx.Unlock()
	defer func() {
		o.mx.Lock()
		o.running = false
		o.mx.Unlock()
	}()

	summary, err := o.run(ctx, job)
	if err != nil {
		o.setPhase(PhaseAborted)
		return nil, err
	}
	o.setPhase(PhaseDone)
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, job Job) (*Summary, error) {
	if !job.Period.IsValid() {
		return nil, &lib.ValidationError{Subject: "job", Reason: fmt.Sprintf("invalid reporting period '%s'", job.Period)}
	}
	log := o.logger.WithFields(logrus.Fields{"class": job.ClassCode, "period": job.Period})

	o.setPhase(PhaseAuthenticating)
	if !o.sessions.Authenticated() {
		if err := o.sessions.Login(ctx); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
	}

	o.setPhase(PhaseNavigating)
	if _, err := o.sessions.Navigate(ctx, job.ClassCode); err != nil {
		return nil, fmt.Errorf("opening class diary: %w", err)
	}
	doc, err := o.collect.DiaryPage(ctx)
	if err != nil {
		return nil, err
	}

	o.setPhase(PhaseSelectingPeriod)
	doc, err = o.collect.SelectPeriod(ctx, doc, job.Period)
	if err != nil {
		return nil, err
	}

	o.setPhase(PhaseCollecting)
	resolver, err := o.buildResolver(ctx, doc, job)
	if err != nil {
		return nil, err
	}
	columns := discovery.ScoreColumns(doc)
	students, err := discovery.ListStudents(doc, columns)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, &lib.ValidationError{Subject: "student table", Reason: "no students found in the class"}
	}
	log.WithField("students", len(students)).Info("Roster collected")

	o.setPhase(PhaseProcessing)
	attWorkers, gradeWorkers := o.opts.WorkersFor()
	attitudes := submit.NewEngine(o.sessions, attWorkers, o.opts.RetryCeiling(), o.opts.Backoff(), o.logger)
	grades := submit.NewEngine(o.sessions, gradeWorkers, o.opts.RetryCeiling(), o.opts.Backoff(), o.logger)

	processed, errored := 0, 0
	for i, student := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog := log.WithFields(logrus.Fields{"student": student.Name, "n": i + 1})
		if err := o.processStudent(ctx, student, job, resolver, attitudes, grades, slog); err != nil {
			slog.WithError(err).Error("Student failed")
			errored++
			continue
		}
		processed++
	}

	msg := fmt.Sprintf("processed %d/%d", processed, len(students))
	if errored > 0 {
		msg += fmt.Sprintf(", %d with errors", errored)
	}
	return &Summary{
		Total:     len(students),
		Processed: processed,
		Errored:   errored,
		Message:   msg,
		Success:   processed > 0,
	}, nil
}

// buildResolver collects and validates the assessment mapping when the job
// asked for score-driven grades. Validation failures abort here, before
// anything has been written upstream.
func (o *Orchestrator) buildResolver(ctx context.Context, doc *goquery.Document, job Job) (grading.Resolver, error) {
	if !job.Intelligent {
		return grading.ConstantResolver{Grade: job.DefaultGrade}, nil
	}
	assessments, recoveries, err := o.collect.CollectAssessments(ctx, doc, job.Period)
	if err != nil {
		return nil, err
	}
	mapping, err := grading.BuildMapping(assessments, recoveries)
	if err != nil {
		return nil, err
	}
	o.logger.WithFields(logrus.Fields{
		"assessments": len(assessments), "recoveries": len(recoveries),
	}).Info("Assessment mapping built")
	return grading.TableResolver{Mapping: mapping, Default: job.DefaultGrade}, nil
}

// processStudent opens one student's detail view, applies the default
// attitude to every attitude row and the resolved grade to every skill row.
// The detail view saves per change, so there is nothing to commit at the
// end; the submission batches just have to drain before the next student.
func (o *Orchestrator) processStudent(
	ctx context.Context,
	student discovery.Student,
	job Job,
	resolver grading.Resolver,
	attitudes, grades *submit.Engine,
	log logrus.FieldLogger,
) error {
	detail, err := o.collect.OpenStudentDetail(ctx, student)
	if err != nil {
		return err
	}

	attitudeRows, err := discovery.ParseAttitudeRows(detail)
	if err != nil {
		log.WithError(err).Warn("No attitude rows found")
	}
	attitudeTasks := make([]submit.Task, 0, len(attitudeRows))
	for _, row := range attitudeRows {
		attitudeTasks = append(attitudeTasks, submit.Task{
			Name:     fmt.Sprintf("attitude row %d", row),
			FieldID:  faces.AttitudeFieldID(row),
			RenderID: faces.AttitudeFieldID(row),
			Value:    job.DefaultAttitude.String(),
		})
	}

	skillRows, err := discovery.ParseStudentSkillRows(detail)
	if err != nil {
		var notFound *lib.ElementNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// No skill table in the detail view is normal for classes
		// without linked skills; there is just nothing to grade.
		skillRows = nil
	}
	resolved := make([]types.Grade, 0, len(skillRows))
	gradeTasks := make([]submit.Task, 0, len(skillRows))
	for _, row := range skillRows {
		grade := resolver.Resolve(row.Text, student.Scores)
		resolved = append(resolved, grade)
		gradeTasks = append(gradeTasks, submit.Task{
			Name:     fmt.Sprintf("skill row %d", row.Row),
			FieldID:  faces.SkillGradeFieldID(row.Row),
			RenderID: faces.AttitudePanelID,
			Value:    grade.String(),
			Confirm:  true,
		})
	}

	attResult := attitudes.Submit(ctx, attitudeTasks)
	gradeResult := grades.Submit(ctx, gradeTasks)
	log.WithFields(logrus.Fields{
		"attitudes": fmt.Sprintf("%d/%d", attResult.Succeeded(), len(attitudeTasks)),
		"grades":    fmt.Sprintf("%d/%d", gradeResult.Succeeded(), len(gradeTasks)),
	}).Info("Student updates applied")

	if job.PushFinalGrades {
		if err := o.pushFinalGrade(ctx, student, resolved, grades); err != nil {
			log.WithError(err).Warn("Final grade not applied")
		}
	}

	if len(gradeTasks) > 0 && gradeResult.Succeeded() == 0 {
		return fmt.Errorf("no skill grade went through for %s", student.Name)
	}
	return nil
}

// pushFinalGrade fills the student's final-grade combo with the mode of the
// resolved skill grades.
func (o *Orchestrator) pushFinalGrade(ctx context.Context, student discovery.Student, resolved []types.Grade, grades *submit.Engine) error {
	mode, ok := grading.ModeGrade(resolved)
	if !ok {
		return fmt.Errorf("no resolved grades to derive a final grade from")
	}
	result := grades.Submit(ctx, []submit.Task{{
		Name:     fmt.Sprintf("final grade for %s", student.Name),
		FieldID:  faces.FinalGradeFieldID(student.Row),
		RenderID: faces.FinalGradeFieldID(student.Row),
		Value:    mode.String(),
	}})
	if result.Failed() > 0 {
		return result.Outcomes[0].Err
	}
	return nil
}
