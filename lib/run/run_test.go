package run_test

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/run"
	"github.com/gradepush/gradepush/lib/testutils/sgnmock"
	"github.com/gradepush/gradepush/lib/types"
)

const periodComboHTML = `
<select id="tabViewDiarioClasse:formAbaConceitos:mediasConceito_input">
  <option value="0">TR1</option>
  <option value="1" selected="selected">TR2</option>
  <option value="2">TR3</option>
</select>`

const rosterHTML = `
<table role="grid">
  <thead><tr><th>Nº</th><th>Foto</th><th>Estudante</th><th>AV1</th><th>RP1</th></tr></thead>
  <tbody id="tabViewDiarioClasse:formAbaConceitos:dataTableConceitos_data" class="ui-datatable-data">
    <tr data-ri="0"><td>1</td><td></td><td>Ana Beatriz Souza</td><td>A</td><td>-</td></tr>
    <tr data-ri="1"><td>2</td><td></td><td>Bruno Carvalho Lima</td><td>C</td><td>-</td></tr>
  </tbody>
</table>`

const emptyRosterHTML = `
<table role="grid">
  <thead><tr><th>Nº</th><th>Foto</th><th>Estudante</th></tr></thead>
  <tbody id="tabViewDiarioClasse:formAbaConceitos:dataTableConceitos_data" class="ui-datatable-data">
  </tbody>
</table>`

const assessmentsHTML = `
<table><tbody id="tabViewDiarioClasse:formAbaAulasAvaliacoes:panelAvaliacao:avaliacoesDataTable_data">
  <tr data-ri="0"><td>1</td><td></td><td>Sim</td><td>03/06/2026</td><td></td><td>Avaliação 1</td><td>TR2</td><td>10,0</td></tr>
</tbody></table>`

const modalFragment = `
<table><tbody id="formModalAvaliacao:tabViewModalAvaliacao:painelTabelaHabilidade:tabelaHabilidade_data">
  <tr data-ri="0"><td>1</td><td>EF05LP01</td><td>Compreensão leitora</td></tr>
</tbody></table>`

const detailFragment = `
<div id="formAtitudes:panelAtitudes">
  <table><tbody id="formAtitudes:panelAtitudes:dataTableAtitudes_data">
    <tr data-ri="0"><td>Participa das aulas</td><td><select></select></td></tr>
  </tbody></table>
  <table><tbody id="formAtitudes:panelAtitudes:dataTableHabilidades_data">
    <tr data-ri="0"><td>EF05LP01</td><td>Compreensão leitora</td><td><select></select></td></tr>
  </tbody></table>
</div>`

// routePartials answers the diary's partial posts the way the real page
// does: modal fragments for assessment links, the detail panel for student
// links and an echoing combo re-render for everything else.
func routePartials(form url.Values) (string, int) {
	src := form.Get("javax.faces.source")
	switch {
	case strings.Contains(src, "aulasAvaliacao") || src == faces.AssessmentModalID:
		return sgnmock.PartialWith(faces.AssessmentModalID, modalFragment), 200
	case strings.Contains(src, faces.StudentNameLinkID):
		return sgnmock.PartialWith(faces.AttitudePanelID, detailFragment), 200
	}
	return sgnmock.DefaultPartialResponse(form), 200
}

func newTestOrchestrator(t *testing.T, srv *sgnmock.Server) *run.Orchestrator {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	orc, err := run.New(lib.Options{
		BaseURL:         null.StringFrom(srv.URL),
		Username:        null.StringFrom(sgnmock.Username),
		Password:        null.StringFrom(sgnmock.Password),
		ClassCode:       null.StringFrom("369528"),
		RequestInterval: types.NullDurationFrom(time.Millisecond),
		RetryBackoff:    types.NullDurationFrom(time.Millisecond),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(orc.Close)
	return orc
}

// postedValues returns every posted value of the given field, in order.
func postedValues(srv *sgnmock.Server, field string) []string {
	var out []string
	for _, form := range srv.Posts() {
		if v := form.Get(field + "_input"); v != "" && form.Get("javax.faces.source") == field {
			out = append(out, v)
		}
	}
	return out
}

func TestRunConstantJob(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + rosterHTML }
	srv.OnPartial = routePartials
	orc := newTestOrchestrator(t, srv)

	job := orc.JobFromDefaults()
	summary, err := orc.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Errored)
	assert.True(t, summary.Success)
	assert.Equal(t, "processed 2/2", summary.Message)
	assert.Equal(t, run.PhaseDone, orc.Phase())
	assert.True(t, orc.Authenticated())

	// Without score-driven resolution every skill gets the default grade
	// and every attitude row the default observation.
	assert.Equal(t, []string{"B", "B"}, postedValues(srv, faces.SkillGradeFieldID(0)))
	assert.Equal(t, []string{"Raramente", "Raramente"}, postedValues(srv, faces.AttitudeFieldID(0)))
}

func TestRunIntelligentJob(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + rosterHTML + assessmentsHTML }
	srv.OnPartial = routePartials
	orc := newTestOrchestrator(t, srv)

	job := orc.JobFromDefaults()
	job.Intelligent = true
	job.PushFinalGrades = true
	summary, err := orc.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)

	// Ana scored A on the assessment linked to the skill; Bruno's C is
	// written as NE.
	assert.Equal(t, []string{"A", "NE"}, postedValues(srv, faces.SkillGradeFieldID(0)))

	// The final grade is the mode of each student's resolved grades.
	assert.Equal(t, []string{"A"}, postedValues(srv, faces.FinalGradeFieldID(0)))
	assert.Equal(t, []string{"NE"}, postedValues(srv, faces.FinalGradeFieldID(1)))
}

func TestRunInvalidPeriod(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	orc := newTestOrchestrator(t, srv)

	job := orc.JobFromDefaults()
	job.Period = "TR9"
	_, err := orc.Run(context.Background(), job)
	var verr *lib.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, run.PhaseAborted, orc.Phase())
}

func TestRunNoStudents(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + emptyRosterHTML }
	orc := newTestOrchestrator(t, srv)

	_, err := orc.Run(context.Background(), orc.JobFromDefaults())
	var verr *lib.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "student table", verr.Subject)
	assert.Equal(t, run.PhaseAborted, orc.Phase())
}

func TestRunIntelligentWithoutAssessments(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + rosterHTML }
	srv.OnPartial = routePartials
	orc := newTestOrchestrator(t, srv)

	job := orc.JobFromDefaults()
	job.Intelligent = true
	_, err := orc.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, run.PhaseAborted, orc.Phase())
}

func TestRunRejectsConcurrentJobs(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	srv.DiaryBody = func() string {
		if first {
			first = false
			close(started)
			<-release
		}
		return periodComboHTML + rosterHTML
	}
	srv.OnPartial = routePartials
	orc := newTestOrchestrator(t, srv)

	done := make(chan error, 1)
	go func() {
		_, err := orc.Run(context.Background(), orc.JobFromDefaults())
		done <- err
	}()

	<-started
	_, err := orc.Run(context.Background(), orc.JobFromDefaults())
	assert.ErrorIs(t, err, lib.ErrBusy)

	close(release)
	require.NoError(t, <-done)
}
