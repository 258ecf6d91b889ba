package discovery_test

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

	"github.com/gradepush/gradepush/lib/discovery"
	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/grading"
	"github.com/gradepush/gradepush/lib/session"
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
  <thead><tr><th>Nº</th><th>Foto</th><th>Estudante</th><th>AV1</th></tr></thead>
  <tbody id="tabViewDiarioClasse:formAbaConceitos:dataTableConceitos_data" class="ui-datatable-data">
    <tr data-ri="0"><td>1</td><td></td><td>Ana Beatriz Souza</td><td>A</td></tr>
  </tbody>
</table>`

func newTestCollector(t *testing.T, srv *sgnmock.Server) *discovery.Collector {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := faces.NewClient(faces.ClientConfig{BaseURL: srv.URL}, logger)
	require.NoError(t, err)
	creds := session.Credentials{Username: sgnmock.Username, Password: sgnmock.Password}
	sessions := session.NewManager(client, creds, time.Minute, logger)

	ctx := context.Background()
	require.NoError(t, sessions.Login(ctx))
	_, err = sessions.Navigate(ctx, "369528")
	require.NoError(t, err)

	t.Cleanup(sessions.Close)
	return discovery.NewCollector(sessions, logger)
}

func TestSelectPeriodAlreadySelected(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + rosterHTML }
	c := newTestCollector(t, srv)
	ctx := context.Background()

	doc, err := c.DiaryPage(ctx)
	require.NoError(t, err)
	same, err := c.SelectPeriod(ctx, doc, types.PeriodSecond)
	require.NoError(t, err)
	assert.Same(t, doc, same)
	assert.Zero(t, srv.PostCount(), "the selected period needs no round trip")
}

func TestSelectPeriodSwitches(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + rosterHTML }
	srv.OnPartial = func(form url.Values) (string, int) {
		if form.Get("javax.faces.source") == faces.PeriodComboID {
			return sgnmock.PartialWith(faces.ConceptsFormID, rosterHTML), 200
		}
		return sgnmock.DefaultPartialResponse(form), 200
	}
	c := newTestCollector(t, srv)
	ctx := context.Background()

	doc, err := c.DiaryPage(ctx)
	require.NoError(t, err)
	switched, err := c.SelectPeriod(ctx, doc, types.PeriodThird)
	require.NoError(t, err)

	require.Equal(t, 1, srv.PostCount())
	form := srv.Posts()[0]
	assert.Equal(t, "2", form.Get(faces.PeriodComboID+"_input"))
	assert.Equal(t, "valueChange", form.Get("javax.faces.behavior.event"))

	students, err := discovery.ListStudents(switched, nil)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestSelectPeriodUnknownPeriod(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string {
		return strings.Replace(periodComboHTML, `<option value="2">TR3</option>`, "", 1)
	}
	c := newTestCollector(t, srv)
	ctx := context.Background()

	doc, err := c.DiaryPage(ctx)
	require.NoError(t, err)
	_, err = c.SelectPeriod(ctx, doc, types.PeriodThird)
	assert.ErrorContains(t, err, "not offered")
}

const assessmentRowsHTML = `
<table><tbody id="tabViewDiarioClasse:formAbaAulasAvaliacoes:panelAvaliacao:avaliacoesDataTable_data">
  <tr data-ri="0"><td>1</td><td></td><td>Sim</td><td>03/06/2026</td><td></td><td>Avaliação 1</td><td>TR2</td><td>10,0</td></tr>
</tbody></table>`

const modalSkillsFragment = `
<table><tbody id="formModalAvaliacao:tabViewModalAvaliacao:painelTabelaHabilidade:tabelaHabilidade_data">
  <tr data-ri="0"><td>1</td><td>EF05LP01</td><td>Compreensão leitora</td></tr>
</tbody></table>`

func TestCollectAssessments(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.DiaryBody = func() string { return periodComboHTML + assessmentRowsHTML }
	srv.OnPartial = func(form url.Values) (string, int) {
		return sgnmock.PartialWith(faces.AssessmentModalID, modalSkillsFragment), 200
	}
	c := newTestCollector(t, srv)
	ctx := context.Background()

	doc, err := c.DiaryPage(ctx)
	require.NoError(t, err)
	assessments, recoveries, err := c.CollectAssessments(ctx, doc, types.PeriodSecond)
	require.NoError(t, err)
	assert.Empty(t, recoveries)
	require.Len(t, assessments, 1)
	require.Len(t, assessments[0].Skills, 1)
	assert.Equal(t, "Compreensão leitora", assessments[0].Skills[0].Text)

	// The modal takes two round trips: the opening click and the
	// deferred content load.
	posts := srv.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, faces.AssessmentLinkID(0), posts[0].Get("javax.faces.source"))
	assert.Equal(t, faces.AssessmentModalID, posts[1].Get("javax.faces.source"))
	assert.Equal(t, "true", posts[1].Get(faces.AssessmentModalID+"_contentLoad"))
}

func TestAssessmentSkillsMissingModal(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.OnPartial = func(form url.Values) (string, int) {
		return sgnmock.PartialWith("somethingElse", "<div></div>"), 200
	}
	c := newTestCollector(t, srv)

	_, err := c.AssessmentSkills(context.Background(), grading.Assessment{Row: 0, Number: 1})
	assert.ErrorContains(t, err, "modal content missing")
}

const studentDetailFragment = `
<div id="formAtitudes:panelAtitudes">
  <table><tbody id="formAtitudes:panelAtitudes:dataTableAtitudes_data">
    <tr data-ri="0"><td>Participa das aulas</td><td><select></select></td></tr>
  </tbody></table>
  <table><tbody id="formAtitudes:panelAtitudes:dataTableHabilidades_data">
    <tr data-ri="0"><td>EF05LP01</td><td>Compreensão leitora</td><td><select></select></td></tr>
  </tbody></table>
</div>`

func TestOpenStudentDetail(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.OnPartial = func(form url.Values) (string, int) {
		return sgnmock.PartialWith(faces.AttitudePanelID, studentDetailFragment), 200
	}
	c := newTestCollector(t, srv)

	detail, err := c.OpenStudentDetail(context.Background(), discovery.Student{Row: 3, Name: "Carla Dias Moreira"})
	require.NoError(t, err)

	rows, err := discovery.ParseStudentSkillRows(detail)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	form := srv.Posts()[0]
	assert.Contains(t, form.Get("javax.faces.source"), ":3:"+faces.StudentNameLinkID)
}

func TestOpenStudentDetailEmptyFragment(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.OnPartial = func(form url.Values) (string, int) {
		return sgnmock.PartialWith("unrelated", "   "), 200
	}
	c := newTestCollector(t, srv)

	_, err := c.OpenStudentDetail(context.Background(), discovery.Student{Row: 0, Name: "Ana Beatriz Souza"})
	assert.ErrorContains(t, err, "empty detail fragment")
}
