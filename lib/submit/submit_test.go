package submit_test

import (
	"context"
	"io"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/session"
	"github.com/gradepush/gradepush/lib/submit"
	"github.com/gradepush/gradepush/lib/testutils/sgnmock"
)

func newTestEngine(t *testing.T, srv *sgnmock.Server, workers, retries int) *submit.Engine {
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
	return submit.NewEngine(sessions, workers, retries, 5*time.Millisecond, logger)
}

func gradeTask(row int, value string) submit.Task {
	return submit.Task{
		Name:     faces.SkillGradeFieldID(row),
		FieldID:  faces.SkillGradeFieldID(row),
		RenderID: faces.AttitudePanelID,
		Value:    value,
		Confirm:  true,
	}
}

func TestSubmitBatch(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	e := newTestEngine(t, srv, 2, 0)

	tasks := []submit.Task{gradeTask(0, "A"), gradeTask(1, "B"), gradeTask(2, "NE")}
	res := e.Submit(context.Background(), tasks)

	assert.Equal(t, 3, res.Succeeded())
	assert.Equal(t, 0, res.Failed())
	assert.Equal(t, 3, srv.PostCount())
	for _, o := range res.Outcomes {
		assert.Equal(t, submit.Succeeded, o.Status)
		assert.Equal(t, 1, o.Attempts)
	}

	// The submitted forms carry the combo value and the view state.
	form := srv.Posts()[0]
	assert.Equal(t, "true", form.Get("javax.faces.partial.ajax"))
	assert.Equal(t, sgnmock.ViewState, form.Get("javax.faces.ViewState"))
	assert.Equal(t, "valueChange", form.Get("javax.faces.behavior.event"))
}

func TestSubmitRetriesAfterExpiry(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	e := newTestEngine(t, srv, 1, 2)

	srv.ExpireNext(1)
	res := e.Submit(context.Background(), []submit.Task{gradeTask(0, "A")})

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, submit.RetriedSucceeded, res.Outcomes[0].Status)
	assert.Equal(t, 2, res.Outcomes[0].Attempts)
	assert.Equal(t, 1, res.Succeeded())
}

func TestSubmitServerErrorExhaustsRetries(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	e := newTestEngine(t, srv, 1, 1)

	srv.FailNext(2)
	res := e.Submit(context.Background(), []submit.Task{gradeTask(0, "A")})

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, submit.Failed, res.Outcomes[0].Status)
	assert.Equal(t, 2, res.Outcomes[0].Attempts)
	assert.Error(t, res.Outcomes[0].Err)
	assert.Equal(t, 1, res.Failed())
}

func TestSubmitRecoversFromRepeatedServerErrors(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)

	// One task out of ten eats two 500 redirects before going through.
	flaky := faces.SkillGradeFieldID(7)
	var failures int64
	srv.OnPartial = func(form url.Values) (string, int) {
		if form.Get("javax.faces.source") == flaky && atomic.AddInt64(&failures, 1) <= 2 {
			return `<?xml version='1.0' encoding='UTF-8'?>` +
				`<partial-response><changes><redirect url="/errors/500.html"></redirect></changes></partial-response>`, 200
		}
		return sgnmock.DefaultPartialResponse(form), 200
	}
	e := newTestEngine(t, srv, 2, 2)

	var tasks []submit.Task
	for row := 0; row < 10; row++ {
		tasks = append(tasks, gradeTask(row, "A"))
	}
	started := time.Now()
	res := e.Submit(context.Background(), tasks)

	assert.Equal(t, 10, res.Succeeded())
	assert.Equal(t, 0, res.Failed())
	for _, o := range res.Outcomes {
		if o.Task.FieldID == flaky {
			assert.Equal(t, submit.RetriedSucceeded, o.Status)
			assert.Equal(t, 3, o.Attempts)
		} else {
			assert.Equal(t, submit.Succeeded, o.Status)
		}
	}
	// Two backoff waits at 5ms and 10ms.
	assert.GreaterOrEqual(t, time.Since(started), 15*time.Millisecond)
}

func TestSubmitUnconfirmedValueFails(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	srv.OnPartial = func(url.Values) (string, int) {
		return sgnmock.PartialWith(faces.AttitudePanelID, "<div>unchanged</div>"), 200
	}
	e := newTestEngine(t, srv, 1, 1)

	res := e.Submit(context.Background(), []submit.Task{gradeTask(0, "A")})

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, submit.Failed, res.Outcomes[0].Status)
	assert.ErrorContains(t, res.Outcomes[0].Err, "did not confirm")
}

func TestSubmitCancelledContext(t *testing.T) {
	t.Parallel()
	srv := sgnmock.New(t)
	e := newTestEngine(t, srv, 1, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Submit(ctx, []submit.Task{gradeTask(0, "A")})

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, submit.Failed, res.Outcomes[0].Status)
	assert.Error(t, res.Outcomes[0].Err)
}

func TestStatusString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "succeeded", submit.Succeeded.String())
	assert.Equal(t, "succeeded after retry", submit.RetriedSucceeded.String())
	assert.Equal(t, "failed", submit.Failed.String())
}
