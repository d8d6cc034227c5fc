package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/model"
)

// fakeAPI replays scripted status answers per job id.
type fakeAPI struct {
	mu           sync.Mutex
	nextID       int
	submitErr    error
	submitBlock  chan struct{}
	statuses     map[string][]statusReply
	statusBlock  map[string]chan struct{}
	previewErr   error
	submitCalls  int
	statusCalls  map[string]int
	previewCalls int
	previewLimit int
}

type statusReply struct {
	st  model.JobStatus
	err error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		statuses:    map[string][]statusReply{},
		statusBlock: map[string]chan struct{}{},
		statusCalls: map[string]int{},
	}
}

func (f *fakeAPI) script(id string, replies ...statusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = replies
}

func (f *fakeAPI) Submit(ctx context.Context, baseURL string, req model.JobRequest) (model.JobHandle, error) {
	f.mu.Lock()
	f.submitCalls++
	block := f.submitBlock
	err := f.submitErr
	f.nextID++
	id := fmt.Sprintf("J%d", f.nextID)
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return model.JobHandle{}, &jobs.SubmissionError{Err: ctx.Err()}
		}
	}
	if err != nil {
		return model.JobHandle{}, err
	}
	return model.JobHandle{ID: id, BaseURL: baseURL}, nil
}

func (f *fakeAPI) Status(ctx context.Context, h model.JobHandle) (model.JobStatus, error) {
	f.mu.Lock()
	f.statusCalls[h.ID]++
	block := f.statusBlock[h.ID]
	var r statusReply
	if q := f.statuses[h.ID]; len(q) > 0 {
		r = q[0]
		if len(q) > 1 {
			f.statuses[h.ID] = q[1:]
		}
	} else {
		r = statusReply{st: model.Queued{}}
	}
	f.mu.Unlock()

	if block != nil {
		// Released by the test without regard to ctx, so a stale answer
		// can arrive after cancellation.
		<-block
	}
	return r.st, r.err
}

func (f *fakeAPI) Preview(ctx context.Context, h model.JobHandle, limit int) (*model.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewCalls++
	f.previewLimit = limit
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	total := 12
	return &model.Preview{Rows: []map[string]any{{"name": "SD 1"}}, Total: &total}, nil
}

func (f *fakeAPI) counts(id string) (submit, status, preview int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls, f.statusCalls[id], f.previewCalls
}

func validParams() model.ParameterSet {
	p := model.DefaultParameterSet("http://backend")
	p.SubdistrictText = "Ungaran Barat\nBergas"
	return p
}

func newTestController(api API) *Controller {
	return New(api, Options{
		Interval: 5 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func running(pct float64) statusReply {
	return statusReply{st: model.Running{Progress: model.Progress{Percent: &pct}}}
}

func done(found int) statusReply {
	pct := 100.0
	return statusReply{st: model.Done{Progress: model.Progress{Percent: &pct, Found: &found}}}
}

func waitView(t *testing.T, c *Controller) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := c.Wait(ctx)
	require.NoError(t, err)
	return v
}

func TestHappyPath(t *testing.T) {
	api := newFakeAPI()
	api.script("J1", running(40), done(12))

	var mu sync.Mutex
	var seen []View
	c := New(api, Options{
		Interval: 5 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnChange: func(v View) {
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
		},
	})
	defer c.Close()

	require.NoError(t, c.Submit(context.Background(), validParams()))
	v := waitView(t, c)

	mu.Lock()
	polled := -1
	for i, s := range seen {
		if s.State == StatePolling && s.Percent() == 40 {
			polled = i
			break
		}
	}
	succeeded := slices.IndexFunc(seen, func(s View) bool { return s.State == StateSucceeded })
	mu.Unlock()
	require.NotEqual(t, -1, polled, "no running snapshot at 40 percent")
	assert.Less(t, polled, succeeded)

	assert.Equal(t, StateSucceeded, v.State)
	require.NotNil(t, v.Handle)
	assert.Equal(t, "J1", v.Handle.ID)
	assert.Equal(t, 100, v.Percent())
	p, ok := model.ProgressOf(v.Status)
	require.True(t, ok)
	assert.Equal(t, 12, *p.Found)
	require.NotNil(t, v.Preview)
	assert.Len(t, v.Preview.Rows, 1)
	assert.NoError(t, v.Err)

	url, ok := v.DownloadURL()
	assert.True(t, ok)
	assert.Equal(t, "http://backend/api/jobs/J1/download?format=xlsx", url)

	_, statusCalls, previewCalls := api.counts("J1")
	assert.Equal(t, 2, statusCalls)
	assert.Equal(t, 1, previewCalls)
	assert.Equal(t, DefaultPreviewLimit, api.previewLimit)
}

func TestSubmitRejected(t *testing.T) {
	api := newFakeAPI()
	api.submitErr = &jobs.SubmissionError{StatusCode: 500, Reason: "check the backend URL"}
	c := newTestController(api)

	err := c.Submit(context.Background(), validParams())
	var serr *jobs.SubmissionError
	require.ErrorAs(t, err, &serr)

	v := c.View()
	assert.Equal(t, StateFailed, v.State)
	assert.Nil(t, v.Handle)
	assert.False(t, v.CanDownload())
	assert.Equal(t, err.Error(), v.ErrorText())

	_, statusCalls, _ := api.counts("J1")
	assert.Zero(t, statusCalls)
}

func TestBackendErrorMessage(t *testing.T) {
	api := newFakeAPI()
	api.script("J1", running(10), statusReply{st: model.Failed{Message: "quota exceeded"}})
	c := newTestController(api)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	v := waitView(t, c)

	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, "quota exceeded", v.ErrorText())
	var berr *BackendError
	assert.ErrorAs(t, v.Err, &berr)
	assert.False(t, v.CanDownload())

	_, _, previewCalls := api.counts("J1")
	assert.Zero(t, previewCalls)
}

func TestBackendErrorFallback(t *testing.T) {
	api := newFakeAPI()
	api.script("J1", statusReply{st: model.Failed{}})
	c := newTestController(api)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	v := waitView(t, c)
	assert.Equal(t, "the backend reported an error while processing the job", v.ErrorText())
}

func TestTransportFailureStopsPolling(t *testing.T) {
	api := newFakeAPI()
	terr := &jobs.TransportError{Op: "status", StatusCode: 404}
	api.script("J1", running(5), statusReply{err: terr}, running(50))
	c := newTestController(api)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	v := waitView(t, c)

	assert.Equal(t, StateFailed, v.State)
	assert.ErrorIs(t, v.Err, terr)

	time.Sleep(30 * time.Millisecond)
	_, statusCalls, _ := api.counts("J1")
	assert.Equal(t, 2, statusCalls)
}

func TestPreviewFailureKeepsSuccess(t *testing.T) {
	api := newFakeAPI()
	api.previewErr = errors.New("preview unavailable")
	api.script("J1", done(3))
	c := newTestController(api)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	v := waitView(t, c)

	assert.Equal(t, StateSucceeded, v.State)
	assert.Nil(t, v.Preview)
	assert.NoError(t, v.Err)
	assert.True(t, v.CanDownload())
}

func TestValidationSkipsNetwork(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(api)

	p := validParams()
	p.SubdistrictText = "  \n"
	err := c.Submit(context.Background(), p)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	v := c.View()
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, err, v.Err)

	submitCalls, _, _ := api.counts("J1")
	assert.Zero(t, submitCalls)
}

func TestResubmitDiscardsPreviousJob(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	api.statusBlock["J1"] = release
	api.script("J1", done(99))
	api.script("J2", running(30), done(4))
	c := newTestController(api)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	require.Eventually(t, func() bool {
		_, n, _ := api.counts("J1")
		return n == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	close(release)

	v := waitView(t, c)
	assert.Equal(t, StateSucceeded, v.State)
	assert.Equal(t, "J2", v.Handle.ID)
	p, _ := model.ProgressOf(v.Status)
	assert.Equal(t, 4, *p.Found)

	time.Sleep(20 * time.Millisecond)
	v = c.View()
	assert.Equal(t, "J2", v.Handle.ID)
	_, j1Calls, previewCalls := api.counts("J1")
	assert.Equal(t, 1, j1Calls)
	assert.Equal(t, 1, previewCalls)
}

func TestResubmitCancelsInFlightSubmission(t *testing.T) {
	api := newFakeAPI()
	api.submitBlock = make(chan struct{})
	c := newTestController(api)

	errc := make(chan error, 1)
	go func() { errc <- c.Submit(context.Background(), validParams()) }()
	require.Eventually(t, func() bool {
		n, _, _ := api.counts("")
		return n == 1
	}, time.Second, time.Millisecond)

	api.mu.Lock()
	api.submitBlock = nil
	api.mu.Unlock()
	api.script("J2", done(1))

	require.NoError(t, c.Submit(context.Background(), validParams()))
	assert.ErrorIs(t, <-errc, ErrStopped)

	v := waitView(t, c)
	assert.Equal(t, StateSucceeded, v.State)
	assert.Equal(t, "J2", v.Handle.ID)
}

func TestStopIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.script("J1", running(10))
	c := newTestController(api)

	c.Stop()
	assert.Equal(t, StateIdle, c.View().State)
	assert.NoError(t, c.View().Err)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	c.Stop()
	c.Stop()
	require.NoError(t, c.Close())

	v := waitView(t, c)
	assert.Equal(t, StateIdle, v.State)
	assert.ErrorIs(t, v.Err, ErrStopped)

	_, before, _ := api.counts("J1")
	time.Sleep(30 * time.Millisecond)
	_, after, _ := api.counts("J1")
	assert.Equal(t, before, after)
}

func TestStopKeepsFinishedResult(t *testing.T) {
	api := newFakeAPI()
	api.script("J1", done(2))
	c := newTestController(api)

	require.NoError(t, c.Submit(context.Background(), validParams()))
	waitView(t, c)
	c.Stop()

	v := c.View()
	assert.Equal(t, StateSucceeded, v.State)
	assert.True(t, v.CanDownload())
}

func TestOnChange(t *testing.T) {
	api := newFakeAPI()
	api.script("J1", running(50), done(1))

	var mu sync.Mutex
	var states []State
	c := New(api, Options{
		Interval: 5 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnChange: func(v View) {
			mu.Lock()
			states = append(states, v.State)
			mu.Unlock()
		},
	})

	require.NoError(t, c.Submit(context.Background(), validParams()))
	waitView(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateSubmitting, states[0])
	assert.Equal(t, StateSucceeded, states[len(states)-1])
	assert.Contains(t, states, StatePolling)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "unknown", State(42).String())
}
