package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/model"
)

const (
	DefaultInterval     = 1400 * time.Millisecond
	DefaultPreviewLimit = 50
)

// ErrStopped is returned by Submit when the submission was cancelled by
// Stop or replaced by a newer Submit before it completed.
var ErrStopped = errors.New("job was stopped or replaced")

// API is the part of the job client the controller drives.
type API interface {
	Submit(ctx context.Context, baseURL string, req model.JobRequest) (model.JobHandle, error)
	Status(ctx context.Context, h model.JobHandle) (model.JobStatus, error)
	Preview(ctx context.Context, h model.JobHandle, limit int) (*model.Preview, error)
}

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Controller. Zero values take the defaults.
type Options struct {
	Interval     time.Duration
	PreviewLimit int
	Logger       *slog.Logger
	// OnChange is called after every applied change, outside any lock.
	OnChange func(View)
}

// Controller drives one job at a time from submission to a terminal state.
// Starting a new job cancels the previous one first; results that belong to
// a cancelled job are discarded.
type Controller struct {
	api          API
	interval     time.Duration
	previewLimit int
	logger       *slog.Logger
	onChange     func(View)

	mu      sync.Mutex
	gen     uint64 // bumped on every Submit and Stop
	state   State
	handle  *model.JobHandle
	status  model.JobStatus
	preview *model.Preview
	err     error
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an idle controller.
func New(api API, opts Options) *Controller {
	c := &Controller{
		api:          api,
		interval:     opts.Interval,
		previewLimit: opts.PreviewLimit,
		logger:       opts.Logger,
		onChange:     opts.OnChange,
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.previewLimit <= 0 {
		c.previewLimit = DefaultPreviewLimit
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Submit validates p, creates the job and starts polling it. Any previous
// job is cancelled before anything else happens. ctx bounds the whole job,
// polling included, not only the create call.
//
// On success Submit returns once the job exists; polling continues in the
// background until a terminal state, Stop, or the next Submit.
func (c *Controller) Submit(ctx context.Context, p model.ParameterSet) error {
	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.stopLocked()
	gen := c.gen
	c.state = StateSubmitting
	c.handle, c.status, c.preview, c.err = nil, nil, nil, nil
	c.cancel, c.done = cancel, done
	c.mu.Unlock()
	c.notify()

	started := false
	defer func() {
		if !started {
			cancel()
			close(done)
		}
	}()

	if err := p.Validate(); err != nil {
		c.logger.Info("poller.submit.invalid", "error", err)
		c.settle(gen, StateIdle, nil, err)
		return err
	}

	h, err := c.api.Submit(jobCtx, p.ServerBaseURL, jobs.BuildRequest(p))
	if err != nil {
		if !c.settle(gen, StateFailed, nil, err) {
			return ErrStopped
		}
		c.logger.Warn("poller.submit.failed", "error", err)
		return err
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrStopped
	}
	c.state = StatePolling
	c.handle = &h
	c.mu.Unlock()
	c.notify()

	c.logger.Info("poller.submit.ok", "job_id", h.ID, "interval", c.interval)
	started = true
	go c.poll(jobCtx, gen, h, done)
	return nil
}

// Stop cancels the active job, if any. It is idempotent and safe to call
// from any state. A finished job keeps its result.
func (c *Controller) Stop() {
	c.mu.Lock()
	changed := c.stopLocked()
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Close releases the controller. It is equivalent to Stop.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

func (c *Controller) stopLocked() bool {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	if c.state == StateSubmitting || c.state == StatePolling {
		c.state = StateIdle
		c.err = ErrStopped
		return true
	}
	return false
}

// Wait blocks until the current job's loop has exited (terminal state,
// Stop or replacement) or ctx is done, and returns the resulting view.
func (c *Controller) Wait(ctx context.Context) (View, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return c.View(), nil
	}
	select {
	case <-done:
		return c.View(), nil
	case <-ctx.Done():
		return c.View(), ctx.Err()
	}
}

// View returns a read-only copy of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:   c.state,
		Status:  c.status,
		Preview: c.preview,
		Err:     c.err,
	}
	if c.handle != nil {
		h := *c.handle
		v.Handle = &h
	}
	return v
}

func (c *Controller) poll(ctx context.Context, gen uint64, h model.JobHandle, done chan struct{}) {
	defer close(done)
	defer c.release(gen)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if !c.tick(ctx, gen, h) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick performs one status call and reports whether polling continues.
func (c *Controller) tick(ctx context.Context, gen uint64, h model.JobHandle) bool {
	st, err := c.api.Status(ctx, h)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		c.logger.Warn("poller.status.failed", "job_id", h.ID, "error", err)
		c.settle(gen, StateFailed, nil, err)
		return false
	}

	switch s := st.(type) {
	case model.Done:
		if !c.settle(gen, StateSucceeded, st, nil) {
			return false
		}
		c.logger.Info("poller.job.done", "job_id", h.ID)
		c.fetchPreview(ctx, gen, h)
		return false
	case model.Failed:
		c.logger.Warn("poller.job.error", "job_id", h.ID, "message", s.Message)
		c.settle(gen, StateFailed, st, &BackendError{Message: s.Message})
		return false
	default:
		c.logger.Debug("poller.status", "job_id", h.ID, "state", st.State(), "percent", model.DisplayPercent(st))
		return c.settle(gen, StatePolling, st, nil)
	}
}

func (c *Controller) fetchPreview(ctx context.Context, gen uint64, h model.JobHandle) {
	p, err := c.api.Preview(ctx, h, c.previewLimit)
	if err != nil {
		// The export stays downloadable; an empty preview is acceptable.
		c.logger.Warn("poller.preview.failed", "job_id", h.ID, "error", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.preview = p
	c.mu.Unlock()
	c.notify()
}

// settle applies a state change if gen is still current. A nil st keeps
// the held snapshot.
func (c *Controller) settle(gen uint64, state State, st model.JobStatus, err error) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state = state
	if st != nil {
		c.status = st
	}
	c.err = err
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.View())
	}
}
