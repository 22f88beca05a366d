package jobs

import (
	"context"
	"errors"
	"moodboard-server/clock"
	"moodboard-server/core"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval     = 10 * time.Second
	DefaultProgressInterval = 4 * time.Second
)

var (
	ErrClosed     = errors.New("video surface has been torn down")
	ErrSuperseded = errors.New("video job was replaced by a newer submission")
)

// ProgressMessages rotate while a job is in flight.
var ProgressMessages = []string{
	"Warming up the digital director...",
	"Rendering pixels into motion...",
	"Choreographing the frames...",
	"Finalizing your masterpiece...",
	"This can take a few minutes, hang tight!",
}

type Config struct {
	PollInterval     time.Duration
	ProgressInterval time.Duration
}

// Poller drives one video generation job of a single surface from submission to a
// terminal state. A new Start abandons whatever the previous job was doing.
type Poller struct {
	svc     core.VideoService
	gate    core.CredentialGate
	media   core.MediaStore
	sched   clock.Scheduler
	metrics *Metrics
	cfg     Config
	log     *logrus.Entry

	mu       sync.Mutex
	job      core.Job
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	poll     clock.Timer
	progress clock.Timer
	msgIdx   int
	inFlight bool

	// collecting marks a Succeeded result claimed by a Collect still appending it.
	collecting bool

	closed   bool
	watchers []func(core.Job)
}

func NewPoller(svc core.VideoService, gate core.CredentialGate, media core.MediaStore, sched clock.Scheduler, metrics *Metrics, cfg Config) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	return &Poller{
		svc:     svc,
		gate:    gate,
		media:   media,
		sched:   sched,
		metrics: metrics,
		cfg:     cfg,
		log:     logrus.NewEntry(logrus.StandardLogger()),
		job:     core.Job{State: core.JobIdle},
	}
}

// OnChange registers fn to receive a snapshot after every state or progress change.
// fn is called without the poller's lock held.
func (p *Poller) OnChange(fn func(core.Job)) {
	p.mu.Lock()
	p.watchers = append(p.watchers, fn)
	p.mu.Unlock()
}

// Snapshot returns the current job, including the progress message while in flight.
func (p *Poller) Snapshot() core.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Start submits req, first cancelling any loop still running for this surface. It returns
// once the submission has been accepted or has failed; the classified failure is both
// returned and recorded on the job.
func (p *Poller) Start(ctx context.Context, req core.VideoRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !p.gate.HasSelected(ctx) {
		return core.Auth("Select an API key to generate videos.", nil)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.abandonLocked()
	p.gen++
	gen := p.gen
	p.ctx, p.cancel = context.WithCancel(context.Background())
	jobCtx := p.ctx
	p.setStateLocked(core.JobSubmitted)
	p.job = core.Job{State: core.JobSubmitted, Request: req}
	p.msgIdx = 0
	p.progress = p.sched.Every(p.cfg.ProgressInterval, func() { p.advanceProgress(gen) })
	p.mu.Unlock()

	p.metrics.submitted()
	p.log.WithField("aspect_ratio", req.AspectRatio).Info("Submitting video generation job")
	p.notify()

	submitCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(jobCtx, cancel)
	handle, err := p.svc.Submit(submitCtx, req)
	stop()
	cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if gen != p.gen {
		p.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		classified := core.ClassifySubmit(err)
		if classified.Kind == core.KindAuth {
			p.gate.Invalidate()
		}
		p.failLocked(classified)
		p.mu.Unlock()
		p.notify()
		return classified
	}

	p.setStateLocked(core.JobPolling)
	p.job.Handle = handle
	p.poll = p.sched.Every(p.cfg.PollInterval, func() { p.Tick(gen) })
	p.mu.Unlock()

	p.log.WithField("handle", handle).Info("Video generation job submitted, polling")
	p.notify()
	return nil
}

// Tick runs one status check for the job started as generation gen. Ticks for an older
// generation, ticks while a previous check is unresolved, and ticks outside Polling are
// no-ops.
func (p *Poller) Tick(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.gen || p.job.State != core.JobPolling || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	ctx, handle := p.ctx, p.job.Handle
	p.mu.Unlock()

	p.metrics.statusCheck()
	status, err := p.svc.Check(ctx, handle)

	p.mu.Lock()
	if gen != p.gen || p.closed {
		p.mu.Unlock()
		return
	}
	p.inFlight = false
	if err != nil {
		p.stopPollLocked()
		p.failLocked(core.Classify(err))
		p.mu.Unlock()
		p.notify()
		return
	}
	if !status.Done {
		p.mu.Unlock()
		return
	}

	// Completion: no further tick may race with result handling.
	p.stopPollLocked()
	if status.ResultRef == "" {
		p.failLocked(core.Generation("Video generation finished but no video was returned."))
		p.mu.Unlock()
		p.notify()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	locator, err := p.materialize(ctx, status.ResultRef)

	p.mu.Lock()
	if gen != p.gen || p.closed {
		p.mu.Unlock()
		return
	}
	p.inFlight = false
	if err != nil {
		p.failLocked(core.Classify(err))
	} else {
		p.setStateLocked(core.JobSucceeded)
		p.job.Result = locator
		p.stopProgressLocked()
		p.metrics.outcome(core.JobSucceeded, "")
		p.log.WithField("result", locator).Info("Video generation job succeeded")
	}
	p.mu.Unlock()
	p.notify()
}

// Generation identifies the most recent Start; pass it to Tick to drive the loop by hand.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Collect adds the finished video to board and resets the surface to Idle. The result
// is claimed before appending, so concurrent calls add it at most once; a failed append
// releases the claim.
func (p *Poller) Collect(ctx context.Context, board core.BoardStore) (core.BoardItem, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return core.BoardItem{}, ErrClosed
	}
	if p.job.State != core.JobSucceeded || p.collecting {
		p.mu.Unlock()
		return core.BoardItem{}, core.Validation("no finished video to add")
	}
	p.collecting = true
	gen, job := p.gen, p.job
	p.mu.Unlock()

	item, err := board.Append(ctx, core.BoardItem{
		Kind:    core.KindVideo,
		Content: job.Result,
		Label:   job.Request.Prompt,
	})

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return item, err
	}
	p.collecting = false
	if err != nil {
		p.mu.Unlock()
		return core.BoardItem{}, err
	}
	p.job = core.Job{State: core.JobIdle}
	p.mu.Unlock()
	p.notify()
	return item, nil
}

// Teardown stops both timers and cancels in-flight calls. Nothing observable happens
// on this poller afterwards.
func (p *Poller) Teardown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.abandonLocked()
	if p.job.State == core.JobPolling {
		p.metrics.active(-1)
	}
	p.closed = true
	p.gen++
	p.watchers = nil
	p.mu.Unlock()

	p.log.Debug("Video surface torn down")
}

func (p *Poller) materialize(ctx context.Context, ref string) (string, error) {
	data, mimeType, err := p.svc.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return p.media.Put(ctx, data, mimeType)
}

func (p *Poller) advanceProgress(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.progress == nil {
		p.mu.Unlock()
		return
	}
	p.msgIdx = (p.msgIdx + 1) % len(ProgressMessages)
	p.mu.Unlock()
	p.notify()
}

// abandonLocked stops timers and cancels calls of the current job, whatever its state.
func (p *Poller) abandonLocked() {
	p.stopPollLocked()
	p.stopProgressLocked()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.inFlight = false
	p.collecting = false
}

func (p *Poller) failLocked(err *core.Error) {
	p.stopPollLocked()
	p.stopProgressLocked()
	p.setStateLocked(core.JobFailed)
	p.job.Error = err
	p.inFlight = false
	p.metrics.outcome(core.JobFailed, err.Kind)
	p.log.WithFields(logrus.Fields{
		"handle": p.job.Handle,
		"kind":   err.Kind,
		"error":  err.Error(),
	}).Warn("Video generation job failed")
}

// setStateLocked moves the job to state, keeping the in-flight gauge in step.
func (p *Poller) setStateLocked(state core.JobState) {
	switch {
	case p.job.State != core.JobPolling && state == core.JobPolling:
		p.metrics.active(1)
	case p.job.State == core.JobPolling && state != core.JobPolling:
		p.metrics.active(-1)
	}
	p.job.State = state
}

func (p *Poller) stopPollLocked() {
	if p.poll != nil {
		p.poll.Stop()
		p.poll = nil
	}
}

func (p *Poller) stopProgressLocked() {
	if p.progress != nil {
		p.progress.Stop()
		p.progress = nil
	}
}

func (p *Poller) snapshotLocked() core.Job {
	job := p.job
	if job.State == core.JobSubmitted || job.State == core.JobPolling {
		job.Progress = ProgressMessages[p.msgIdx]
	}
	return job
}

func (p *Poller) notify() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	job := p.snapshotLocked()
	watchers := make([]func(core.Job), len(p.watchers))
	copy(watchers, p.watchers)
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(job)
	}
}
