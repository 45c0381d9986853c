// Package jobs runs assessments asynchronously and tracks their lifecycle.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"repoassess/internal/types"
)

// Status is a job lifecycle state. Jobs move queued -> running -> one of the
// terminal states and never leave a terminal state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

const (
	DefaultRetention     = 10 * time.Minute
	DefaultMaxConcurrent = 4
)

var (
	// ErrNotFound is returned for unknown or already evicted job ids.
	ErrNotFound = errors.New("jobs: job not found")
	// ErrInvalidRequest is returned by Submit when a request names neither or
	// both of path and url.
	ErrInvalidRequest = errors.New("jobs: exactly one of path or url is required")
	ErrClosed         = errors.New("jobs: store is closed")
)

// Request describes what to assess: a local Path or a remote URL.
type Request struct {
	Path   string `json:"path"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

// RunFunc performs the assessment. progress may be called any number of times.
type RunFunc func(ctx context.Context, req Request, progress func(msg string)) (*types.RepoAssessmentResult, error)

type ErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// View is an immutable snapshot of a job.
type View struct {
	ID        string                      `json:"id"`
	Status    Status                      `json:"status"`
	Request   Request                     `json:"request"`
	Error     *ErrorView                  `json:"error"`
	Result    *types.RepoAssessmentResult `json:"result"`
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

type job struct {
	view   View
	cancel context.CancelFunc
	done   chan struct{}
}

// Store owns every job. It is safe for concurrent use.
type Store struct {
	run       RunFunc
	kind      func(error) string
	broker    *EventBroker
	retention time.Duration
	sem       chan struct{}
	now       func() time.Time
	logger    *log.Logger

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*job
}

type Option func(*Store)

func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithMaxConcurrent(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithErrorKind sets how failures are labelled in ErrorView.Kind.
func WithErrorKind(f func(error) string) Option {
	return func(s *Store) {
		if f != nil {
			s.kind = f
		}
	}
}

func WithBroker(b *EventBroker) Option {
	return func(s *Store) {
		if b != nil {
			s.broker = b
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(run RunFunc, opts ...Option) *Store {
	base, shutdown := context.WithCancel(context.Background())
	s := &Store{
		run:       run,
		kind:      func(error) string { return "internal" },
		broker:    NewEventBroker(),
		retention: DefaultRetention,
		sem:       make(chan struct{}, DefaultMaxConcurrent),
		now:       time.Now,
		logger:    log.Default(),
		base:      base,
		shutdown:  shutdown,
		jobs:      make(map[string]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Broker exposes the event broker jobs publish to.
func (s *Store) Broker() *EventBroker { return s.broker }

// Submit queues req and returns immediately.
func (s *Store) Submit(req Request) (View, error) {
	req.Path = strings.TrimSpace(req.Path)
	req.URL = strings.TrimSpace(req.URL)
	req.Branch = strings.TrimSpace(req.Branch)
	if (req.Path == "") == (req.URL == "") {
		return View{}, ErrInvalidRequest
	}
	if err := s.base.Err(); err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrClosed, err)
	}

	ctx, cancel := context.WithCancel(s.base)
	now := s.now().UTC()
	j := &job{
		view: View{
			ID:        uuid.NewString(),
			Status:    StatusQueued,
			Request:   req,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.jobs[j.view.ID] = j
	view := j.view
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(ctx, j)
	return view, nil
}

func (s *Store) execute(ctx context.Context, j *job) {
	defer s.wg.Done()
	defer j.cancel()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.finish(j, nil, ctx.Err())
		return
	}
	if !s.transition(j, StatusRunning, "started") {
		return
	}

	progress := func(msg string) {
		s.broker.Publish(Event{JobID: j.view.ID, Status: StatusRunning, Message: msg, Time: s.now().UTC()})
	}
	res, err := s.run(ctx, s.snapshot(j).Request, progress)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	s.finish(j, res, err)
}

// transition moves a non-terminal job to status and publishes the change.
func (s *Store) transition(j *job, status Status, msg string) bool {
	s.mu.Lock()
	if j.view.Status.Terminal() {
		s.mu.Unlock()
		return false
	}
	j.view.Status = status
	j.view.UpdatedAt = s.now().UTC()
	ev := Event{JobID: j.view.ID, Status: status, Message: msg, Time: j.view.UpdatedAt}
	s.mu.Unlock()
	s.broker.Publish(ev)
	return true
}

func (s *Store) finish(j *job, res *types.RepoAssessmentResult, err error) {
	s.mu.Lock()
	if j.view.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		j.view.Status = StatusSucceeded
		j.view.Result = res
	case errors.Is(err, context.Canceled):
		j.view.Status = StatusCanceled
		j.view.Error = &ErrorView{Kind: s.kind(err), Message: err.Error()}
	default:
		j.view.Status = StatusFailed
		j.view.Error = &ErrorView{Kind: s.kind(err), Message: err.Error()}
	}
	j.view.UpdatedAt = s.now().UTC()
	ev := Event{JobID: j.view.ID, Status: j.view.Status, Time: j.view.UpdatedAt}
	if j.view.Error != nil {
		ev.Message = j.view.Error.Message
	}
	id := j.view.ID
	s.mu.Unlock()

	close(j.done)
	s.broker.Finish(ev)
	s.logger.Printf("jobs: %s %s", id, ev.Status)

	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
	})
}

// Get returns the current snapshot of a job.
func (s *Store) Get(id string) (View, error) {
	j, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return s.snapshot(j), nil
}

// Cancel requests cancellation. Terminal jobs are returned unchanged.
func (s *Store) Cancel(id string) (View, error) {
	j, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	j.cancel()
	return s.snapshot(j), nil
}

// Wait blocks until the job is terminal or ctx is done.
func (s *Store) Wait(ctx context.Context, id string) (View, error) {
	j, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	select {
	case <-j.done:
		return s.snapshot(j), nil
	case <-ctx.Done():
		return s.snapshot(j), ctx.Err()
	}
}

// Watch subscribes to a job's events. The current state is delivered first;
// for a terminal job that is the only event and the channel is then closed.
func (s *Store) Watch(id string, size int) (<-chan Event, func(), error) {
	j, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := Event{JobID: j.view.ID, Status: j.view.Status, Time: j.view.UpdatedAt}
	if j.view.Error != nil {
		current.Message = j.view.Error.Message
	}
	if j.view.Status.Terminal() {
		ch := make(chan Event, 1)
		ch <- current
		close(ch)
		return ch, func() {}, nil
	}
	// Holding the read lock keeps finish from publishing before the
	// subscription exists.
	ch, unsubscribe := s.broker.Subscribe(j.view.ID, size, current)
	return ch, unsubscribe, nil
}

// Close cancels every job and waits for them to stop.
func (s *Store) Close() {
	s.shutdown()
	s.wg.Wait()
}

func (s *Store) lookup(id string) (*job, error) {
	s.mu.RLock()
	j, ok := s.jobs[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, nil
}

func (s *Store) snapshot(j *job) View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return j.view
}
