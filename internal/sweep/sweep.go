// Package sweep purges canceled meetings once a day.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meetly/meetly/internal/metrics"
)

// DefaultHour is the local hour the sweep runs at.
const DefaultHour = 3

// Run outcomes recorded by metrics.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Clock abstracts time so tests can drive the schedule.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Purger removes canceled meetings and returns their public link ids.
type Purger interface {
	PurgeCanceledMeetings(ctx context.Context) ([]string, error)
}

// Evictor drops join cache entries.
type Evictor interface {
	DeleteMeeting(ctx context.Context, linkIDs ...string) error
}

// Sweeper deletes canceled meetings at a fixed hour every day.
type Sweeper struct {
	purger   Purger
	evictor  Evictor
	clock    Clock
	hour     int
	location *time.Location
	logger   *slog.Logger
	metrics  metrics.Recorder

	mu       sync.Mutex
	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Sweeper) { s.clock = c }
}

// WithSchedule sets the hour (0-23) and the zone it is read in.
func WithSchedule(hour int, loc *time.Location) Option {
	return func(s *Sweeper) {
		s.hour = hour
		if loc != nil {
			s.location = loc
		}
	}
}

// New creates a Sweeper. evictor may be nil when no join cache is in use.
func New(purger Purger, evictor Evictor, logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *Sweeper {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	s := &Sweeper{
		purger:   purger,
		evictor:  evictor,
		clock:    SystemClock,
		hour:     DefaultHour,
		location: time.Local,
		logger:   logger.With("component", "sweep"),
		metrics:  recorder,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun returns the first sweep time strictly after now.
func (s *Sweeper) NextRun(now time.Time) time.Time {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, 0, 0, 0, s.location)
	}
	return next
}

// Run sleeps until each scheduled time and purges. It returns nil once ctx
// is canceled or Shutdown is called, including a Shutdown that happened
// before Run.
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("sweeper already started")
	}
	s.started = true
	s.mu.Unlock()

	defer close(s.done)

	select {
	case <-s.stop:
		s.logger.Info("sweeper stopped before start")
		return nil
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("sweeper started",
		"hour", s.hour,
		"location", s.location.String(),
	)

	for {
		now := s.clock.Now()
		next := s.NextRun(now)
		s.logger.Debug("next sweep scheduled", "at", next)

		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return nil
		case <-s.clock.After(next.Sub(now)):
		}

		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("sweep failed", "error", err)
		}
	}
}

// RunOnce purges every canceled meeting now and returns how many rows went.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := s.clock.Now()

	linkIDs, err := s.purger.PurgeCanceledMeetings(ctx)
	if err != nil {
		s.metrics.IncSweepRun(StatusFailure)
		return 0, fmt.Errorf("purge canceled meetings: %w", err)
	}

	if s.evictor != nil && len(linkIDs) > 0 {
		if err := s.evictor.DeleteMeeting(ctx, linkIDs...); err != nil {
			s.logger.Warn("join cache eviction failed", "error", err)
		}
	}

	s.metrics.IncSweepRun(StatusSuccess)
	s.metrics.AddSweepPurged(len(linkIDs))
	s.logger.Info("canceled meetings purged",
		"count", len(linkIDs),
		"duration_ms", s.clock.Now().Sub(start).Milliseconds(),
	)

	return len(linkIDs), nil
}

// Shutdown stops Run and waits for it to return. Called before Run, it
// makes a later Run return at once. It implements server.ShutdownFunc.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.done:
		s.logger.Info("sweeper shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sweeper shutdown timed out")
		return ctx.Err()
	}
}
