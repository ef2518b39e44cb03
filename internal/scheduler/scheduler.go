// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scheduler serializes pipeline runs. Recurring timer ticks and
// manual requests feed one trigger channel drained by a single consumer
// goroutine, so at most one run is ever in progress. A trigger that
// arrives while a run is in progress or already pending is coalesced.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/internal/pipeline"
	"github.com/pdiddy/paperwatch/pkg/types"
)

var (
	// ErrBusy is returned when a trigger is coalesced into a run that is
	// already in progress or pending.
	ErrBusy = errors.New("scheduler: a run is already in progress or pending")

	// ErrShuttingDown is returned for triggers after Shutdown.
	ErrShuttingDown = errors.New("scheduler: shutting down")
)

// State is the scheduler lifecycle state.
type State int

const (
	Idle State = iota
	Running
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.Summary, error)
}

type result struct {
	sum pipeline.Summary
	err error
}

type trigger struct {
	subscription string
	reply        chan result
}

// Scheduler owns the trigger channel and its consumer.
type Scheduler struct {
	runner   Runner
	log      zerolog.Logger
	loc      *time.Location
	cron     *cron.Cron
	triggers chan trigger
	stop     chan struct{}
	done     chan struct{}
	now      func() time.Time

	mu       sync.Mutex
	state    State
	pending  bool
	started  bool
	entry    cron.EntryID
	hasEntry bool
	last     *pipeline.Summary
}

// New returns an idle scheduler. Recurring triggers fire in loc; nil means UTC.
func New(runner Runner, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner:   runner,
		log:      log.With().Str("component", "scheduler").Logger(),
		loc:      loc,
		cron:     cron.New(cron.WithLocation(loc)),
		triggers: make(chan trigger, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the consumer goroutine and the recurring timer. It returns
// immediately; calling it again has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.state == ShuttingDown {
		return
	}
	s.started = true
	s.cron.Start()
	go s.consume(ctx)
}

func (s *Scheduler) consume(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case t := <-s.triggers:
			s.mu.Lock()
			s.pending = false
			if s.state == ShuttingDown {
				s.mu.Unlock()
				t.respond(result{err: ErrShuttingDown})
				return
			}
			s.state = Running
			s.mu.Unlock()

			log := s.log.With().Str("subscription", t.subscription).Logger()
			log.Info().Msg("run triggered")
			sum, err := s.runner.Run(ctx, pipeline.RunOptions{Subscription: t.subscription, Stop: s.stop})
			if err != nil {
				log.Error().Err(err).Msg("run failed")
			}

			s.mu.Lock()
			if s.state == Running {
				s.state = Idle
			}
			if err == nil {
				s.last = &sum
			}
			s.mu.Unlock()
			t.respond(result{sum: sum, err: err})
		}
	}
}

func (t trigger) respond(r result) {
	if t.reply != nil {
		t.reply <- r
	}
}

func (s *Scheduler) enqueue(t trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == ShuttingDown:
		return ErrShuttingDown
	case s.state == Running, s.pending:
		return ErrBusy
	}
	select {
	case s.triggers <- t:
		s.pending = true
		return nil
	default:
		return ErrBusy
	}
}

// RunNow requests a run of the named subscription, or of every enabled
// subscription when name is empty. It reports false when the request was
// coalesced or the scheduler is shutting down.
func (s *Scheduler) RunNow(subscription string) bool {
	if err := s.enqueue(trigger{subscription: subscription}); err != nil {
		s.log.Info().Err(err).Msg("trigger coalesced")
		return false
	}
	return true
}

// RunAndWait requests a run and blocks until it finishes, ctx expires, or
// the scheduler shuts down before the run starts.
func (s *Scheduler) RunAndWait(ctx context.Context, subscription string) (pipeline.Summary, error) {
	reply := make(chan result, 1)
	if err := s.enqueue(trigger{subscription: subscription, reply: reply}); err != nil {
		return pipeline.Summary{}, err
	}
	select {
	case r := <-reply:
		return r.sum, r.err
	case <-s.done:
		select {
		case r := <-reply:
			return r.sum, r.err
		default:
			return pipeline.Summary{}, ErrShuttingDown
		}
	case <-ctx.Done():
		return pipeline.Summary{}, ctx.Err()
	}
}

// StartRecurring registers a daily trigger at timeOfDay (HH:MM) in the
// scheduler's location, replacing any previous one.
func (s *Scheduler) StartRecurring(timeOfDay string) error {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ShuttingDown {
		return ErrShuttingDown
	}
	if s.hasEntry {
		s.cron.Remove(s.entry)
		s.hasEntry = false
	}
	id, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
		s.log.Info().Msg("recurring trigger fired")
		s.RunNow("")
	})
	if err != nil {
		return fmt.Errorf("%w: schedule %q: %w", types.ErrConfiguration, timeOfDay, err)
	}
	s.entry, s.hasEntry = id, true
	s.log.Info().Str("at", timeOfDay).Str("tz", s.loc.String()).Msg("recurring run registered")
	return nil
}

// NextRun returns when the recurring trigger fires next, or the zero time
// when none is registered.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasEntry || s.state == ShuttingDown {
		return time.Time{}
	}
	e := s.cron.Entry(s.entry)
	if !e.Next.IsZero() {
		return e.Next
	}
	if e.Schedule == nil {
		return time.Time{}
	}
	return e.Schedule.Next(s.now().In(s.loc))
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSummary returns the summary of the most recent successful run.
func (s *Scheduler) LastSummary() (pipeline.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return pipeline.Summary{}, false
	}
	return *s.last, true
}

// Shutdown stops the timer, signals the in-flight run to stop at its next
// paper or subscription boundary, and waits for the consumer to exit or ctx
// to expire. Later triggers fail with ErrShuttingDown.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != ShuttingDown {
		s.state = ShuttingDown
		close(s.stop)
	}
	if !s.started {
		// No consumer will ever close done; release waiters here.
		s.started = true
		close(s.done)
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	select {
	case <-s.done:
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseTimeOfDay parses HH:MM on a 24-hour clock.
func ParseTimeOfDay(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time of day %q is not HH:MM", types.ErrConfiguration, v)
	}
	return t.Hour(), t.Minute(), nil
}
