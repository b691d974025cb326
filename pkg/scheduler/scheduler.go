// Package scheduler runs one-shot actions at or after a due time on a single
// background loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"botcore/pkg/errreport"
	"botcore/pkg/logger"
)

// Source tags reports raised by the scheduler loop.
const Source = "scheduler"

// DefaultCadence is the longest the loop sleeps between due checks.
const DefaultCadence = time.Second

var (
	// ErrEntryDone is returned when adding an entry that already fired or was removed.
	ErrEntryDone = errors.New("scheduler entry already fired or removed")
	// ErrStarted is returned by Start on a running scheduler.
	ErrStarted = errors.New("scheduler already started")
)

// Func is a scheduled action.
type Func func(ctx context.Context) error

// Entry is a single scheduled action. It fires at most once.
type Entry struct {
	ID  string
	Key string
	Due time.Time

	fn Func

	// guarded by Scheduler.mu
	queued   bool
	fired    bool
	canceled bool
}

// NewEntry creates an unscheduled entry. key identifies the action for
// RemoveFunc and may be empty.
func NewEntry(key string, due time.Time, fn Func) *Entry {
	return &Entry{ID: uuid.NewString(), Key: key, Due: due, fn: fn}
}

func (e *Entry) done() bool { return e.fired || e.canceled }

func (e *Entry) label() string {
	if e.Key != "" {
		return e.Key
	}
	return e.ID
}

// Scheduler keeps an active entry list plus pending add and remove buffers,
// all under one mutex. Each tick fires the first due entry in registration
// order, merges the buffers and runs the action outside the lock.
type Scheduler struct {
	log      *logger.Logger
	reporter errreport.Reporter
	cadence  time.Duration

	mu       sync.Mutex
	active   []*Entry
	toAdd    []*Entry
	toRemove []*Entry
	series   map[string]*series

	wake chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler. A cadence of zero uses DefaultCadence.
func New(log *logger.Logger, reporter errreport.Reporter, cadence time.Duration) *Scheduler {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	return &Scheduler{
		log:      log,
		reporter: reporter,
		cadence:  cadence,
		wake:     make(chan struct{}, 1),
		series:   make(map[string]*series),
	}
}

// series is a recurring action registered with Every. stopped is guarded by
// Scheduler.mu and is checked before each re-add.
type series struct {
	key     string
	stopped bool
}

// AddAt schedules fn at due.
func (s *Scheduler) AddAt(due time.Time, fn Func) *Entry {
	e := NewEntry("", due, fn)
	_ = s.Add(e)
	return e
}

// AddAfter schedules fn after delay.
func (s *Scheduler) AddAfter(delay time.Duration, fn Func) *Entry {
	return s.AddAt(time.Now().Add(delay), fn)
}

// Add schedules e. Adding a queued entry again is a no-op; fired or removed
// entries are rejected with ErrEntryDone.
func (s *Scheduler) Add(e *Entry) error {
	if e == nil || e.fn == nil {
		return fmt.Errorf("scheduler entry has no action")
	}

	s.mu.Lock()
	err := s.addLocked(e)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.signal()
	return nil
}

func (s *Scheduler) addLocked(e *Entry) error {
	if e.done() {
		return ErrEntryDone
	}
	if !e.queued {
		e.queued = true
		s.toAdd = append(s.toAdd, e)
	}
	return nil
}

// Remove cancels e. It reports false when e already fired or was removed.
func (s *Scheduler) Remove(e *Entry) bool {
	if e == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(e)
}

// RemoveFunc cancels the first live entry registered under key and ends a
// recurring series with that key, even one whose activation is running. The
// empty key matches nothing.
func (s *Scheduler) RemoveFunc(key string) bool {
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	if sr, ok := s.series[key]; ok {
		sr.stopped = true
		delete(s.series, key)
		removed = true
	}
	for _, list := range [][]*Entry{s.active, s.toAdd} {
		for _, e := range list {
			if e.Key == key && !e.done() {
				return s.cancelLocked(e) || removed
			}
		}
	}
	return removed
}

func (s *Scheduler) cancelLocked(e *Entry) bool {
	if e.done() || !e.queued {
		return false
	}
	e.canceled = true
	s.toRemove = append(s.toRemove, e)
	return true
}

// Every schedules fn on a cron spec under key. Each run re-adds a fresh
// entry for the next activation; RemoveFunc(key) ends the series. Starting
// a series under a key that already has one ends the older series.
func (s *Scheduler) Every(spec, key string, fn Func) (*Entry, error) {
	return s.EveryFrom(spec, key, time.Now(), fn)
}

// EveryFrom is Every with the first activation computed from start.
func (s *Scheduler) EveryFrom(spec, key string, start time.Time, fn Func) (*Entry, error) {
	if key == "" {
		return nil, fmt.Errorf("recurring action needs a key")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("scheduler entry has no action")
	}

	sr := &series{key: key}
	s.mu.Lock()
	if old, ok := s.series[key]; ok {
		old.stopped = true
	}
	s.series[key] = sr
	e := s.nextLocked(sr, sched, start, fn)
	s.mu.Unlock()

	s.signal()
	return e, nil
}

// nextLocked queues the activation of sr following from.
func (s *Scheduler) nextLocked(sr *series, sched cron.Schedule, from time.Time, fn Func) *Entry {
	e := NewEntry(sr.key, sched.Next(from), func(ctx context.Context) error {
		defer s.reschedule(sr, sched, fn)
		return fn(ctx)
	})
	_ = s.addLocked(e)
	return e
}

func (s *Scheduler) reschedule(sr *series, sched cron.Schedule, fn Func) {
	s.mu.Lock()
	if sr.stopped {
		s.mu.Unlock()
		s.log.Debug("Recurring action ended", zap.String("key", sr.key))
		return
	}
	s.nextLocked(sr, sched, time.Now(), fn)
	s.mu.Unlock()
	s.signal()
}

// Len returns the number of live entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, list := range [][]*Entry{s.active, s.toAdd} {
		for _, e := range list {
			if !e.done() {
				n++
			}
		}
	}
	return n
}

// Entries returns the live entries in registration order.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entry
	for _, list := range [][]*Entry{s.active, s.toAdd} {
		for _, e := range list {
			if !e.done() {
				out = append(out, e)
			}
		}
	}
	return out
}

// Start launches the scheduler loop.
func (s *Scheduler) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		return ErrStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.log.Info("Starting scheduler", zap.Duration("cadence", s.cadence))
	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for a running action to return.
func (s *Scheduler) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil

	s.log.Info("Scheduler stopped", zap.Int("pending", s.Len()))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}
		if s.tick(ctx) {
			continue
		}

		timer := time.NewTimer(s.nextWait(time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// tick fires at most one due entry and reports whether it did.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := time.Now()

	s.mu.Lock()
	var due *Entry
	for _, e := range s.active {
		if !e.done() && now.After(e.Due) {
			due = e
			e.fired = true
			s.toRemove = append(s.toRemove, e)
			break
		}
	}
	s.mergeLocked()
	s.mu.Unlock()

	if due == nil {
		return false
	}
	s.run(ctx, due)
	return true
}

// mergeLocked applies pending removals, then pending additions.
func (s *Scheduler) mergeLocked() {
	if len(s.toRemove) > 0 {
		removed := make(map[*Entry]struct{}, len(s.toRemove))
		for _, e := range s.toRemove {
			removed[e] = struct{}{}
		}
		kept := s.active[:0]
		for _, e := range s.active {
			if _, ok := removed[e]; !ok {
				kept = append(kept, e)
			}
		}
		clear(s.active[len(kept):])
		s.active = kept
		s.toRemove = s.toRemove[:0]
	}

	for _, e := range s.toAdd {
		if !e.done() {
			s.active = append(s.active, e)
		}
	}
	s.toAdd = s.toAdd[:0]
}

func (s *Scheduler) nextWait(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	wait := s.cadence
	for _, list := range [][]*Entry{s.active, s.toAdd} {
		for _, e := range list {
			if e.done() {
				continue
			}
			if d := e.Due.Sub(now); d < wait {
				wait = d
			}
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) run(ctx context.Context, e *Entry) {
	detail := fmt.Sprintf("Failed to execute action `%s`", e.label())
	defer func() {
		if err := errreport.Recovered(recover()); err != nil {
			s.reporter.Report(ctx, err, Source, detail)
		}
	}()

	if err := e.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.reporter.Report(ctx, err, Source, detail)
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
