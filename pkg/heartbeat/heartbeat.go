// Package heartbeat keeps the bot's presence fresh: shortly after start and
// then on a cron schedule it shows the current UTC time as a "Watching"
// status and counts its runs in the state store.
package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/scheduler"
	"botcore/pkg/state"
)

const (
	// Key identifies heartbeat entries in the scheduler.
	Key = "heartbeat"

	stampLastRun = "heartbeat"
	counterRuns  = "heartbeat.runs"

	statusLayout = "2006-01-02 15:04 UTC"
)

// Config configures the heartbeat.
type Config struct {
	Enabled    bool
	Schedule   string        // cron spec of the recurring updates
	StartDelay time.Duration // delay of the first update after Start
}

// Stats describes the heartbeat state.
type Stats struct {
	Enabled    bool
	Schedule   string
	RunCount   int
	LastStatus string
	LastRun    time.Time
}

// Service updates the presence on a schedule.
type Service struct {
	log       *logger.Logger
	scheduler *scheduler.Scheduler
	presence  platform.Presence
	store     *state.Store
	cfg       Config
	now       func() time.Time

	mu         sync.Mutex
	running    bool
	lastStatus string
}

// New creates a heartbeat service. store may be nil.
func New(log *logger.Logger, sched *scheduler.Scheduler, presence platform.Presence, store *state.Store, cfg Config) *Service {
	return &Service{
		log:       log,
		scheduler: sched,
		presence:  presence,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Status renders the presence text for t.
func Status(t time.Time) string {
	return t.UTC().Format(statusLayout)
}

// Start schedules the first update after the start delay. Later updates
// follow the cron schedule.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("Heartbeat is disabled, not starting")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("heartbeat already started")
	}

	first := scheduler.NewEntry(Key, s.now().Add(s.cfg.StartDelay), func(ctx context.Context) error {
		defer func() {
			// Held across Every so Stop either sees the series or prevents it.
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.running {
				return
			}
			if _, err := s.scheduler.Every(s.cfg.Schedule, Key, s.beat); err != nil {
				s.log.Error("Failed to schedule heartbeat", zap.Error(err))
			}
		}()
		return s.beat(ctx)
	})
	if err := s.scheduler.Add(first); err != nil {
		return fmt.Errorf("scheduling heartbeat: %w", err)
	}
	s.running = true

	s.log.Info("Starting heartbeat",
		zap.String("schedule", s.cfg.Schedule),
		zap.Duration("start_delay", s.cfg.StartDelay),
	)
	return nil
}

// Stop removes pending heartbeat entries.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	for s.scheduler.RemoveFunc(Key) {
	}
	s.running = false
	s.log.Info("Heartbeat stopped")
	return nil
}

// TriggerNow runs one update immediately.
func (s *Service) TriggerNow(ctx context.Context) error {
	s.log.Info("Manual heartbeat trigger")
	return s.beat(ctx)
}

// Stats returns the heartbeat statistics.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	stats := Stats{
		Enabled:    s.cfg.Enabled,
		Schedule:   s.cfg.Schedule,
		LastStatus: s.lastStatus,
	}
	s.mu.Unlock()

	if s.store != nil {
		stats.RunCount, _ = s.store.Counter(ctx, counterRuns)
		stats.LastRun, _, _ = s.store.LastStamp(ctx, stampLastRun)
	}
	return stats
}

func (s *Service) beat(ctx context.Context) error {
	now := s.now()
	status := Status(now)
	if err := s.presence.SetWatching(ctx, status); err != nil {
		return fmt.Errorf("setting presence: %w", err)
	}

	s.mu.Lock()
	s.lastStatus = status
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	runs, err := s.store.Increment(ctx, counterRuns)
	if err != nil {
		return fmt.Errorf("counting heartbeat: %w", err)
	}
	if err := s.store.Stamp(ctx, stampLastRun, now); err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}

	s.log.Debug("Heartbeat", zap.String("status", status), zap.Int("runs", runs))
	return nil
}
