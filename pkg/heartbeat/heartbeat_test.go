package heartbeat

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/platform/memory"
	"botcore/pkg/scheduler"
	"botcore/pkg/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type nopReporter struct{}

func (nopReporter) Report(ctx context.Context, err error, source, detail string) {}

func newTestService(t *testing.T, cfg Config) (*Service, *scheduler.Scheduler, *memory.Platform) {
	t.Helper()

	kv, err := state.OpenFile(logger.NewNop(), filepath.Join(t.TempDir(), "state.json"), 0)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	sched := scheduler.New(logger.NewNop(), nopReporter{}, 10*time.Millisecond)
	p := memory.New(platform.User{ID: "1", Username: "botcore", Bot: true})
	return New(logger.NewNop(), sched, p, state.NewStore(kv), cfg), sched, p
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatus(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := Status(time.Date(2024, 3, 9, 1, 5, 42, 0, loc))
	if got != "2024-03-08 23:05 UTC" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestTriggerNow(t *testing.T) {
	svc, _, p := newTestService(t, Config{Enabled: true, Schedule: "* * * * *"})
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.TriggerNow(ctx); err != nil {
			t.Fatalf("TriggerNow failed: %v", err)
		}
	}

	if p.Status() != "2025-01-02 03:04 UTC" {
		t.Fatalf("unexpected presence %q", p.Status())
	}
	stats := svc.Stats(ctx)
	if stats.RunCount != 2 {
		t.Fatalf("expected 2 runs, got %d", stats.RunCount)
	}
	if stats.LastStatus != "2025-01-02 03:04 UTC" {
		t.Fatalf("unexpected last status %q", stats.LastStatus)
	}
	if !stats.LastRun.Equal(fixed) {
		t.Fatalf("unexpected last run %v", stats.LastRun)
	}
}

func TestStartDisabled(t *testing.T) {
	svc, sched, _ := newTestService(t, Config{Schedule: "* * * * *"})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sched.Len() != 0 {
		t.Fatalf("disabled heartbeat scheduled %d entries", sched.Len())
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestStartRunsAfterDelayThenRecurs(t *testing.T) {
	svc, sched, p := newTestService(t, Config{
		Enabled:    true,
		Schedule:   "0 0 1 1 *",
		StartDelay: 20 * time.Millisecond,
	})
	ctx := context.Background()

	if err := sched.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	eventually(t, "first heartbeat", func() bool { return p.Status() != "" })
	eventually(t, "recurring entry", func() bool {
		entries := sched.Entries()
		return len(entries) == 1 && entries[0].Key == Key && entries[0].Due.After(time.Now())
	})

	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if sched.Len() != 0 {
		t.Fatalf("expected no entries after Stop, got %d", sched.Len())
	}
	if got := svc.Stats(ctx).RunCount; got != 1 {
		t.Fatalf("expected 1 run, got %d", got)
	}
}

type stopOnUpdate struct {
	platform.Presence
	stop func()
	once sync.Once
}

func (p *stopOnUpdate) SetWatching(ctx context.Context, status string) error {
	p.once.Do(p.stop)
	return p.Presence.SetWatching(ctx, status)
}

func TestStopDuringFirstUpdateSchedulesNothing(t *testing.T) {
	svc, sched, p := newTestService(t, Config{Enabled: true, Schedule: "* * * * *"})
	ctx := context.Background()
	svc.presence = &stopOnUpdate{
		Presence: p,
		stop: func() {
			if err := svc.Stop(ctx); err != nil {
				t.Errorf("Stop failed: %v", err)
			}
		},
	}

	if err := sched.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	eventually(t, "first heartbeat", func() bool { return svc.Stats(ctx).RunCount == 1 })
	// Stop waits for the running update to return.
	if err := sched.Stop(); err != nil {
		t.Fatalf("Failed to stop scheduler: %v", err)
	}
	if sched.Len() != 0 {
		t.Fatalf("expected no entries after Stop, got %d", sched.Len())
	}
}
