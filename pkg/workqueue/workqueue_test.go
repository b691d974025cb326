package workqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"botcore/pkg/errreport"
	"botcore/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	errs    []error
	sources []string
}

func (r *recorder) Report(ctx context.Context, err error, source, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.sources = append(r.sources, source)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func TestQueueRunsTasksInOrder(t *testing.T) {
	q := New(logger.NewNop(), &recorder{}, 1, time.Second)
	done := make(chan string, 3)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := q.Enqueue(Task{Name: name, Run: func(ctx context.Context) error {
			done <- name
			return nil
		}}); err != nil {
			t.Fatalf("enqueue %s: %v", name, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued tasks, got %d", q.Len())
	}

	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop()

	for _, want := range []string{"a", "b", "c"} {
		select {
		case got := <-done:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestQueueWakesIdleWorker(t *testing.T) {
	q := New(logger.NewNop(), &recorder{}, 2, time.Hour)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop()

	time.Sleep(10 * time.Millisecond)
	done := make(chan struct{})
	if _, err := q.Enqueue(Task{Name: "late", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("idle worker was not woken")
	}
}

func TestReleaseRunsExactlyOnce(t *testing.T) {
	rec := &recorder{}
	q := New(logger.NewNop(), rec, 1, 5*time.Millisecond)

	var releases atomic.Int32
	finished := make(chan struct{}, 3)
	release := func() {
		releases.Add(1)
		finished <- struct{}{}
	}

	tasks := []Task{
		{Name: "ok", Run: func(ctx context.Context) error { return nil }, Release: release},
		{Name: "fails", Run: func(ctx context.Context) error { return errors.New("nope") }, Release: release},
		{Name: "panics", Run: func(ctx context.Context) error { panic("kaboom") }, Release: release},
	}
	for _, task := range tasks {
		if _, err := q.Enqueue(task); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for range tasks {
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for release")
		}
	}
	if err := q.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := releases.Load(); got != 3 {
		t.Fatalf("expected 3 releases, got %d", got)
	}
	if rec.count() != 2 {
		t.Fatalf("expected 2 reports, got %d", rec.count())
	}
	var perr *errreport.PanicError
	if !errors.As(rec.errs[1], &perr) || rec.sources[1] != Source {
		t.Fatalf("expected the panic to be reported from %s, got %v", Source, rec.errs[1])
	}
}

func TestRemoveBeforeDequeueReleases(t *testing.T) {
	q := New(logger.NewNop(), &recorder{}, 1, time.Second)

	released := 0
	id, err := q.Enqueue(Task{
		Name:    "cancel me",
		Run:     func(ctx context.Context) error { t.Error("removed task ran"); return nil },
		Release: func() { released++ },
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a generated id")
	}

	if !q.Remove(id) {
		t.Fatalf("expected removal")
	}
	if q.Remove(id) {
		t.Fatalf("expected second removal to fail")
	}
	if released != 1 || q.Len() != 0 {
		t.Fatalf("expected one release and an empty queue, got %d/%d", released, q.Len())
	}
}

func TestStopReleasesQueuedTasks(t *testing.T) {
	q := New(logger.NewNop(), &recorder{}, 1, time.Second)

	block := make(chan struct{})
	started := make(chan struct{})
	released := make(chan string, 2)
	if _, err := q.Enqueue(Task{
		Name: "blocking",
		Run: func(ctx context.Context) error {
			close(started)
			select {
			case <-block:
			case <-ctx.Done():
			}
			return ctx.Err()
		},
		Release: func() { released <- "blocking" },
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(Task{
		Name:    "waiting",
		Run:     func(ctx context.Context) error { return nil },
		Release: func() { released <- "waiting" },
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started
	if err := q.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	close(block)

	got := map[string]bool{<-released: true, <-released: true}
	if !got["blocking"] || !got["waiting"] {
		t.Fatalf("expected both tasks released, got %v", got)
	}
}

func TestEnqueueRequiresRun(t *testing.T) {
	q := New(logger.NewNop(), &recorder{}, 0, 0)
	if _, err := q.Enqueue(Task{Name: "empty"}); err == nil {
		t.Fatalf("expected error for a task without Run")
	}
	if q.workers != DefaultWorkers || q.idleWait != DefaultIdleWait {
		t.Fatalf("expected defaults, got %d/%s", q.workers, q.idleWait)
	}
}
