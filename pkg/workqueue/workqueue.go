// Package workqueue runs queued command work on a fixed pool of workers,
// off the message ingestion path.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"botcore/pkg/errreport"
	"botcore/pkg/logger"
)

// Source tags reports raised by queue workers.
const Source = "workqueue"

// Defaults used when New receives zero values.
const (
	DefaultWorkers  = 1
	DefaultIdleWait = 500 * time.Millisecond
)

// ErrStarted is returned by Start on a running queue.
var ErrStarted = errors.New("work queue already started")

// Task is a unit of queued work. Release, when set, runs exactly once after
// Run returns or panics, or when the task is removed before it ran.
type Task struct {
	ID      string
	Name    string
	Run     func(ctx context.Context) error
	Release func()
}

type item struct {
	task    Task
	release func()
}

// Queue is a FIFO shared by its workers under one mutex. Idle workers wait on
// a not-empty signal, with IdleWait as a fallback poll.
type Queue struct {
	log      *logger.Logger
	reporter errreport.Reporter
	workers  int
	idleWait time.Duration

	mu     sync.Mutex
	items  []*item
	notify chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a queue with the given worker count and idle fallback.
func New(log *logger.Logger, reporter errreport.Reporter, workers int, idleWait time.Duration) *Queue {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if idleWait <= 0 {
		idleWait = DefaultIdleWait
	}
	return &Queue{
		log:      log,
		reporter: reporter,
		workers:  workers,
		idleWait: idleWait,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends t and returns its id. An empty ID is filled with a UUID.
func (q *Queue) Enqueue(t Task) (string, error) {
	if t.Run == nil {
		return "", fmt.Errorf("task %q has no run function", t.Name)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	it := &item{task: t, release: func() {}}
	if t.Release != nil {
		it.release = sync.OnceFunc(t.Release)
	}

	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()

	q.signal()
	return t.ID, nil
}

// Remove drops a task that has not been dequeued yet and releases it.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	var removed *item
	for i, it := range q.items {
		if it.task.ID == id {
			removed = it
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	q.mu.Unlock()

	if removed == nil {
		return false
	}
	removed.release()
	return true
}

// Len returns the number of tasks waiting for a worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Start launches the workers.
func (q *Queue) Start() error {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	if q.cancel != nil {
		return ErrStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	q.cancel = cancel
	q.group = g

	q.log.Info("Starting work queue", zap.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			q.work(gctx, worker)
			return nil
		})
	}
	return nil
}

// Stop cancels the workers, waits for running tasks and releases tasks that
// never ran.
func (q *Queue) Stop() error {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	if q.cancel == nil {
		return nil
	}
	q.cancel()
	err := q.group.Wait()
	q.cancel = nil
	q.group = nil

	q.mu.Lock()
	dropped := q.items
	q.items = nil
	q.mu.Unlock()
	for _, it := range dropped {
		it.release()
	}

	q.log.Info("Work queue stopped", zap.Int("dropped", len(dropped)))
	return err
}

func (q *Queue) work(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}
		if it := q.pop(); it != nil {
			q.execute(ctx, worker, it)
			continue
		}

		timer := time.NewTimer(q.idleWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-q.notify:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (q *Queue) pop() *item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	it := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return it
}

func (q *Queue) execute(ctx context.Context, worker int, it *item) {
	defer it.release()
	defer func() {
		if err := errreport.Recovered(recover()); err != nil {
			q.reporter.Report(ctx, err, Source, it.task.Name)
		}
	}()

	q.log.Debug("Running task",
		zap.String("id", it.task.ID),
		zap.String("name", it.task.Name),
		zap.Int("worker", worker),
	)
	if err := it.task.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		q.reporter.Report(ctx, err, Source, it.task.Name)
	}
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
