// Package queue holds pending summary reconcile jobs.
package queue

import (
	"context"
	"sync"

	"github.com/okian/combine/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Job asks for the summary of one (event, player, drill) to be rebuilt.
type Job struct {
	EventID  string `json:"event_id"`
	PlayerID string `json:"player_id"`
	Drill    string `json:"drill"`
}

// Key identifies the summary a job rebuilds.
func (j Job) Key() string {
	return j.EventID + "/" + j.PlayerID + "/" + j.Drill
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. A job already pending is accepted without being
	// queued twice.
	Enqueue(ctx context.Context, j Job) error
	// Dequeue returns a channel of jobs, closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job
	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel and a pending set.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu      sync.RWMutex
	closed  bool
	pending map[string]struct{}
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	q.pending = make(map[string]struct{}, q.capacity)
	metrics.UpdateReconcileQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := j.Key()
	if _, dup := q.pending[key]; dup {
		return nil
	}
	select {
	case q.jobs <- j:
		q.pending[key] = struct{}{}
		metrics.UpdateReconcileQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue implements Queue. A job leaves the pending set when it is handed
// out, so a write that lands during processing queues a fresh rebuild.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case j, ok := <-q.jobs:
				if !ok {
					return
				}
				q.mu.Lock()
				delete(q.pending, j.Key())
				q.mu.Unlock()
				metrics.UpdateReconcileQueueSize(len(q.jobs))
				select {
				case out <- j:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Jobs already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
