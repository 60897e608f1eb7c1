package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/combine/internal/adapters/mq/queue"
	worker "github.com/okian/combine/internal/adapters/mq/worker"
	model "github.com/okian/combine/internal/domain/model"
	logging "github.com/okian/combine/pkg/logger"
)

func init() {
	_ = logging.Init()
}

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockRecomputer struct {
	mu    sync.Mutex
	calls []queue.Job
	fail  map[string]error
	delay time.Duration
}

func newMockRecomputer() *mockRecomputer {
	return &mockRecomputer{fail: map[string]error{}}
}

func (m *mockRecomputer) RecomputeStrict(ctx context.Context, eventID, playerID, drill string) (*model.Summary, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, queue.Job{EventID: eventID, PlayerID: playerID, Drill: drill})
	if err, ok := m.fail[playerID]; ok {
		return nil, err
	}
	return &model.Summary{EventID: eventID, PlayerID: playerID, DrillType: drill, Count: 1}, nil
}

func (m *mockRecomputer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker over a mock queue", t, func() {
		q := newMockQueue()
		r := newMockRecomputer()
		w := worker.NewInMemoryWorker(q, r, worker.WithName("w1"), worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs arrive", func() {
			q.jobs <- queue.Job{EventID: "e1", PlayerID: "p1", Drill: "agility"}
			q.jobs <- queue.Job{EventID: "e1", PlayerID: "p2", Drill: "catching"}

			convey.Convey("Then each is rebuilt", func() {
				convey.So(waitFor(func() bool { return r.callCount() == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a rebuild fails", func() {
			r.mu.Lock()
			r.fail["bad"] = errors.New("store down")
			r.mu.Unlock()
			q.jobs <- queue.Job{EventID: "e1", PlayerID: "bad", Drill: "agility"}
			q.jobs <- queue.Job{EventID: "e1", PlayerID: "p1", Drill: "agility"}

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return r.callCount() == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		r := newMockRecomputer()
		r.delay = time.Millisecond
		p := worker.NewPool(3, q, r, worker.WithLogger(logging.Nop()))
		convey.So(p.Size(), convey.ShouldEqual, 3)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		for i := range 20 {
			err := q.Enqueue(ctx, queue.Job{EventID: "e1", PlayerID: string(rune('a' + i)), Drill: "agility"})
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("When the pool shuts down", func() {
			err := p.Shutdown(context.Background())

			convey.Convey("Then queued jobs are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(r.callCount(), convey.ShouldEqual, 20)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPoolDefaultSize(t *testing.T) {
	convey.Convey("Given a pool with no worker count", t, func() {
		p := worker.NewPool(0, newMockQueue(), newMockRecomputer())
		convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
