// Package inproc is a single-process MessageQueue used in development and
// tests, where running a NATS server would be overkill. Published job IDs are
// dispatched straight to the subscribed handler on a fresh goroutine.
package inproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type Queue struct {
	logger *slog.Logger

	mu       sync.Mutex
	handler  func(context.Context, string) error
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// PublishJobSubmitted hands the job to the subscribed handler asynchronously.
// A job already being handled is not dispatched again, mirroring the
// work-queue retention the broker-backed driver gets from JetStream.
func (q *Queue) PublishJobSubmitted(ctx context.Context, jobID string) error {
	q.mu.Lock()
	handler := q.handler
	if handler == nil {
		q.mu.Unlock()
		return fmt.Errorf("inproc publish: no subscriber for job %s", jobID)
	}
	if _, busy := q.inflight[jobID]; busy {
		q.mu.Unlock()
		q.logger.Debug("job already in flight, skipping dispatch", "job_id", jobID)
		return nil
	}
	q.inflight[jobID] = struct{}{}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		defer func() {
			q.mu.Lock()
			delete(q.inflight, jobID)
			q.mu.Unlock()
		}()

		if err := handler(context.WithoutCancel(ctx), jobID); err != nil {
			q.logger.Error("worker handler error", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

// SubscribeJobSubmitted registers the handler and blocks until ctx is
// cancelled, then waits for in-flight dispatches to finish.
func (q *Queue) SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	q.mu.Lock()
	if q.handler != nil {
		q.mu.Unlock()
		return fmt.Errorf("inproc subscribe: handler already registered")
	}
	q.handler = handler
	q.mu.Unlock()

	<-ctx.Done()

	q.mu.Lock()
	q.handler = nil
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

func (q *Queue) Close() {
	q.wg.Wait()
}
