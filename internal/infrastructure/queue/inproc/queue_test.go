package inproc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPublishDispatchesToSubscriber(t *testing.T) {
	q := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.SubscribeJobSubmitted(ctx, func(_ context.Context, jobID string) error {
			received <- jobID
			return nil
		})
	}()

	waitForSubscriber(t, q)
	if err := q.PublishJobSubmitted(context.Background(), "job-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case jobID := <-received:
		if jobID != "job-1" {
			t.Fatalf("expected job-1, got %s", jobID)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not return after cancellation")
	}
}

func TestPublishWithoutSubscriberFails(t *testing.T) {
	q := New(nil)
	if err := q.PublishJobSubmitted(context.Background(), "job-1"); err == nil {
		t.Fatal("expected an error when nothing is subscribed")
	}
}

func TestPublishSkipsJobAlreadyInFlight(t *testing.T) {
	q := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})
	go func() {
		_ = q.SubscribeJobSubmitted(ctx, func(_ context.Context, _ string) error {
			mu.Lock()
			calls++
			mu.Unlock()
			<-release
			return nil
		})
	}()

	waitForSubscriber(t, q)
	if err := q.PublishJobSubmitted(context.Background(), "job-1"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	waitForCalls(t, &mu, &calls, 1)

	// Second publish while the first dispatch is still running.
	if err := q.PublishJobSubmitted(context.Background(), "job-1"); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	close(release)
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single dispatch, got %d", calls)
	}
}

func TestSecondSubscriberRejected(t *testing.T) {
	q := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = q.SubscribeJobSubmitted(ctx, func(context.Context, string) error { return nil })
	}()
	waitForSubscriber(t, q)

	err := q.SubscribeJobSubmitted(ctx, func(context.Context, string) error { return nil })
	if err == nil {
		t.Fatal("expected the second subscription to fail")
	}
}

func TestHandlerErrorIsSwallowed(t *testing.T) {
	q := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = q.SubscribeJobSubmitted(ctx, func(context.Context, string) error {
			return errors.New("processing failed")
		})
	}()
	waitForSubscriber(t, q)

	if err := q.PublishJobSubmitted(context.Background(), "job-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	q.Close()
}

func waitForSubscriber(t *testing.T, q *Queue) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		q.mu.Lock()
		ready := q.handler != nil
		q.mu.Unlock()
		if ready {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("subscriber never registered")
}

func waitForCalls(t *testing.T, mu *sync.Mutex, calls *int, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := *calls
		mu.Unlock()
		if got >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("handler calls never reached %d", want)
}
