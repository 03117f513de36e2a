// Package nats carries job-submitted events over NATS JetStream. Delivery is
// at-least-once: the worker acks only after the processor returns, and naks
// so the server redelivers after backoff when the processor faults.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/resilience"
)

const (
	workerQueueGroup = "doc-workers"
	durableName      = "doc-workers"
)

type Queue struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	stream   string
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	AckWait              time.Duration
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, stream, subject string) (*Queue, error) {
	return NewWithOptions(url, stream, subject, Options{})
}

func NewWithOptions(url, stream, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("calaim-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.AddStream(&nats.StreamConfig{
		Name:      stream,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
	}); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		conn.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &Queue{
		conn:     conn,
		js:       js,
		stream:   stream,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishJobSubmitted(ctx context.Context, jobID string) error {
	call := func(_ context.Context) error {
		if _, err := q.js.Publish(q.subject, []byte(jobID)); err != nil {
			return fmt.Errorf("jetstream publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeJobSubmitted consumes until ctx is cancelled. The handler contract
// follows the processor's: nil means the job reached a durable terminal state
// (ack), an error means the attempt must run again (nak, server-side backoff).
func (q *Queue) SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	ackWait := 5 * time.Minute

	sub, err := q.js.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		jobID := string(msg.Data)
		if err := handler(handlerCtx, jobID); err != nil {
			log.Printf("worker handler error for job=%s, redelivering: %v", jobID, err)
			if nakErr := msg.Nak(); nakErr != nil {
				log.Printf("nak job=%s: %v", jobID, nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("ack job=%s: %v", jobID, ackErr)
		}
	}, nats.ManualAck(), nats.AckWait(ackWait), nats.Durable(durableName))
	if err != nil {
		return fmt.Errorf("jetstream subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
