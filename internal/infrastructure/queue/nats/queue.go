// Package nats carries document ingestion events between the API and
// the processing workers over core NATS.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/resilience"
)

const (
	connectTimeout = 2 * time.Second
	reconnectWait  = 2 * time.Second
	maxReconnects  = 60

	// All workers join one queue group so each ingestion event is
	// processed exactly once regardless of replica count.
	workerQueueGroup = "course-assistant-workers"
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

// New connects to NATS. executor wraps publishes with retry and
// circuit breaking; pass nil to publish directly.
func New(url, subject string, executor *resilience.Executor) (*Queue, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("course-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{conn: conn, subject: subject, executor: executor}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, event domain.DocumentIngested) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode ingestion event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

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

// SubscribeDocumentIngested consumes ingestion events until ctx is
// cancelled, then drains the subscription. Events that fail to decode
// are logged and dropped; redelivering them would fail the same way.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, domain.DocumentIngested) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var event domain.DocumentIngested
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("malformed ingestion event", "subject", q.subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("ingestion handler failed", "document_id", event.DocumentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
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
