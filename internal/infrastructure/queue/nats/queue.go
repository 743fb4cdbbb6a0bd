package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/infrastructure/resilience"
)

const DefaultSubject = "audits.completed"

// Queue publishes and consumes audit lifecycle events over core NATS.
type Queue struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
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
		nats.Name("hse-audit"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Queue{
		conn:     conn,
		subject:  subjectOrDefault(subject),
		group:    groupOrDefault(options.QueueGroup),
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAuditCompleted(ctx context.Context, event domain.AuditCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit completed event: %w", err)
	}

	err = q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeAuditCompleted delivers events to handler until ctx is done, then
// drains the subscription. Workers share one queue group so each event is
// handled once.
func (q *Queue) SubscribeAuditCompleted(ctx context.Context, handler func(context.Context, domain.AuditCompletedEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		handleMessage(ctx, msg, handler)
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

func handleMessage(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.AuditCompletedEvent) error) {
	event, err := decodeEvent(msg.Data)
	if err != nil {
		slog.Error("audit_event_decode_failed", "subject", msg.Subject, "error", err)
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := handler(handlerCtx, event); err != nil {
		slog.Error("audit_event_handler_failed", "audit_id", event.AuditID, "error", err)
	}
}

func decodeEvent(data []byte) (domain.AuditCompletedEvent, error) {
	var event domain.AuditCompletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.AuditCompletedEvent{}, fmt.Errorf("unmarshal audit completed event: %w", err)
	}
	if strings.TrimSpace(event.AuditID) == "" {
		return domain.AuditCompletedEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode event", errors.New("audit_id is empty"))
	}
	return event, nil
}

func subjectOrDefault(subject string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	return DefaultSubject
}

func groupOrDefault(group string) string {
	if g := strings.TrimSpace(group); g != "" {
		return g
	}
	return "audit-workers"
}
