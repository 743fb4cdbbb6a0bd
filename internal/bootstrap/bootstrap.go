package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/core/ports"
	"github.com/kirillkom/hse-audit/internal/core/usecase"
	"github.com/kirillkom/hse-audit/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/hse-audit/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hse-audit/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hse-audit/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	DB        *sql.DB
	Queue     *nats.Queue
	Audits    *postgres.AuditRepository
	Checklist *postgres.ChecklistRepository

	AuditUC      ports.AuditService
	StatisticsUC ports.StatisticsService

	closeFn func()
}

type options struct {
	observer resilience.Observer
	noQueue  bool
}

type Option func(*options)

// WithResilienceObserver reports publish retries and breaker transitions.
func WithResilienceObserver(observer resilience.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithoutQueue skips the NATS connection. Completions are then not announced.
func WithoutQueue() Option {
	return func(o *options) {
		o.noQueue = true
	}
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	audits := postgres.NewAuditRepository(db)
	checklist := postgres.NewChecklistRepository(db)

	var (
		queue  *nats.Queue
		events ports.EventPublisher
	)
	if !o.noQueue {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			QueueGroup:         cfg.NATSQueueGroup,
			ResilienceExecutor: publishExecutor(cfg, o.observer),
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		events = queue
	}

	auditUC := usecase.NewAuditUseCase(audits, checklist, events)
	statisticsUC := usecase.NewStatisticsUseCase(audits, xlsx.NewExporter())

	return &App{
		Config:    cfg,
		DB:        db,
		Queue:     queue,
		Audits:    audits,
		Checklist: checklist,

		AuditUC:      auditUC,
		StatisticsUC: statisticsUC,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

// OpenDatabase connects to Postgres, retrying while the server is still starting.
func OpenDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	executor := resilience.NewExecutor(resilience.StartupConfig(cfg.StartupRetries))
	db, err := resilience.Call(ctx, executor, "postgres.open", func(context.Context) (*sql.DB, error) {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			slog.Warn("postgres_not_ready", "error", err)
		}
		return db, err
	}, resilience.RetryAlways)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func publishExecutor(cfg config.Config, observer resilience.Observer) *resilience.Executor {
	policy := resilience.DefaultConfig()
	policy.Retry.MaxAttempts = cfg.PublishRetryMaxAttempts
	policy.Retry.InitialBackoff = cfg.PublishRetryInitialBackoff
	policy.Retry.MaxBackoff = cfg.PublishRetryMaxBackoff
	policy.Breaker.Enabled = cfg.PublishBreakerEnabled
	policy.Breaker.MinRequests = uint32(max(cfg.PublishBreakerMinRequests, 0))
	policy.Breaker.FailureRatio = cfg.PublishBreakerFailureRatio
	policy.Breaker.OpenTimeout = cfg.PublishBreakerOpenTimeout

	var opts []resilience.Option
	if observer != nil {
		opts = append(opts, resilience.WithObserver(observer))
	}
	return resilience.NewExecutor(policy, opts...)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
