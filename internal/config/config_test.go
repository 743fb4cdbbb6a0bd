package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"NATS_SUBJECT", "API_RATE_LIMIT_RPS", "API_BACKPRESSURE_MAX_WAIT", "AUTO_MIGRATE", "PUBLISH_BREAKER_FAILURE_RATIO"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.NATSSubject != "audits.completed" {
		t.Fatalf("expected default subject audits.completed, got %q", cfg.NATSSubject)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected default rps 50, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIBackpressureMaxWait != 250*time.Millisecond {
		t.Fatalf("expected default backpressure wait 250ms, got %v", cfg.APIBackpressureMaxWait)
	}
	if !cfg.AutoMigrate {
		t.Fatalf("expected auto migrate enabled by default")
	}
	if cfg.PublishBreakerFailureRatio != 0.5 {
		t.Fatalf("expected default failure ratio 0.5, got %v", cfg.PublishBreakerFailureRatio)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "hse.audits.completed")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_BACKPRESSURE_MAX_WAIT", "1s")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("API_MAX_IN_FLIGHT", "8")

	cfg := Load()
	if cfg.NATSSubject != "hse.audits.completed" {
		t.Fatalf("expected subject override, got %q", cfg.NATSSubject)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIBackpressureMaxWait != time.Second {
		t.Fatalf("expected 1s wait, got %v", cfg.APIBackpressureMaxWait)
	}
	if cfg.AutoMigrate {
		t.Fatalf("expected auto migrate disabled")
	}
	if cfg.APIMaxInFlight != 8 {
		t.Fatalf("expected max in flight 8, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("API_RATE_LIMIT_BURST", "many")
	t.Setenv("SHUTDOWN_TIMEOUT", "-5s")

	cfg := Load()
	if cfg.APIRateLimitBurst != 100 {
		t.Fatalf("expected fallback burst 100, got %d", cfg.APIRateLimitBurst)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected fallback shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}
