package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr() != "0.0.0.0:50051" {
		t.Fatalf("grpc addr = %q, want %q", cfg.GRPCAddr(), "0.0.0.0:50051")
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("store driver = %q, want %q", cfg.StoreDriver, StoreDriverPostgres)
	}
	if cfg.RecoveryDays != 60 {
		t.Fatalf("recovery days = %d, want 60", cfg.RecoveryDays)
	}
	if cfg.TimeZone != time.UTC {
		t.Fatalf("time zone = %v, want UTC", cfg.TimeZone)
	}
	if cfg.GRPCRequestTimeout != 10*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("timeouts = %v / %v", cfg.GRPCRequestTimeout, cfg.ShutdownTimeout)
	}
	if cfg.DatabaseAutoMigrate {
		t.Fatalf("auto migrate should default to false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DONORSLOT_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("DONORSLOT_STORE_DRIVER", "Redis")
	t.Setenv("DONORSLOT_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("DONORSLOT_BOOKING_RECOVERY_DAYS", "90")
	t.Setenv("DONORSLOT_BOOKING_TIME_ZONE", "America/Sao_Paulo")
	t.Setenv("DONORSLOT_DATABASE_AUTO_MIGRATE", "true")
	t.Setenv("DONORSLOT_REDIS_READ_TIMEOUT", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr() != "127.0.0.1:6000" {
		t.Fatalf("grpc addr = %q", cfg.GRPCAddr())
	}
	if cfg.StoreDriver != StoreDriverRedis || cfg.RedisURL != "redis://cache:6379/2" {
		t.Fatalf("store = %q %q", cfg.StoreDriver, cfg.RedisURL)
	}
	if cfg.RecoveryDays != 90 {
		t.Fatalf("recovery days = %d, want 90", cfg.RecoveryDays)
	}
	if cfg.TimeZone.String() != "America/Sao_Paulo" {
		t.Fatalf("time zone = %v", cfg.TimeZone)
	}
	if !cfg.DatabaseAutoMigrate {
		t.Fatalf("auto migrate not enabled")
	}
	if cfg.RedisReadTimeout != 750*time.Millisecond {
		t.Fatalf("redis read timeout = %v", cfg.RedisReadTimeout)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "driver", key: "DONORSLOT_STORE_DRIVER", val: "mongo"},
		{name: "recovery days", key: "DONORSLOT_BOOKING_RECOVERY_DAYS", val: "0"},
		{name: "time zone", key: "DONORSLOT_BOOKING_TIME_ZONE", val: "Mars/Olympus"},
		{name: "duration", key: "DONORSLOT_SHUTDOWN_TIMEOUT", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}
