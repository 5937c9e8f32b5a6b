package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "car_logs.db" {
		t.Fatalf("database defaults = %+v", cfg.Database)
	}
	if cfg.Billing.RatePerHour != 500 {
		t.Fatalf("rate per hour = %d, want 500", cfg.Billing.RatePerHour)
	}
	if cfg.Entry.Cooldown != 5*time.Minute {
		t.Fatalf("entry cooldown = %s, want 5m", cfg.Entry.Cooldown)
	}
	if cfg.Exit.Cooldown != 0 {
		t.Fatalf("exit cooldown = %s, want 0", cfg.Exit.Cooldown)
	}
	if cfg.Entry.GateDwell != 2*time.Second || cfg.Exit.GateDwell != 15*time.Second {
		t.Fatalf("gate dwells = %s/%s, want 2s/15s", cfg.Entry.GateDwell, cfg.Exit.GateDwell)
	}
	if cfg.Payment.ReadyTimeout != 5*time.Second || cfg.Payment.ConfirmAttempts != 3 {
		t.Fatalf("payment defaults = %+v", cfg.Payment)
	}
	// Confirm bound: 3 attempts x 3s + 2 x 500ms inter-attempt = 10s.
	total := time.Duration(cfg.Payment.ConfirmAttempts)*cfg.Payment.ConfirmTimeout +
		time.Duration(cfg.Payment.ConfirmAttempts-1)*cfg.Payment.RetryDelay
	if total != 10*time.Second {
		t.Fatalf("confirm bound = %s, want 10s", total)
	}
	if cfg.Entry.WindowSize != 3 || cfg.Entry.TriggerDistance != 50 {
		t.Fatalf("lane defaults = %+v", cfg.Entry)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
billing:
  rate_per_hour: 1000
entry:
  cooldown: 10m
  port:
    name: /dev/ttyUSB0
payment:
  confirm_attempts: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if cfg.Billing.RatePerHour != 1000 {
		t.Fatalf("rate per hour = %d, want 1000", cfg.Billing.RatePerHour)
	}
	if cfg.Entry.Cooldown != 10*time.Minute {
		t.Fatalf("entry cooldown = %s, want 10m", cfg.Entry.Cooldown)
	}
	if cfg.Entry.Port.Name != "/dev/ttyUSB0" {
		t.Fatalf("entry port = %q", cfg.Entry.Port.Name)
	}
	if cfg.Payment.ConfirmAttempts != 5 {
		t.Fatalf("confirm attempts = %d, want 5", cfg.Payment.ConfirmAttempts)
	}
	// Defaults still apply to everything not overridden.
	if cfg.Exit.GateDwell != 15*time.Second {
		t.Fatalf("exit dwell = %s, want default 15s", cfg.Exit.GateDwell)
	}
}
