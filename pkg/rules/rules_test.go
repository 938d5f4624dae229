package rules

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.WarnLevel)

	return zap.New(core), logs
}

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.json")

	err := os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return path
}

func TestDefaultMatchesDocumentedRules(t *testing.T) {
	t.Parallel()

	cfg := Default()

	if !cfg.Polling.BudgetIfAperiodicReady {
		t.Fatalf("polling default should require pending aperiodic work")
	}

	if !cfg.Deferrable.ResetBudgetEachPeriod {
		t.Fatalf("deferrable default should reset each period")
	}

	if cfg.Sporadic.ReplenishAmount != 1 {
		t.Fatalf("unexpected sporadic amount: got %d want %d", cfg.Sporadic.ReplenishAmount, 1)
	}

	if cfg.Sporadic.ReplenishDelayFactor != 1.0 {
		t.Fatalf("unexpected sporadic delay factor: got %g want %g", cfg.Sporadic.ReplenishDelayFactor, 1.0)
	}
}

func TestLoadEmptyPathReturnsDefaultsSilently(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger(t)

	cfg := Load("", logger)

	if cfg != Default() {
		t.Fatalf("unexpected config: got %+v want defaults", cfg)
	}

	if logs.Len() != 0 {
		t.Fatalf("expected no warnings, got %d", logs.Len())
	}
}

func TestLoadMissingFileWarnsAndDefaults(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger(t)

	cfg := Load(filepath.Join(t.TempDir(), "absent.json"), logger)

	if cfg != Default() {
		t.Fatalf("unexpected config: got %+v want defaults", cfg)
	}

	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

func TestLoadMalformedFileWarnsAndDefaults(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger(t)
	path := writeRuleFile(t, `{ "servers": [not json`)

	cfg := Load(path, logger)

	if cfg != Default() {
		t.Fatalf("unexpected config: got %+v want defaults", cfg)
	}

	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

func TestLoadPartialFileMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, `{ "servers": { "POLLING": { "budget_if_aperiodic_ready": false } } }`)

	cfg := Load(path, zap.NewNop())

	if cfg.Polling.BudgetIfAperiodicReady {
		t.Fatalf("polling flag should be overridden to false")
	}

	if !cfg.Deferrable.ResetBudgetEachPeriod {
		t.Fatalf("unset deferrable flag should keep its default")
	}

	if cfg.Sporadic.ReplenishAmount != 1 {
		t.Fatalf("unset sporadic amount should keep its default")
	}
}

func TestLoadFullFile(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, `{
  "servers": {
    "POLLING":    { "budget_if_aperiodic_ready": false },
    "DEFERRABLE": { "reset_budget_each_period": false },
    "SPORADIC":   { "replenish_amount": 2, "replenish_delay_factor": 0.5 }
  }
}`)

	cfg := Load(path, zap.NewNop())

	if cfg.Polling.BudgetIfAperiodicReady {
		t.Fatalf("unexpected polling flag")
	}

	if cfg.Deferrable.ResetBudgetEachPeriod {
		t.Fatalf("unexpected deferrable flag")
	}

	if cfg.Sporadic.ReplenishAmount != 2 {
		t.Fatalf("unexpected sporadic amount: got %d want %d", cfg.Sporadic.ReplenishAmount, 2)
	}

	if cfg.Sporadic.ReplenishDelayFactor != 0.5 {
		t.Fatalf("unexpected sporadic delay factor: got %g want %g", cfg.Sporadic.ReplenishDelayFactor, 0.5)
	}
}

func TestLoadRejectsInvalidSporadicValues(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger(t)
	path := writeRuleFile(t, `{
  "servers": {
    "SPORADIC": { "replenish_amount": 0, "replenish_delay_factor": -1.0 }
  }
}`)

	cfg := Load(path, logger)

	if cfg.Sporadic.ReplenishAmount != 1 {
		t.Fatalf("invalid amount should keep the default, got %d", cfg.Sporadic.ReplenishAmount)
	}

	if cfg.Sporadic.ReplenishDelayFactor != 1.0 {
		t.Fatalf("invalid factor should keep the default, got %g", cfg.Sporadic.ReplenishDelayFactor)
	}

	if logs.Len() != 2 {
		t.Fatalf("expected two warnings, got %d", logs.Len())
	}
}
