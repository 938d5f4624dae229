// Package rules loads the optional server-rule configuration that drives the
// aperiodic-server variants. A missing or malformed file degrades to the
// documented defaults with a warning; it never aborts a simulation.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Polling configures the polling-server replenishment rule.
type Polling struct {
	// BudgetIfAperiodicReady grants budget at a period boundary only when at
	// least one aperiodic job is pending; otherwise the budget is forfeited.
	BudgetIfAperiodicReady bool
}

// Deferrable configures the deferrable-server replenishment rule.
type Deferrable struct {
	// ResetBudgetEachPeriod restores the full budget at every period
	// boundary. When false, unused budget carries over, capped at Q.
	ResetBudgetEachPeriod bool
}

// Sporadic configures the sporadic-server replenishment rule.
type Sporadic struct {
	// ReplenishAmount is queued for replenishment per unit consumed.
	ReplenishAmount int
	// ReplenishDelayFactor delays each replenishment by floor(factor*T)
	// ticks after the consumption that scheduled it.
	ReplenishDelayFactor float64
}

// Config bundles the rule slices for all server disciplines.
type Config struct {
	Polling    Polling
	Deferrable Deferrable
	Sporadic   Sporadic
}

// Default returns the documented rule defaults. They reproduce the classical
// textbook behaviour of each server.
func Default() Config {
	return Config{
		Polling:    Polling{BudgetIfAperiodicReady: true},
		Deferrable: Deferrable{ResetBudgetEachPeriod: true},
		Sporadic:   Sporadic{ReplenishAmount: 1, ReplenishDelayFactor: 1.0},
	}
}

// The file format nests rule objects under a "servers" key. Pointer fields
// distinguish "absent" from "explicitly set" so partial files merge over the
// defaults. The documented format is JSON; the YAML decoder accepts it
// unchanged since YAML is a JSON superset.
type fileConfig struct {
	Servers serversFileConfig `yaml:"servers"`
}

type serversFileConfig struct {
	Polling    pollingFileConfig    `yaml:"POLLING"`
	Deferrable deferrableFileConfig `yaml:"DEFERRABLE"`
	Sporadic   sporadicFileConfig   `yaml:"SPORADIC"`
}

type pollingFileConfig struct {
	BudgetIfAperiodicReady *bool `yaml:"budget_if_aperiodic_ready"`
}

type deferrableFileConfig struct {
	ResetBudgetEachPeriod *bool `yaml:"reset_budget_each_period"`
}

type sporadicFileConfig struct {
	ReplenishAmount      *int     `yaml:"replenish_amount"`
	ReplenishDelayFactor *float64 `yaml:"replenish_delay_factor"`
}

// Load reads the rule file at path and merges it over the defaults. An empty
// path returns the defaults silently; a missing or undecodable file returns
// the defaults after logging a warning through logger.
func Load(path string, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Default()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return cfg
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("server rule file missing, using defaults",
				zap.String("path", trimmed),
			)
		} else {
			logger.Warn("server rule file unreadable, using defaults",
				zap.String("path", trimmed),
				zap.Error(err),
			)
		}

		return cfg
	}

	var fileCfg fileConfig

	err = yaml.Unmarshal(data, &fileCfg)
	if err != nil {
		logger.Warn("server rule file undecodable, using defaults",
			zap.String("path", trimmed),
			zap.Error(err),
		)

		return cfg
	}

	mergeFileConfig(&cfg, fileCfg, logger)

	return cfg
}

func mergeFileConfig(cfg *Config, fileCfg fileConfig, logger *zap.Logger) {
	servers := fileCfg.Servers

	if servers.Polling.BudgetIfAperiodicReady != nil {
		cfg.Polling.BudgetIfAperiodicReady = *servers.Polling.BudgetIfAperiodicReady
	}

	if servers.Deferrable.ResetBudgetEachPeriod != nil {
		cfg.Deferrable.ResetBudgetEachPeriod = *servers.Deferrable.ResetBudgetEachPeriod
	}

	if servers.Sporadic.ReplenishAmount != nil {
		amount := *servers.Sporadic.ReplenishAmount
		if amount <= 0 {
			logger.Warn("ignoring non-positive sporadic replenish amount",
				zap.Int("replenishAmount", amount),
			)
		} else {
			cfg.Sporadic.ReplenishAmount = amount
		}
	}

	if servers.Sporadic.ReplenishDelayFactor != nil {
		factor := *servers.Sporadic.ReplenishDelayFactor
		if factor < 0 {
			logger.Warn("ignoring negative sporadic replenish delay factor",
				zap.Float64("replenishDelayFactor", factor),
			)
		} else {
			cfg.Sporadic.ReplenishDelayFactor = factor
		}
	}
}

// String renders the effective rule set for diagnostics.
func (c Config) String() string {
	return fmt.Sprintf(
		"polling.budget_if_aperiodic_ready=%t deferrable.reset_budget_each_period=%t sporadic.replenish_amount=%d sporadic.replenish_delay_factor=%g",
		c.Polling.BudgetIfAperiodicReady,
		c.Deferrable.ResetBudgetEachPeriod,
		c.Sporadic.ReplenishAmount,
		c.Sporadic.ReplenishDelayFactor,
	)
}
