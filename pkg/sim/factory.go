package sim

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rt-scheduler/pkg/policy"
	"rt-scheduler/pkg/rules"
	"rt-scheduler/pkg/task"
)

var (
	// ErrUnknownAlgorithm indicates an algorithm name outside the accepted
	// set.
	ErrUnknownAlgorithm = errors.New("sim: unknown algorithm")
	// ErrMissingServerConfig indicates a server-based algorithm was requested
	// without a server configuration.
	ErrMissingServerConfig = errors.New("sim: server algorithm requires a server config")
)

// Algorithms lists the accepted algorithm names in display order.
func Algorithms() []string {
	return []string{
		"RMS", "DMS", "EDF", "LLF",
		"BACKGROUND",
		"POLLING", "DEFERRABLE", "SPORADIC",
	}
}

// New assembles the scheduler for the named algorithm. Pure policy names run
// the periodic scheduler and ignore the server config; BACKGROUND and the
// server disciplines fix the policy to RMS. Names are case-insensitive.
//
//nolint:ireturn // factory intentionally hides the scheduler implementations
func New(
	algName string,
	tasks []task.PeriodicTask,
	aperiodic []task.AperiodicJob,
	serverCfg *task.ServerCfg,
	simTime int,
	ruleCfg rules.Config,
	logger *zap.Logger,
) (Scheduler, error) {
	name := strings.ToUpper(strings.TrimSpace(algName))

	switch name {
	case "RMS", "DMS", "EDF", "LLF":
		pol, err := policy.New(name)
		if err != nil {
			return nil, err
		}

		return NewPeriodic(tasks, simTime, pol, logger), nil

	case "BACKGROUND":
		return NewBackground(tasks, aperiodic, simTime, policy.RMS{}, logger), nil

	case "POLLING", "DEFERRABLE", "SPORADIC":
		if serverCfg == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingServerConfig, name)
		}

		switch name {
		case "POLLING":
			return NewPollingServer(
				tasks, aperiodic, *serverCfg, simTime,
				policy.RMS{}, ruleCfg.Polling, logger,
			), nil
		case "DEFERRABLE":
			return NewDeferrableServer(
				tasks, aperiodic, *serverCfg, simTime,
				policy.RMS{}, ruleCfg.Deferrable, logger,
			), nil
		default:
			return NewSporadicServer(
				tasks, aperiodic, *serverCfg, simTime,
				policy.RMS{}, ruleCfg.Sporadic, logger,
			), nil
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algName)
	}
}
