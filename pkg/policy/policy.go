// Package policy implements the pluggable priority policies that rank ready
// jobs. A smaller key wins the processor for the current tick.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"rt-scheduler/pkg/task"
)

// Policy computes a scalar priority key for a ready job at the given tick.
// Keys are recomputed every tick because some policies depend on the clock.
type Policy interface {
	Key(job *task.PeriodicJob, now int) float64
	Name() string
}

// ErrUnknownPolicy indicates a policy name outside the supported set.
var ErrUnknownPolicy = errors.New("policy: unknown policy")

// laxityFloor bounds the LLF key from below so a badly overrun job cannot
// underflow comparisons.
const laxityFloor = -1_000_000

// RMS ranks jobs by their task period: rate-monotonic scheduling.
type RMS struct{}

// Key implements Policy.
func (RMS) Key(job *task.PeriodicJob, _ int) float64 {
	return float64(job.Task.Period)
}

// Name implements Policy.
func (RMS) Name() string { return "RMS" }

// DMS ranks jobs by their task's relative deadline: deadline-monotonic
// scheduling.
type DMS struct{}

// Key implements Policy.
func (DMS) Key(job *task.PeriodicJob, _ int) float64 {
	return float64(job.Task.Deadline)
}

// Name implements Policy.
func (DMS) Name() string { return "DMS" }

// EDF ranks jobs by absolute deadline: earliest deadline first.
type EDF struct{}

// Key implements Policy.
func (EDF) Key(job *task.PeriodicJob, _ int) float64 {
	return float64(job.AbsDeadline)
}

// Name implements Policy.
func (EDF) Name() string { return "EDF" }

// LLF ranks jobs by laxity: the slack left before the job must run
// continuously to meet its deadline.
type LLF struct{}

// Key implements Policy.
func (LLF) Key(job *task.PeriodicJob, now int) float64 {
	laxity := job.Laxity(now)
	if laxity < laxityFloor {
		laxity = laxityFloor
	}

	return float64(laxity)
}

// Name implements Policy.
func (LLF) Name() string { return "LLF" }

// New resolves a case-insensitive policy name to its implementation.
//
//nolint:ireturn // factory intentionally hides the policy implementations
func New(name string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RMS":
		return RMS{}, nil
	case "DMS":
		return DMS{}, nil
	case "EDF":
		return EDF{}, nil
	case "LLF":
		return LLF{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
