// Package sim implements the discrete-time scheduling engine: the periodic
// scheduler, the background scheduler, the bandwidth-server variants and the
// factory that assembles them.
//
// A simulation is a tight integer loop. Within a tick the phase order is
// fixed: release, aperiodic release, deadline check, server-budget update,
// selection, execution. All run state is owned by the scheduler instance;
// nothing mutates outside a step and the engine is deterministic.
package sim

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rt-scheduler/pkg/policy"
	"rt-scheduler/pkg/task"
)

// IdleLabel marks a tick in which nothing executed.
const IdleLabel = "IDLE"

// Scheduler is the engine contract exposed to callers. Run drives the clock
// from 0 to the simulation horizon; the remaining methods are read-only.
type Scheduler interface {
	Run()
	Timeline() []string
	SummaryText() string
	Finished() []*task.PeriodicJob
	Missed() []*task.PeriodicJob
}

// PeriodicScheduler simulates a uniprocessor running periodic tasks under a
// priority policy.
type PeriodicScheduler struct {
	tasks   []task.PeriodicTask
	simTime int
	policy  policy.Policy
	logger  *zap.Logger

	ready    []*task.PeriodicJob
	finished []*task.PeriodicJob
	missed   []*task.PeriodicJob
	timeline []string
}

// NewPeriodic constructs a periodic scheduler over its own copy of the task
// set. A nil logger disables diagnostics.
func NewPeriodic(
	tasks []task.PeriodicTask,
	simTime int,
	pol policy.Policy,
	logger *zap.Logger,
) *PeriodicScheduler {
	if simTime < 0 {
		simTime = 0
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	owned := make([]task.PeriodicTask, len(tasks))
	copy(owned, tasks)

	timeline := make([]string, simTime)
	for i := range timeline {
		timeline[i] = IdleLabel
	}

	return &PeriodicScheduler{
		tasks:    owned,
		simTime:  simTime,
		policy:   pol,
		logger:   logger,
		timeline: timeline,
	}
}

// Run executes every tick of the simulation horizon.
func (s *PeriodicScheduler) Run() {
	for t := 0; t < s.simTime; t++ {
		s.Step(t)
	}
}

// Step advances the simulation by one tick: release, deadline check,
// selection, one unit of work.
func (s *PeriodicScheduler) Step(t int) {
	s.releaseJobs(t)
	s.checkDeadlines(t)

	job := s.chooseJob(t)
	if job == nil {
		s.timeline[t] = IdleLabel

		return
	}

	s.execute(t, job)
}

// releaseJobs appends a fresh job for every task whose release pattern hits
// the current tick.
func (s *PeriodicScheduler) releaseJobs(t int) {
	for i := range s.tasks {
		tk := &s.tasks[i]
		if t < tk.Arrival {
			continue
		}

		if (t-tk.Arrival)%tk.Period == 0 {
			s.ready = append(s.ready, task.NewPeriodicJob(tk, t))
		}
	}
}

// checkDeadlines moves overdue jobs to the missed list. A job whose deadline
// equals the current tick is still live; the comparison is strictly greater.
func (s *PeriodicScheduler) checkDeadlines(t int) {
	kept := s.ready[:0]

	for _, job := range s.ready {
		if t > job.AbsDeadline && job.Remaining > 0 {
			s.missed = append(s.missed, job)
			s.logger.Debug("deadline missed",
				zap.String("jobId", job.ID),
				zap.Int("absDeadline", job.AbsDeadline),
				zap.Int("tick", t),
			)

			continue
		}

		kept = append(kept, job)
	}

	s.ready = kept
}

// chooseJob returns the ready job with the smallest policy key. Ties fall to
// the job inserted into the ready set first; job ids are unique per release,
// so no further tie-break is reachable.
func (s *PeriodicScheduler) chooseJob(t int) *task.PeriodicJob {
	if len(s.ready) == 0 {
		return nil
	}

	best := s.ready[0]
	bestKey := s.policy.Key(best, t)

	for _, job := range s.ready[1:] {
		key := s.policy.Key(job, t)
		if key < bestKey {
			best = job
			bestKey = key
		}
	}

	return best
}

// execute charges one unit of work to job and completes it when no work
// remains.
func (s *PeriodicScheduler) execute(t int, job *task.PeriodicJob) {
	job.Remaining--
	s.timeline[t] = job.Task.Name

	if job.Remaining == 0 {
		s.finished = append(s.finished, job)
		s.dropReady(func(j *task.PeriodicJob) bool { return j.ID == job.ID })
	}
}

// dropReady removes every ready job matching drop, preserving insertion
// order of the survivors.
func (s *PeriodicScheduler) dropReady(drop func(*task.PeriodicJob) bool) {
	kept := s.ready[:0]

	for _, job := range s.ready {
		if !drop(job) {
			kept = append(kept, job)
		}
	}

	s.ready = kept
}

// Timeline returns a copy of the per-tick execution labels.
func (s *PeriodicScheduler) Timeline() []string {
	out := make([]string, len(s.timeline))
	copy(out, s.timeline)

	return out
}

// Finished returns the completed jobs in completion order.
func (s *PeriodicScheduler) Finished() []*task.PeriodicJob {
	out := make([]*task.PeriodicJob, len(s.finished))
	copy(out, s.finished)

	return out
}

// Missed returns the jobs whose deadlines passed with work remaining.
func (s *PeriodicScheduler) Missed() []*task.PeriodicJob {
	out := make([]*task.PeriodicJob, len(s.missed))
	copy(out, s.missed)

	return out
}

// PolicyName reports the active priority policy.
func (s *PeriodicScheduler) PolicyName() string {
	return s.policy.Name()
}

// SummaryText renders the run outcome: per-tick timeline, finished and
// missed counts, missed job ids with their absolute deadlines, and a compact
// one-line gantt.
func (s *PeriodicScheduler) SummaryText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Periodic Scheduler (%s) ===\n", s.policy.Name())
	b.WriteString("Timeline (time: task):\n")

	for t, label := range s.timeline {
		fmt.Fprintf(&b, "%d : %s\n", t, label)
	}

	fmt.Fprintf(&b, "\nFinished jobs: %d\n", len(s.finished))
	fmt.Fprintf(&b, "Missed deadlines: %d\n", len(s.missed))

	if len(s.missed) > 0 {
		b.WriteString("Missed jobs:\n")

		for _, job := range s.missed {
			fmt.Fprintf(&b, "  %s (deadline %d)\n", job.ID, job.AbsDeadline)
		}
	}

	b.WriteString("\nGantt-like:\n")

	for _, label := range s.timeline {
		b.WriteByte(ganttByte(label))
	}

	b.WriteByte('\n')

	return b.String()
}

// ganttByte compresses a timeline label to one character: '_' for idle, the
// second character of the label otherwise (or the first for one-character
// labels, such as the server).
func ganttByte(label string) byte {
	if label == IdleLabel {
		return '_'
	}

	if len(label) > 1 {
		return label[1]
	}

	return label[0]
}
