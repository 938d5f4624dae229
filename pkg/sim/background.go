package sim

import (
	"fmt"

	"go.uber.org/zap"

	"rt-scheduler/pkg/policy"
	"rt-scheduler/pkg/task"
)

// aperiodicQueue tracks aperiodic work: jobs not yet released, and a FIFO of
// released jobs awaiting service.
type aperiodicQueue struct {
	pending []*task.AperiodicJob
	ready   []*task.AperiodicJob
}

// newAperiodicQueue copies the arrivals so reruns over the same inputs stay
// deterministic and the caller's slice is never mutated.
func newAperiodicQueue(jobs []task.AperiodicJob) aperiodicQueue {
	pending := make([]*task.AperiodicJob, 0, len(jobs))

	for _, j := range jobs {
		pending = append(pending, &task.AperiodicJob{
			Name:        j.Name,
			ReleaseTime: j.ReleaseTime,
			ExecTime:    j.ExecTime,
			Remaining:   j.ExecTime,
		})
	}

	return aperiodicQueue{pending: pending}
}

// release moves every job arriving at the current tick to the tail of the
// ready FIFO. Jobs with no work are dropped instead of queued.
func (q *aperiodicQueue) release(t int) {
	kept := q.pending[:0]

	for _, job := range q.pending {
		if job.ReleaseTime != t {
			kept = append(kept, job)

			continue
		}

		if job.Remaining > 0 {
			q.ready = append(q.ready, job)
		}
	}

	q.pending = kept
}

// head returns the next job awaiting service, or nil.
func (q *aperiodicQueue) head() *task.AperiodicJob {
	if len(q.ready) == 0 {
		return nil
	}

	return q.ready[0]
}

// pop removes the head of the ready FIFO.
func (q *aperiodicQueue) pop() {
	q.ready = q.ready[1:]
}

// BackgroundScheduler extends the periodic scheduler with background service:
// aperiodic jobs run only in ticks the periodic workload leaves idle.
// Aperiodic jobs have no deadline and cannot miss.
type BackgroundScheduler struct {
	*PeriodicScheduler

	queue aperiodicQueue
}

// NewBackground constructs a background scheduler over copies of the task set
// and the aperiodic arrivals.
func NewBackground(
	tasks []task.PeriodicTask,
	aperiodic []task.AperiodicJob,
	simTime int,
	pol policy.Policy,
	logger *zap.Logger,
) *BackgroundScheduler {
	return &BackgroundScheduler{
		PeriodicScheduler: NewPeriodic(tasks, simTime, pol, logger),
		queue:             newAperiodicQueue(aperiodic),
	}
}

// Run executes every tick of the simulation horizon.
func (b *BackgroundScheduler) Run() {
	for t := 0; t < b.simTime; t++ {
		b.Step(t)
	}
}

// Step advances one tick: periodic jobs take priority, the aperiodic FIFO
// head runs only when no periodic job is selectable.
func (b *BackgroundScheduler) Step(t int) {
	b.releaseJobs(t)
	b.queue.release(t)
	b.checkDeadlines(t)

	job := b.chooseJob(t)
	if job != nil {
		b.execute(t, job)

		return
	}

	aj := b.queue.head()
	if aj == nil {
		b.timeline[t] = IdleLabel

		return
	}

	aj.Remaining--
	b.timeline[t] = aj.Name

	if aj.Remaining == 0 {
		b.queue.pop()
	}
}

// RemainingAperiodic counts the released aperiodic jobs still awaiting
// completion.
func (b *BackgroundScheduler) RemainingAperiodic() int {
	return len(b.queue.ready)
}

// SummaryText appends the outstanding aperiodic count to the base summary.
func (b *BackgroundScheduler) SummaryText() string {
	return b.PeriodicScheduler.SummaryText() +
		fmt.Sprintf("Remaining aperiodic jobs: %d\n", len(b.queue.ready))
}
