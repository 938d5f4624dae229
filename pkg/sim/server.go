package sim

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"rt-scheduler/pkg/policy"
	"rt-scheduler/pkg/rules"
	"rt-scheduler/pkg/task"
)

// budgetDiscipline is the variation point between the server schedulers: how
// budget replenishes over time and what consuming one unit entails.
type budgetDiscipline interface {
	updateBudget(s *ServerScheduler, t int)
	consumeBudget(s *ServerScheduler, t int)
}

// ServerScheduler runs aperiodic work through a bandwidth server. The server
// is injected into the task set as a synthetic periodic task, so the active
// policy ranks it exactly like a real task; the budget check is the only
// extra interlock when its job is selected.
type ServerScheduler struct {
	*PeriodicScheduler

	cfg         task.ServerCfg
	serverTask  *task.PeriodicTask
	queue       aperiodicQueue
	budget      int
	periodStart int
	discipline  budgetDiscipline
}

func newServer(
	tasks []task.PeriodicTask,
	aperiodic []task.AperiodicJob,
	cfg task.ServerCfg,
	simTime int,
	pol policy.Policy,
	logger *zap.Logger,
	discipline budgetDiscipline,
	initialBudget int,
) *ServerScheduler {
	withServer := make([]task.PeriodicTask, 0, len(tasks)+1)
	withServer = append(withServer, tasks...)
	withServer = append(withServer, cfg.Task())

	base := NewPeriodic(withServer, simTime, pol, logger)

	return &ServerScheduler{
		PeriodicScheduler: base,
		cfg:               cfg,
		serverTask:        &base.tasks[len(base.tasks)-1],
		queue:             newAperiodicQueue(aperiodic),
		budget:            initialBudget,
		discipline:        discipline,
	}
}

// NewPollingServer constructs a polling-server scheduler. Budget is granted
// at period boundaries and forfeited if unused within the period.
func NewPollingServer(
	tasks []task.PeriodicTask,
	aperiodic []task.AperiodicJob,
	cfg task.ServerCfg,
	simTime int,
	pol policy.Policy,
	rule rules.Polling,
	logger *zap.Logger,
) *ServerScheduler {
	return newServer(tasks, aperiodic, cfg, simTime, pol, logger,
		&pollingDiscipline{rule: rule}, 0)
}

// NewDeferrableServer constructs a deferrable-server scheduler. Budget starts
// full and, depending on the rule, either resets at each period boundary or
// is preserved across periods capped at Q.
func NewDeferrableServer(
	tasks []task.PeriodicTask,
	aperiodic []task.AperiodicJob,
	cfg task.ServerCfg,
	simTime int,
	pol policy.Policy,
	rule rules.Deferrable,
	logger *zap.Logger,
) *ServerScheduler {
	return newServer(tasks, aperiodic, cfg, simTime, pol, logger,
		&deferrableDiscipline{rule: rule}, cfg.Q)
}

// NewSporadicServer constructs a sporadic-server scheduler. Budget starts
// full; each consumed unit schedules a future replenishment.
func NewSporadicServer(
	tasks []task.PeriodicTask,
	aperiodic []task.AperiodicJob,
	cfg task.ServerCfg,
	simTime int,
	pol policy.Policy,
	rule rules.Sporadic,
	logger *zap.Logger,
) *ServerScheduler {
	return newServer(tasks, aperiodic, cfg, simTime, pol, logger,
		&sporadicDiscipline{rule: rule}, cfg.Q)
}

// Run executes every tick of the simulation horizon.
func (s *ServerScheduler) Run() {
	for t := 0; t < s.simTime; t++ {
		s.Step(t)
	}
}

// Step advances one tick. Replenishment precedes consumption: the budget is
// updated before selection so a boundary grant is usable in the same tick.
func (s *ServerScheduler) Step(t int) {
	s.releaseJobs(t)
	s.queue.release(t)
	s.checkDeadlines(t)
	s.discipline.updateBudget(s, t)

	job := s.chooseJob(t)
	if job != nil && job.Task == s.serverTask {
		if s.budget > 0 && s.queue.head() != nil {
			s.serveAperiodic(t)

			return
		}

		// The server cannot usefully run this tick: shed its jobs and
		// reselect among the real tasks.
		s.dropReady(func(j *task.PeriodicJob) bool { return j.Task == s.serverTask })
		job = s.chooseJob(t)
	}

	if job == nil {
		s.timeline[t] = IdleLabel

		return
	}

	s.execute(t, job)
}

// serveAperiodic charges one unit of the FIFO head to the server. The
// timeline records the aperiodic job's name, not the server's.
func (s *ServerScheduler) serveAperiodic(t int) {
	aj := s.queue.head()
	aj.Remaining--
	s.discipline.consumeBudget(s, t)
	s.timeline[t] = aj.Name

	if aj.Remaining == 0 {
		s.queue.pop()
	}
}

// Budget reports the server budget remaining at the current point of the
// simulation.
func (s *ServerScheduler) Budget() int {
	return s.budget
}

// RemainingAperiodic counts the released aperiodic jobs still awaiting
// completion.
func (s *ServerScheduler) RemainingAperiodic() int {
	return len(s.queue.ready)
}

// SummaryText appends the outstanding aperiodic count to the base summary.
func (s *ServerScheduler) SummaryText() string {
	return s.PeriodicScheduler.SummaryText() +
		fmt.Sprintf("Remaining aperiodic jobs: %d\n", len(s.queue.ready))
}

// pollingDiscipline grants the full budget at each period boundary. Under the
// default rule the grant happens only when aperiodic work is already pending;
// either way unused budget is overwritten at the next boundary.
type pollingDiscipline struct {
	rule rules.Polling
}

func (d *pollingDiscipline) updateBudget(s *ServerScheduler, t int) {
	if t%s.cfg.T != 0 {
		return
	}

	s.periodStart = t

	if d.rule.BudgetIfAperiodicReady && s.queue.head() == nil {
		s.budget = 0

		return
	}

	s.budget = s.cfg.Q
}

func (d *pollingDiscipline) consumeBudget(s *ServerScheduler, _ int) {
	if s.budget > 0 {
		s.budget--
	}
}

// deferrableDiscipline preserves unused budget. The reset rule restores Q at
// every boundary; without it the budget only ever shrinks from its initial
// grant, capped at Q.
type deferrableDiscipline struct {
	rule rules.Deferrable
}

func (d *deferrableDiscipline) updateBudget(s *ServerScheduler, t int) {
	if t%s.cfg.T != 0 {
		return
	}

	s.periodStart = t

	if d.rule.ResetBudgetEachPeriod {
		s.budget = s.cfg.Q

		return
	}

	if s.budget > s.cfg.Q {
		s.budget = s.cfg.Q
	}
}

func (d *deferrableDiscipline) consumeBudget(s *ServerScheduler, _ int) {
	if s.budget > 0 {
		s.budget--
	}
}

// replenishment is a scheduled budget restoration.
type replenishment struct {
	fireTime int
	amount   int
}

// sporadicDiscipline replenishes consumed budget after a delay: each unit of
// service enqueues (t + floor(factor*T), amount).
type sporadicDiscipline struct {
	rule           rules.Sporadic
	replenishments []replenishment
}

func (d *sporadicDiscipline) updateBudget(s *ServerScheduler, t int) {
	kept := d.replenishments[:0]

	for _, r := range d.replenishments {
		if r.fireTime > t {
			kept = append(kept, r)

			continue
		}

		s.budget += r.amount
		if s.budget > s.cfg.Q {
			s.budget = s.cfg.Q
		}
	}

	d.replenishments = kept
}

func (d *sporadicDiscipline) consumeBudget(s *ServerScheduler, t int) {
	if s.budget <= 0 {
		return
	}

	s.budget--

	delay := int(math.Floor(d.rule.ReplenishDelayFactor * float64(s.cfg.T)))
	d.replenishments = append(d.replenishments, replenishment{
		fireTime: t + delay,
		amount:   d.rule.ReplenishAmount,
	})
}
