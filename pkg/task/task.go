// Package task defines the workload model shared by every scheduler variant:
// periodic task definitions, the job instances released from them, aperiodic
// arrivals, and the bandwidth-server configuration.
package task

import "strconv"

// PeriodicTask describes a recurring workload source. Instances are released
// at Arrival, Arrival+Period, Arrival+2*Period and so on. Tasks are immutable
// once handed to a scheduler.
type PeriodicTask struct {
	Name     string
	Arrival  int
	ExecTime int
	Period   int
	Deadline int
}

// PeriodicJob is a single release of a periodic task. Remaining counts the
// work still owed; it must reach zero for the job to complete. Jobs hold a
// non-owning reference to their task, which outlives them.
type PeriodicJob struct {
	Task        *PeriodicTask
	ReleaseTime int
	Remaining   int
	AbsDeadline int
	ID          string
}

// NewPeriodicJob releases a job of t at the given time. The job id is
// "<taskName>@<releaseTime>" and is unique over a run.
func NewPeriodicJob(t *PeriodicTask, release int) *PeriodicJob {
	return &PeriodicJob{
		Task:        t,
		ReleaseTime: release,
		Remaining:   t.ExecTime,
		AbsDeadline: release + t.Deadline,
		ID:          t.Name + "@" + strconv.Itoa(release),
	}
}

// Laxity returns the slack before the job must start executing to still meet
// its absolute deadline.
func (j *PeriodicJob) Laxity(now int) int {
	return j.AbsDeadline - now - j.Remaining
}

// AperiodicJob is a one-shot arrival with no deadline.
type AperiodicJob struct {
	Name        string
	ReleaseTime int
	ExecTime    int
	Remaining   int
}

// ServerCfg holds the bandwidth-server parameters: budget capacity Q, server
// period T and relative deadline D.
type ServerCfg struct {
	Q int
	T int
	D int
}

// ServerTaskName labels the synthetic periodic task that represents a
// bandwidth server in the task set.
const ServerTaskName = "S"

// Task returns the synthetic periodic task a server competes with. It is
// released at time zero with execution time Q, period T and deadline D, so the
// active priority policy ranks the server exactly like a real task.
func (c ServerCfg) Task() PeriodicTask {
	return PeriodicTask{
		Name:     ServerTaskName,
		Arrival:  0,
		ExecTime: c.Q,
		Period:   c.T,
		Deadline: c.D,
	}
}

// Hyperperiod returns the least common multiple of all task periods, the
// natural default simulation horizon. An empty task set yields 1.
func Hyperperiod(tasks []PeriodicTask) int {
	h := 1
	for i := range tasks {
		h = lcm(h, tasks[i].Period)
	}

	return h
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
