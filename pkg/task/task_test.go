package task

import "testing"

func TestNewPeriodicJob(t *testing.T) {
	t.Parallel()

	tk := PeriodicTask{Name: "T1", Arrival: 0, ExecTime: 2, Period: 5, Deadline: 4}

	job := NewPeriodicJob(&tk, 10)

	if job.ID != "T1@10" {
		t.Fatalf("unexpected job id: got %q want %q", job.ID, "T1@10")
	}

	if job.Remaining != 2 {
		t.Fatalf("unexpected remaining: got %d want %d", job.Remaining, 2)
	}

	if job.AbsDeadline != 14 {
		t.Fatalf("unexpected absolute deadline: got %d want %d", job.AbsDeadline, 14)
	}

	if job.Task != &tk {
		t.Fatalf("job should reference its task")
	}
}

func TestLaxity(t *testing.T) {
	t.Parallel()

	tk := PeriodicTask{Name: "T1", Arrival: 0, ExecTime: 3, Period: 10, Deadline: 10}
	job := NewPeriodicJob(&tk, 0)

	if laxity := job.Laxity(0); laxity != 7 {
		t.Fatalf("unexpected laxity at release: got %d want %d", laxity, 7)
	}

	job.Remaining = 1

	if laxity := job.Laxity(8); laxity != 1 {
		t.Fatalf("unexpected laxity near deadline: got %d want %d", laxity, 1)
	}
}

func TestServerCfgTask(t *testing.T) {
	t.Parallel()

	cfg := ServerCfg{Q: 2, T: 5, D: 4}

	tk := cfg.Task()

	want := PeriodicTask{Name: ServerTaskName, Arrival: 0, ExecTime: 2, Period: 5, Deadline: 4}
	if tk != want {
		t.Fatalf("unexpected server task: got %+v want %+v", tk, want)
	}
}

func TestHyperperiod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tasks []PeriodicTask
		want  int
	}{
		{
			name: "classic set",
			tasks: []PeriodicTask{
				{Name: "T1", Period: 3},
				{Name: "T2", Period: 4},
				{Name: "T3", Period: 6},
			},
			want: 12,
		},
		{
			name:  "single task",
			tasks: []PeriodicTask{{Name: "T1", Period: 7}},
			want:  7,
		},
		{
			name:  "empty set",
			tasks: nil,
			want:  1,
		},
		{
			name: "coprime periods",
			tasks: []PeriodicTask{
				{Name: "T1", Period: 5},
				{Name: "T2", Period: 7},
			},
			want: 35,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Hyperperiod(tc.tasks); got != tc.want {
				t.Fatalf("unexpected hyperperiod: got %d want %d", got, tc.want)
			}
		})
	}
}
