package policy

import (
	"errors"
	"testing"

	"rt-scheduler/pkg/task"
)

func testJob(t *testing.T) *task.PeriodicJob {
	t.Helper()

	tk := &task.PeriodicTask{Name: "T1", Arrival: 0, ExecTime: 3, Period: 8, Deadline: 6}

	return task.NewPeriodicJob(tk, 4)
}

func TestKeys(t *testing.T) {
	t.Parallel()

	job := testJob(t)

	if got := (RMS{}).Key(job, 5); got != 8 {
		t.Fatalf("unexpected RMS key: got %g want %g", got, 8.0)
	}

	if got := (DMS{}).Key(job, 5); got != 6 {
		t.Fatalf("unexpected DMS key: got %g want %g", got, 6.0)
	}

	if got := (EDF{}).Key(job, 5); got != 10 {
		t.Fatalf("unexpected EDF key: got %g want %g", got, 10.0)
	}

	// laxity = absDeadline - now - remaining = 10 - 5 - 3
	if got := (LLF{}).Key(job, 5); got != 2 {
		t.Fatalf("unexpected LLF key: got %g want %g", got, 2.0)
	}
}

func TestLLFClampsOverrunLaxity(t *testing.T) {
	t.Parallel()

	job := testJob(t)

	if got := (LLF{}).Key(job, 3_000_000); got != -1_000_000 {
		t.Fatalf("unexpected clamped LLF key: got %g want %g", got, -1_000_000.0)
	}
}

func TestNewResolvesNamesCaseInsensitively(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "RMS", want: "RMS"},
		{input: "rms", want: "RMS"},
		{input: " dms ", want: "DMS"},
		{input: "Edf", want: "EDF"},
		{input: "llf", want: "LLF"},
	}

	for _, tc := range tests {
		pol, err := New(tc.input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.input, err)
		}

		if pol.Name() != tc.want {
			t.Fatalf("unexpected policy for %q: got %s want %s", tc.input, pol.Name(), tc.want)
		}
	}
}

func TestNewRejectsUnknownName(t *testing.T) {
	t.Parallel()

	_, err := New("FIFO")
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}
