// Package input parses the line-oriented task-set format consumed by the
// simulator front-end.
//
// Each non-blank line starts with a tag: "P" declares a periodic task,
// "A" an aperiodic job and "D" the optional server configuration. A '#'
// introduces a comment running to end of line. Numeric fields accept reals
// and are rounded to the nearest integer; negative values are rejected.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"rt-scheduler/pkg/task"
)

var (
	ErrUnknownTag      = errors.New("input: unknown tag")
	ErrMalformedRecord = errors.New("input: malformed record")
	ErrBadNumber       = errors.New("input: invalid numeric field")
	ErrNegativeValue   = errors.New("input: negative value")
	ErrNonPositive     = errors.New("input: value must be positive")
	ErrDuplicateServer = errors.New("input: duplicate server config line")
)

// ParseError reports a malformed record together with its 1-based line number
// and the offending text (comments stripped).
type ParseError struct {
	Line int
	Text string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("input: line %d (%q): %v", e.Line, e.Text, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is matching.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Result bundles everything a task file can declare.
type Result struct {
	Tasks     []task.PeriodicTask
	Aperiodic []task.AperiodicJob
	Server    *task.ServerCfg
}

// ParseFile opens and parses the task file at path.
func ParseFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("input: open %s: %w", path, err)
	}

	result, parseErr := Parse(file)
	closeErr := file.Close()

	if parseErr != nil {
		return Result{}, parseErr
	}

	if closeErr != nil {
		return Result{}, fmt.Errorf("input: close %s: %w", path, closeErr)
	}

	return result, nil
}

// Parse reads the task-set format from r. Periodic tasks are auto-named
// T1, T2, ... and aperiodic jobs A1, A2, ... in declaration order.
func Parse(r io.Reader) (Result, error) {
	var result Result

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		err := parseLine(line, &result)
		if err != nil {
			return Result{}, &ParseError{Line: lineNo, Text: line, Err: err}
		}
	}

	err := scanner.Err()
	if err != nil {
		return Result{}, fmt.Errorf("input: read: %w", err)
	}

	return result, nil
}

func parseLine(line string, result *Result) error {
	fields := strings.Fields(line)
	tag := strings.ToUpper(fields[0])

	values, err := parseNumbers(fields[1:])
	if err != nil {
		return err
	}

	switch tag {
	case "P":
		return appendPeriodic(values, result)
	case "A":
		return appendAperiodic(values, result)
	case "D":
		return setServer(values, result)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, fields[0])
	}
}

func appendPeriodic(values []int, result *Result) error {
	var arrival, exec, period, deadline int

	switch len(values) {
	case 4:
		arrival, exec, period, deadline = values[0], values[1], values[2], values[3]
	case 3:
		arrival, exec, period = values[0], values[1], values[2]
		deadline = period
	case 2:
		exec, period = values[0], values[1]
		deadline = period
	default:
		return fmt.Errorf("%w: P line must be 'P r e p d', 'P r e p' or 'P e p'", ErrMalformedRecord)
	}

	if exec <= 0 || period <= 0 || deadline <= 0 {
		return fmt.Errorf("%w: execution time, period and deadline", ErrNonPositive)
	}

	name := "T" + strconv.Itoa(len(result.Tasks)+1)
	result.Tasks = append(result.Tasks, task.PeriodicTask{
		Name:     name,
		Arrival:  arrival,
		ExecTime: exec,
		Period:   period,
		Deadline: deadline,
	})

	return nil
}

func appendAperiodic(values []int, result *Result) error {
	if len(values) != 2 {
		return fmt.Errorf("%w: A line must be 'A r e'", ErrMalformedRecord)
	}

	name := "A" + strconv.Itoa(len(result.Aperiodic)+1)
	result.Aperiodic = append(result.Aperiodic, task.AperiodicJob{
		Name:        name,
		ReleaseTime: values[0],
		ExecTime:    values[1],
		Remaining:   values[1],
	})

	return nil
}

func setServer(values []int, result *Result) error {
	if result.Server != nil {
		return ErrDuplicateServer
	}

	if len(values) != 3 {
		return fmt.Errorf("%w: D line must be 'D Q T D'", ErrMalformedRecord)
	}

	if values[1] <= 0 || values[2] <= 0 {
		return fmt.Errorf("%w: server period and deadline", ErrNonPositive)
	}

	result.Server = &task.ServerCfg{Q: values[0], T: values[1], D: values[2]}

	return nil
}

// parseNumbers accepts integer or real tokens, rounding reals to the nearest
// integer. Internal time is always integer.
func parseNumbers(fields []string) ([]int, error) {
	values := make([]int, 0, len(fields))

	for _, field := range fields {
		parsed, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return nil, fmt.Errorf("%w: %q", ErrBadNumber, field)
		}

		if parsed < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNegativeValue, field)
		}

		values = append(values, int(math.Round(parsed)))
	}

	return values, nil
}

func stripComment(raw string) string {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		raw = raw[:idx]
	}

	return strings.TrimSpace(raw)
}
