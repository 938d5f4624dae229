// Package main wires the rtsched CLI entrypoint.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"rt-scheduler/internal/buildinfo"
	"rt-scheduler/pkg/input"
	"rt-scheduler/pkg/rules"
	"rt-scheduler/pkg/sim"
	"rt-scheduler/pkg/task"
)

const (
	defaultLogLevel = "info"

	exitCodeSuccess = 0
	exitCodeError   = 1
)

var (
	errMissingInput     = errors.New("input file path is required")
	errMissingAlgorithm = errors.New("algorithm name is required")
	errInvalidLogLevel  = errors.New("invalid log level")
	errNoPeriodicTasks  = errors.New("no periodic tasks found in input file")
)

func main() {
	code := run(os.Args[1:], defaultRunDeps(), os.Stdout, os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

type runDeps struct {
	newLogger func(level string) (*zap.Logger, error)
}

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger: newLogger,
	}
}

func run(args []string, deps runDeps, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeError
	}

	logger, err := deps.newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to configure logger: %v\n", err)

		return exitCodeError
	}

	defer func() {
		_ = logger.Sync()
	}()

	info := buildinfo.Current()
	logger.Info("starting rtsched",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
		zap.String("inputPath", opts.inputPath),
		zap.String("algorithm", opts.algorithm),
	)

	parsed, err := input.ParseFile(opts.inputPath)
	if err != nil {
		logger.Error("failed to parse input file", zap.Error(err))
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeError
	}

	if len(parsed.Tasks) == 0 {
		logger.Error("input file declares no periodic tasks",
			zap.String("inputPath", opts.inputPath),
		)
		fmt.Fprintf(stderr, "%v\n", errNoPeriodicTasks)

		return exitCodeError
	}

	simTime := opts.simTime
	if simTime <= 0 {
		simTime = task.Hyperperiod(parsed.Tasks)
		logger.Info("defaulting simulation horizon to hyperperiod",
			zap.Int("simTime", simTime),
		)
	}

	ruleCfg := rules.Load(opts.rulesPath, logger)
	logger.Debug("resolved server rules", zap.String("rules", ruleCfg.String()))

	scheduler, err := sim.New(
		opts.algorithm,
		parsed.Tasks,
		parsed.Aperiodic,
		parsed.Server,
		simTime,
		ruleCfg,
		logger,
	)
	if err != nil {
		logger.Error("failed to build scheduler", zap.Error(err))
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeError
	}

	scheduler.Run()

	logger.Info("simulation complete",
		zap.Int("simTime", simTime),
		zap.Int("finished", len(scheduler.Finished())),
		zap.Int("missed", len(scheduler.Missed())),
	)

	fmt.Fprint(stdout, scheduler.SummaryText())

	return exitCodeSuccess
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	cfg := zap.NewProductionConfig()

	err := cfg.Level.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger, nil
}

type options struct {
	inputPath string
	algorithm string
	simTime   int
	rulesPath string
	logLevel  string
}

func parseArgs(args []string) (options, error) {
	var opts options

	flagSet := flag.NewFlagSet("rtsched", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(
		&opts.inputPath,
		"input",
		"",
		"Path to the task-set input file",
	)
	flagSet.StringVar(
		&opts.algorithm,
		"alg",
		"",
		"Scheduling algorithm ("+strings.Join(sim.Algorithms(), ", ")+")",
	)
	flagSet.IntVar(
		&opts.simTime,
		"sim",
		0,
		"Simulation horizon in ticks (0 = hyperperiod of the task set)",
	)
	flagSet.StringVar(
		&opts.rulesPath,
		"rules",
		"",
		"Optional path to the server-rule configuration file",
	)
	flagSet.StringVar(
		&opts.logLevel,
		"log-level",
		defaultLogLevel,
		"Structured log level (debug, info, warn, error)",
	)

	err := flagSet.Parse(args)
	if err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	opts.inputPath = strings.TrimSpace(opts.inputPath)
	if opts.inputPath == "" {
		return options{}, errMissingInput
	}

	opts.algorithm = strings.TrimSpace(opts.algorithm)
	if opts.algorithm == "" {
		return options{}, errMissingAlgorithm
	}

	opts.rulesPath = strings.TrimSpace(opts.rulesPath)

	opts.logLevel = strings.TrimSpace(opts.logLevel)
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}

	return opts, nil
}
