package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"churnsim/internal/config"
	"churnsim/internal/logger"
	"churnsim/internal/pipeline"
	"churnsim/pkg/metadata"
)

const (
	defaultConfigPath = "configs/churnsim.yaml"

	flagConfig    = "config"
	flagInput     = "input"
	flagOutput    = "output"
	flagSeed      = "seed"
	flagReport    = "report"
	flagMetrics   = "metrics"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagPath      = "path"
	flagForce     = "force"
	flagDataset   = "dataset"
)

var (
	version = "v0.0.1-default"
	commit  = ""

	errConfigExists  = errors.New("config file already exists (use --force to overwrite)")
	errOutputHash    = errors.New("output file does not match the report")
	errMissingReport = errors.New("report path is required")
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "churnsim",
		Version:        fmt.Sprintf("%s (%s)", version, commit),
		Usage:          "Synthesize a churn dataset with a known causal ground truth",
		DefaultCommand: "run",
		Commands: []*cli.Command{
			newRunCmd(),
			newInitCmd(),
			newVerifyCmd(),
		},
	}
}

func newRunCmd() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Generate the churn dataset",
		Action: cmdRun,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file (default: " + defaultConfigPath + " when present)",
				Sources: cli.EnvVars("CHURNSIM_CONFIG"),
			},
			&cli.StringFlag{
				Name:    flagInput,
				Aliases: []string{"i"},
				Usage:   "Path to the semi-structured JSON customer records",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "Path of the generated CSV dataset",
			},
			&cli.Uint64Flag{
				Name:    flagSeed,
				Usage:   "Seed for the churn draw (default: random, logged for replay)",
				Sources: cli.EnvVars("CHURNSIM_SEED"),
			},
			&cli.StringFlag{
				Name:  flagReport,
				Usage: "Write the signed verification report to this path",
			},
			&cli.StringFlag{
				Name:  flagMetrics,
				Usage: "Write run metrics in Prometheus text format to this path",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "Log level [debug, info, warn, error]",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "Log format [text, json]",
			},
		},
	}
}

func newInitCmd() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write the default configuration file",
		Action: cmdInit,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagPath,
				Usage: "Where to write the configuration",
				Value: defaultConfigPath,
			},
			&cli.BoolFlag{
				Name:  flagForce,
				Usage: "Overwrite an existing file",
			},
		},
	}
}

func newVerifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify-report",
		Usage:     "Check the provenance block of a verification report",
		ArgsUsage: "<report.md>",
		Action:    cmdVerify,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagDataset,
				Usage: "Also check that this CSV matches the output hash recorded in the report",
			},
		},
	}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

// loadConfig reads the explicit config, the default config file when it
// exists, or the built-in defaults, then applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path := cmd.String(flagConfig)
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}

		cfg = loaded
	}

	overrides := map[string]*string{
		flagInput:     &cfg.Input.Path,
		flagOutput:    &cfg.Output.Path,
		flagReport:    &cfg.Output.ReportPath,
		flagMetrics:   &cfg.Output.MetricsPath,
		flagLogLevel:  &cfg.Logging.Level,
		flagLogFormat: &cfg.Logging.Format,
	}

	for name, field := range overrides {
		if cmd.IsSet(name) {
			*field = cmd.String(name)
		}
	}

	if cmd.IsSet(flagSeed) {
		seed := cmd.Uint64(flagSeed)
		cfg.Simulation.Seed = &seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func cmdRun(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Writer: cmd.Root().ErrWriter,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}

	log.Debug("configuration loaded", "config", cfg.String())

	seed := rand.Uint64()
	if cfg.Simulation.Seed != nil {
		seed = *cfg.Simulation.Seed
	} else {
		log.Warn("no seed configured, drew a random one", "seed", seed)
	}

	proc := pipeline.NewProcessor(cfg, log, pipeline.Options{
		Seed:    seed,
		Version: version,
	})

	res, err := proc.Run()
	if err != nil {
		return err
	}

	w := stdout(cmd)
	fmt.Fprintln(w, res.Report)
	fmt.Fprintf(w, "✅ Saved %d customers to %s (run %s, seed %d)\n",
		res.Summary.Rows, cfg.Output.Path, res.RunID, res.Seed)

	return nil
}

func cmdInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String(flagPath)

	if _, err := os.Stat(path); err == nil && !cmd.Bool(flagForce) {
		return fmt.Errorf("%w: %s", errConfigExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := config.DefaultConfig().SaveConfig(path); err != nil {
		return err
	}

	fmt.Fprintf(stdout(cmd), "⚙️  Wrote default configuration to %s\n", path)

	return nil
}

func cmdVerify(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errMissingReport
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	if _, err := metadata.Verify(string(content)); err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}

	meta, _ := metadata.Extract(string(content))

	if datasetPath := cmd.String(flagDataset); datasetPath != "" {
		hash, err := metadata.HashFile(datasetPath)
		if err != nil {
			return err
		}

		if hash != meta.OutputHash {
			return fmt.Errorf("%w: %s", errOutputHash, datasetPath)
		}
	}

	fmt.Fprintf(stdout(cmd), "✅ Report verified: run %s, seed %d, %d rows\n", meta.RunID, meta.Seed, meta.Rows)

	return nil
}
