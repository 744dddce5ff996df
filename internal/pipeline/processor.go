// Package pipeline runs the churn simulation stages in order over one
// in-memory table.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"

	"churnsim/internal/config"
	"churnsim/internal/dataset"
	"churnsim/internal/export"
	"churnsim/internal/features"
	"churnsim/internal/logger"
	"churnsim/internal/risk"
	"churnsim/pkg/metadata"
)

// Stage names, in execution order.
const (
	StageLoad        = "load"
	StageValidate    = "validate"
	StageModify      = "modify"
	StageStandardize = "standardize"
	StageScore       = "score"
	StageSimulate    = "simulate"
	StageSummarize   = "summarize"
	StageFinalize    = "finalize"
	StageExport      = "export"
	StageReport      = "report"
	StageMetrics     = "metrics"
	StageCommit      = "commit"
)

// StageError names the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options carries per-run settings that are not part of the configuration file.
type Options struct {
	// RunID defaults to a random UUID.
	RunID   string
	Version string
	Seed    uint64
}

// Result describes a completed run.
type Result struct {
	Table   dataframe.DataFrame
	Summary export.Summary
	Report  string
	RunID   string
	Seed    uint64
}

// Processor threads the table through every stage.
type Processor struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *Metrics
	modifier  *features.Modifier
	scorer    *risk.Scorer
	simulator *risk.Simulator
	opts      Options
}

// NewProcessor creates a processor. The simulator draws from a generator
// seeded with opts.Seed, so identical seeds and inputs give identical labels.
func NewProcessor(cfg *config.Config, log *logger.Logger, opts Options) *Processor {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	schema := cfg.Columns

	return &Processor{
		cfg:     cfg,
		log:     log.With("run_id", opts.RunID),
		metrics: NewMetrics(),
		modifier: features.NewModifier(
			schema,
			cfg.Features.CoveragePenalties,
			cfg.Features.NetworkBounds,
			cfg.Features.MaxAgePriceBonus,
		),
		scorer:    risk.NewScorer(schema, cfg.Risk.Weights, cfg.Risk.FemaleLabel),
		simulator: risk.NewSimulator(risk.NewRand(opts.Seed), schema.Churn),
		opts:      opts,
	}
}

// Metrics returns the metrics collected so far.
func (p *Processor) Metrics() *Metrics {
	return p.metrics
}

// Run loads the input, transforms it and writes every output. Outputs are
// staged next to their targets and only moved into place once every stage,
// side files included, has succeeded.
func (p *Processor) Run() (_ *Result, err error) {
	start := time.Now()

	p.log.Info("pipeline started", "input", p.cfg.Input.Path, "output", p.cfg.Output.Path, "seed", p.opts.Seed)

	df, err := p.stage(StageLoad, dataframe.DataFrame{}, func(dataframe.DataFrame) (dataframe.DataFrame, error) {
		return dataset.Load(p.cfg.Input.Path, p.cfg.Input.Separator, p.cfg.Columns)
	})
	if err != nil {
		return nil, err
	}

	final, summary, err := p.Transform(df)
	if err != nil {
		return nil, err
	}

	var (
		dataFile  *export.PendingFile
		sideFiles []*export.PendingFile
	)

	defer func() {
		if err == nil {
			return
		}

		for _, f := range append(sideFiles, dataFile) {
			if f == nil {
				continue
			}

			if rmErr := f.Discard(); rmErr != nil {
				p.log.Warn("failed to remove output", "path", f.Path(), "error", rmErr)
			}
		}
	}()

	if _, err = p.stage(StageExport, final, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		var stageErr error
		dataFile, stageErr = export.StageCSV(df, p.cfg.Output.Path)

		return df, stageErr
	}); err != nil {
		return nil, err
	}

	report := export.RenderReport(summary)

	if p.cfg.Output.ReportPath != "" {
		if _, err = p.stage(StageReport, final, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			f, stageErr := p.stageReport(report, summary, dataFile.Name())
			if f != nil {
				sideFiles = append(sideFiles, f)
			}

			return df, stageErr
		}); err != nil {
			return nil, err
		}
	}

	p.metrics.MarkSuccess(time.Now())

	if p.cfg.Output.MetricsPath != "" {
		if _, err = p.stage(StageMetrics, final, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			f, stageErr := export.StageFile(p.cfg.Output.MetricsPath, p.metrics.WriteText)
			if f != nil {
				sideFiles = append(sideFiles, f)
			}

			return df, stageErr
		}); err != nil {
			return nil, err
		}
	}

	// The dataset goes last so it never exists without its side files.
	if _, err = p.stage(StageCommit, final, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		for _, f := range append(sideFiles, dataFile) {
			if commitErr := f.Commit(); commitErr != nil {
				return df, commitErr
			}
		}

		return df, nil
	}); err != nil {
		return nil, err
	}

	p.log.Info("pipeline completed", "rows", final.Nrow(), "duration", time.Since(start))

	return &Result{
		Table:   final,
		Summary: summary,
		Report:  report,
		RunID:   p.opts.RunID,
		Seed:    p.opts.Seed,
	}, nil
}

// Transform runs every in-memory stage on a flattened table and returns the
// export-ready table with its verification summary.
func (p *Processor) Transform(df dataframe.DataFrame) (dataframe.DataFrame, export.Summary, error) {
	schema := p.cfg.Columns

	steps := []struct {
		name string
		fn   func(dataframe.DataFrame) (dataframe.DataFrame, error)
	}{
		{StageValidate, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			return df, dataset.Validate(df, schema)
		}},
		{StageModify, p.modifier.Modify},
		{StageStandardize, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			return features.Standardize(df, features.ScaleSpecs(schema))
		}},
		{StageScore, p.scorer.Score},
		{StageSimulate, p.simulator.Simulate},
	}

	var err error

	for _, step := range steps {
		if df, err = p.stage(step.name, df, step.fn); err != nil {
			return df, export.Summary{}, err
		}
	}

	var summary export.Summary

	_, err = p.stage(StageSummarize, df, func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		s, buildErr := export.BuildSummary(df, schema)
		summary = s

		return df, buildErr
	})
	if err != nil {
		return df, export.Summary{}, err
	}

	p.metrics.ObserveSummary(summary)

	final, err := p.stage(StageFinalize, df, export.DropAuxiliary)
	if err != nil {
		return df, export.Summary{}, err
	}

	return final, summary, nil
}

func (p *Processor) stage(
	name string,
	df dataframe.DataFrame,
	fn func(dataframe.DataFrame) (dataframe.DataFrame, error),
) (dataframe.DataFrame, error) {
	start := time.Now()

	p.log.Debug("stage started", "stage", name)

	out, err := fn(df)
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed, err)

	if err != nil {
		p.log.Error("stage failed", "stage", name, "error", err)
		return df, &StageError{Stage: name, Err: err}
	}

	p.log.Info("stage completed", "stage", name, "rows", out.Nrow(), "columns", out.Ncol(), "duration", elapsed)

	return out, nil
}

// stageReport signs the report with the hashes of the input and of the
// staged dataset and stages it for the report path.
func (p *Processor) stageReport(report string, summary export.Summary, dataPath string) (*export.PendingFile, error) {
	inputHash, err := metadata.HashFile(p.cfg.Input.Path)
	if err != nil {
		return nil, err
	}

	outputHash, err := metadata.HashFile(dataPath)
	if err != nil {
		return nil, err
	}

	signed := metadata.Sign(report, metadata.Metadata{
		RunID:      p.opts.RunID,
		Version:    p.opts.Version,
		Seed:       p.opts.Seed,
		Rows:       summary.Rows,
		InputHash:  inputHash,
		OutputHash: outputHash,
	})

	return export.StageFile(p.cfg.Output.ReportPath, func(w io.Writer) error {
		if _, err := io.WriteString(w, signed+"\n"); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return nil
	})
}
