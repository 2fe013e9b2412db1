// Package plcabi builds the C headers and native modules of the units of a
// project. Build is the entry point; the stages live under internal/.
package plcabi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"plcabi/internal/diag"
	"plcabi/internal/pipeline"
	"plcabi/internal/project"
)

var (
	// ErrNoUnits is returned when the project lists no unit files.
	ErrNoUnits = errors.New("no units to build")
	// ErrUnitsFailed is wrapped by the error of a build where some unit
	// produced no artifacts.
	ErrUnitsFailed = errors.New("units failed")
)

// BuildOptions controls how a build reports.
type BuildOptions struct {
	Color diag.ColorMode
	// JSON writes the batch report instead of the diagnostic listing.
	JSON bool
	// Clean empties the artifact cache before building.
	Clean          bool
	MaxDiagnostics int
	// Logger replaces the pipeline logger when set.
	Logger *zap.Logger
}

// Summary counts the outcome of a build.
type Summary struct {
	Units  int
	Failed int
	Cached int
}

// Build compiles every unit of the project found from dir upwards and
// writes the diagnostics of each unit to w. Units that fail do not stop the
// others; the returned error wraps ErrUnitsFailed when any did.
func Build(ctx context.Context, dir string, w io.Writer, opts BuildOptions) (Summary, error) {
	if opts.Logger != nil {
		pipeline.SetLogger(opts.Logger)
	}
	cfg, err := project.Discover(dir)
	if err != nil {
		return Summary{}, err
	}
	paths, err := cfg.UnitFiles()
	if err != nil {
		return Summary{}, err
	}
	if len(paths) == 0 {
		return Summary{}, ErrNoUnits
	}

	popts, err := pipeline.FromConfig(cfg)
	if err != nil {
		return Summary{}, err
	}
	popts.MaxDiagnostics = opts.MaxDiagnostics
	if opts.Clean && popts.Cache != nil {
		if err := popts.Cache.DropAll(); err != nil {
			return Summary{}, &pipeline.CacheError{Err: err}
		}
	}

	results, err := pipeline.CompileBatch(ctx, paths, popts)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Units: len(results)}
	for _, r := range results {
		if r.Failed() {
			sum.Failed++
		}
		if r.Cached {
			sum.Cached++
		}
	}

	if opts.JSON {
		err = pipeline.WriteReport(w, results)
	} else {
		err = report(w, results, opts.Color)
	}
	if err != nil {
		return sum, err
	}
	if sum.Failed > 0 {
		return sum, fmt.Errorf("%w: %d of %d", ErrUnitsFailed, sum.Failed, sum.Units)
	}
	return sum, nil
}

func report(w io.Writer, results []*pipeline.Result, mode diag.ColorMode) error {
	for _, r := range results {
		if r.Bag.Len() == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s:\n", r.Source); err != nil {
			return err
		}
		if err := diag.Format(w, r.Bag.Items(), diag.FormatOptions{Color: mode, IncludeNotes: true}); err != nil {
			return err
		}
	}
	return nil
}
