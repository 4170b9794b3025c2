// Package ingest loads the CSV exports a run works from.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Haunes/ComparendosTransito/internal/aggregate"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

// MaxConcurrentLoads bounds how many exports are read at once.
const MaxConcurrentLoads = 4

// Input is today's export of one source.
type Input struct {
	Source source.Source
	Path   string
}

// ParseInput reads a SOURCE=path argument.
func ParseInput(arg string) (Input, error) {
	name, path, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return Input{}, fmt.Errorf("parsing input %q: expected SOURCE=path", arg)
	}
	src, err := source.Parse(name)
	if err != nil {
		return Input{}, fmt.Errorf("parsing input %q: %w", arg, err)
	}
	return Input{Source: src, Path: strings.TrimSpace(path)}, nil
}

type Loader interface {
	Load(ctx context.Context, in Input) ([]citation.Record, error)
}

// CSVLoader reads per-source exports from disk.
type CSVLoader struct{}

func (CSVLoader) Load(ctx context.Context, in Input) ([]citation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := LoadRecords(in.Path, in.Source)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", in.Source, err)
	}
	return records, nil
}

// LoadRecords reads one CSV file. Rows without a source column are
// attributed to fallback.
func LoadRecords(path string, fallback source.Source) ([]citation.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := tabular.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	records, err := tabular.Records(t, fallback)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// LoadSnapshot reads yesterday's export, in either the per-source or the
// aggregated shape, and aggregates it.
func LoadSnapshot(path string, priority []source.Source) (citation.Snapshot, error) {
	records, err := LoadRecords(path, "")
	if err != nil {
		return citation.Snapshot{}, err
	}
	return aggregate.Aggregate(records, priority), nil
}

// LoadResult collects what every source delivered. A failing source does
// not stop the others; it is listed in Failed with its error in Errors.
type LoadResult struct {
	Records []citation.Record
	Loaded  []source.Source
	Failed  []source.Source
	Errors  []error
}

// Err joins every load error, or returns nil.
func (r LoadResult) Err() error {
	return errors.Join(r.Errors...)
}

// LoadAll reads every input concurrently with the default loader.
func LoadAll(ctx context.Context, inputs []Input, logger *zap.Logger) LoadResult {
	return LoadAllWith(ctx, CSVLoader{}, inputs, logger)
}

// LoadAllWith reads every input concurrently. Results keep input order.
func LoadAllWith(ctx context.Context, loader Loader, inputs []Input, logger *zap.Logger) LoadResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		mu       sync.Mutex
		loaded   = make([][]citation.Record, len(inputs))
		failures = make([]error, len(inputs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentLoads)
	for i, in := range inputs {
		g.Go(func() error {
			records, err := loader.Load(gctx, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[i] = err
				logger.Warn("source failed to load", zap.String("source", string(in.Source)), zap.Error(err))
				return nil
			}
			loaded[i] = records
			logger.Debug("source loaded", zap.String("source", string(in.Source)), zap.Int("records", len(records)))
			return nil
		})
	}
	_ = g.Wait()

	var result LoadResult
	for i, in := range inputs {
		if failures[i] != nil {
			result.Failed = append(result.Failed, in.Source)
			result.Errors = append(result.Errors, failures[i])
			continue
		}
		result.Loaded = append(result.Loaded, in.Source)
		result.Records = append(result.Records, loaded[i]...)
	}
	return result
}
