package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Haunes/ComparendosTransito/internal/aggregate"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/config"
	"github.com/Haunes/ComparendosTransito/internal/ingest"
	"github.com/Haunes/ComparendosTransito/internal/memory"
	"github.com/Haunes/ComparendosTransito/internal/reconcile"
	"github.com/Haunes/ComparendosTransito/internal/report"
	"github.com/Haunes/ComparendosTransito/internal/source"
	"github.com/Haunes/ComparendosTransito/internal/store"
	"github.com/Haunes/ComparendosTransito/internal/tabular"
)

var (
	flagToday     []string
	flagYesterday string
	flagMemory    string
	flagDown      []string
	flagGrace     int
	flagDate      string
	flagBackfill  bool
	flagOut       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile today's exports against yesterday",
	Long: `Load today's per-source exports, compare them with yesterday's snapshot and write
the new, removed, retained, modified and suppressed tables to --out.

Without --yesterday the previous snapshots stored by earlier runs are used. Without
--memory the stored ledger is used. Sources that fail to load are treated as down.`,
	Example: `  comparendos run --today SIMIT=simit.csv --today FENIX=fenix.csv --yesterday ayer.csv
  comparendos run --today SIMIT=simit.csv --down FENIX --backfill --out salida/`,
	RunE: runReconcile,
}

func init() {
	runCmd.Flags().StringArrayVar(&flagToday, "today", nil, "today's export of one source as SOURCE=path.csv (repeatable)")
	runCmd.Flags().StringVar(&flagYesterday, "yesterday", "", "yesterday's export, per-source or aggregated")
	runCmd.Flags().StringVar(&flagMemory, "memory", "", "memory CSV to use instead of the stored ledger")
	runCmd.Flags().StringSliceVar(&flagDown, "down", nil, "sources that are down today")
	runCmd.Flags().IntVar(&flagGrace, "grace", 0, "grace days for down sources (default from config)")
	runCmd.Flags().StringVar(&flagDate, "date", "", "run date as yyyy-mm-dd (default today)")
	runCmd.Flags().BoolVar(&flagBackfill, "backfill", false, "re-emit the previous records of down sources")
	runCmd.Flags().StringVar(&flagOut, "out", "salida", "directory for the output tables")
	_ = runCmd.MarkFlagRequired("today")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	runDate, err := parseRunDate(flagDate, time.Now())
	if err != nil {
		return err
	}

	inputs := make([]ingest.Input, 0, len(flagToday))
	for _, arg := range flagToday {
		in, err := ingest.ParseInput(arg)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	down, err := parseSources(flagDown)
	if err != nil {
		return fmt.Errorf("invalid --down value: %w", err)
	}

	grace := cfg.GraceDays
	if cmd.Flags().Changed("grace") {
		if flagGrace < 0 {
			return fmt.Errorf("invalid --grace value: %d", flagGrace)
		}
		grace = flagGrace
	}
	backfill := cfg.BackfillDownSources || flagBackfill

	cal, err := cfg.Calendar()
	if err != nil {
		return fmt.Errorf("loading calendar: %w", err)
	}

	db, err := store.Open(config.StorePath())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	loaded := ingest.LoadAll(ctx, inputs, logger)
	for _, e := range loaded.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "  [warn] %v\n", e)
	}
	if len(loaded.Loaded) == 0 {
		return fmt.Errorf("no source could be loaded: %w", loaded.Err())
	}
	down = mergeSources(down, loaded.Failed)

	priority := cfg.Priority()
	yesterday, err := loadYesterday(db, runDate, priority)
	if err != nil {
		return err
	}

	mem, err := loadMemory(db)
	if err != nil {
		return err
	}

	var previous map[source.Source][]citation.Record
	if backfill && len(down) > 0 {
		previous, err = db.PreviousBySource(runDate, down)
		if err != nil {
			return fmt.Errorf("loading previous records: %w", err)
		}
	}

	outcome := reconcile.Run(reconcile.Plan{
		Date:      runDate,
		Today:     loaded.Records,
		Yesterday: yesterday,
		Memory:    mem,
		Down:      down,
		Backfill:  backfill,
		Previous:  previous,
		GraceDays: grace,
		Authority: cfg.Authority(),
		Priority:  priority,
		Calendar:  cal,
		Logger:    logger,
	})

	summary := report.Build(outcome.Result, down)
	summary.Date = runDate
	summary.Backfilled = outcome.Backfilled

	if err := writeTables(flagOut, outcome, summary); err != nil {
		return err
	}

	if err := db.SaveLedger(outcome.Ledger); err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}
	if err := db.SaveRecords(runDate, outcome.Records); err != nil {
		return fmt.Errorf("saving records: %w", err)
	}
	runID, err := db.RecordRun(store.Run{
		Date:       runDate,
		New:        summary.New,
		Removed:    summary.Removed,
		Retained:   summary.Retained,
		Modified:   summary.Modified,
		Suppressed: summary.Suppressed,
		Dropped:    summary.Dropped,
		Down:       summary.Down,
		Backfilled: summary.Backfilled,
	})
	if err != nil {
		return err
	}
	summary.RunID = runID

	if n, err := db.PruneBefore(runDate.Add(-cfg.RetentionDuration())); err != nil {
		logger.Warn("pruning old snapshots", zap.Error(err))
	} else if n > 0 {
		logger.Debug("pruned old snapshots", zap.Int64("records", n))
	}

	return report.Render(cmd.OutOrStdout(), summary, outcome.Result)
}

func loadYesterday(db *store.Store, runDate time.Time, priority []source.Source) (citation.Snapshot, error) {
	if flagYesterday != "" {
		snap, err := ingest.LoadSnapshot(flagYesterday, priority)
		if err != nil {
			return citation.Snapshot{}, fmt.Errorf("loading yesterday: %w", err)
		}
		return snap, nil
	}

	previous, err := db.PreviousBySource(runDate, source.All())
	if err != nil {
		return citation.Snapshot{}, fmt.Errorf("loading stored snapshots: %w", err)
	}
	var records []citation.Record
	for _, src := range source.All() {
		records = append(records, previous[src]...)
	}
	logger.Info("using stored snapshots as yesterday", zap.Int("sources", len(previous)), zap.Int("records", len(records)))
	return aggregate.Aggregate(records, priority), nil
}

func loadMemory(db *store.Store) (memory.Ledger, error) {
	if flagMemory == "" {
		l, err := db.LoadLedger()
		if err != nil {
			return memory.Ledger{}, fmt.Errorf("loading memory: %w", err)
		}
		return l, nil
	}
	f, err := os.Open(flagMemory)
	if err != nil {
		return memory.Ledger{}, fmt.Errorf("opening memory: %w", err)
	}
	defer f.Close()
	l, err := memory.ReadCSV(f)
	if err != nil {
		return memory.Ledger{}, fmt.Errorf("reading memory %s: %w", flagMemory, err)
	}
	return l, nil
}

func writeTables(dir string, outcome reconcile.Outcome, summary report.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tables := append(outcome.Tables(), reconcile.Named{Name: "resumen.csv", Table: summary.Table()})
	for _, n := range tables {
		if err := writeTable(filepath.Join(dir, n.Name), n.Table); err != nil {
			return err
		}
	}
	logger.Info("wrote output tables", zap.String("dir", dir), zap.Int("tables", len(tables)))
	return nil
}

func writeTable(path string, t tabular.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := tabular.WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// parseRunDate reads a yyyy-mm-dd date. Empty means the local date of now.
func parseRunDate(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(citation.ISODate, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
	}
	return t, nil
}

func parseSources(names []string) ([]source.Source, error) {
	var out []source.Source
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		s, err := source.Parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func mergeSources(a, b []source.Source) []source.Source {
	set := source.NewSet(a...)
	out := append([]source.Source(nil), a...)
	for _, s := range b {
		if !set.Has(s) {
			set[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
