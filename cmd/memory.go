package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Haunes/ComparendosTransito/internal/config"
	"github.com/Haunes/ComparendosTransito/internal/memory"
	"github.com/Haunes/ComparendosTransito/internal/store"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Export or import the last-seen memory ledger",
}

var memoryExportCmd = &cobra.Command{
	Use:   "export path.csv",
	Short: "Write the stored ledger as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(config.StorePath())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer db.Close()

		l, err := db.LoadLedger()
		if err != nil {
			return fmt.Errorf("loading memory: %w", err)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[0], err)
		}
		if err := memory.WriteCSV(f, l); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries (version %d) to %s.\n", l.Len(), l.Version(), args[0])
		return nil
	},
}

var memoryImportCmd = &cobra.Command{
	Use:   "import path.csv",
	Short: "Load a memory CSV into the store",
	Long: `Upsert every entry of a memory CSV into the stored ledger. Entries already stored
and missing from the file are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		imported, err := memory.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		db, err := store.Open(config.StorePath())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer db.Close()

		current, err := db.LoadLedger()
		if err != nil {
			return fmt.Errorf("loading memory: %w", err)
		}
		version := current.Version()
		if imported.Version() > version {
			version = imported.Version()
		}
		l := memory.Restore(version+1, imported.Entries())
		if err := db.SaveLedger(l); err != nil {
			return fmt.Errorf("saving memory: %w", err)
		}

		logger.Info("imported memory", zap.String("path", args[0]), zap.Int("entries", l.Len()))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries.\n", l.Len())
		return nil
	},
}

func init() {
	memoryCmd.AddCommand(memoryExportCmd)
	memoryCmd.AddCommand(memoryImportCmd)
}
