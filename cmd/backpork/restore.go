package main

import (
	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/gateways"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <file-or-directory>",
	Short: "Put backed-up originals back in place",
	Long: `Restore moves every ".bak" backup under the given path back over the
file it was taken from, undoing a previous in-place processing run. Backups
are consumed by the move, so running restore twice is harmless.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(_ *cobra.Command, args []string) error {
	logger := newLogger()
	restored, err := gateways.NewBackupRestorer().Restore(args[0])
	for _, path := range restored {
		logger.Info("restored", interfaces.F("file", path))
	}
	if err != nil {
		return err
	}
	if len(restored) == 0 {
		logger.Info("no backups found", interfaces.F("path", args[0]))
	}
	return nil
}
