package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces"
	"github.com/Nazky/Auto-Backpork/internal/domain/services"
	"github.com/Nazky/Auto-Backpork/internal/external-adapters/yaml"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	quiet   bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "backpork",
	Short: "Downgrade and fake-sign wrapped executables for older firmware",
	Long: `backpork unwraps signed executable containers, retargets the
executable inside to an older SDK/firmware pair, optionally clamps its C
library version requirements against a fakelib manifest, and re-wraps the
result under a forged identity.

The output carries no real signature: it is only accepted by a loader
running with signature verification disabled.`,
	SilenceUsage: true,
}

// Execute runs the root cobra command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("backpork {{.Version}}\n")
}

func newLogger() interfaces.Logger {
	return &interfaces.StderrLogger{Quiet: quiet, Verbose: verbose}
}

// loadCatalog returns the built-in patch catalog, or the one parsed from
// path when a catalog file is supplied. A file fully replaces the defaults.
func loadCatalog(path string) (*entities.PatchCatalog, error) {
	if path == "" {
		return services.DefaultCatalog(), nil
	}
	return yaml.NewCatalogParser().ParseFile(path)
}

// parsePaid accepts decimal or 0x-prefixed hex authorization ids.
func parsePaid(s string) (uint64, error) {
	paid, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad paid value %q: %w", s, err)
	}
	return paid, nil
}
