package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/codec"
	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/gateways"
	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	ifgateways "github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
)

var statusCmd = &cobra.Command{
	Use:   "status <file-or-directory>",
	Short: "Report the declared SDK version and backup state of wrapped files",
	Long: `Status scans for containers and executables, prints the SDK version
each one declares and whether a ".bak" backup of it exists, so the effect of
a previous run can be checked without touching any file.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	files, err := gateways.NewInputScanner().Scan(args[0])
	if err != nil {
		return err
	}

	prober := gateways.NewFileProber()
	unwrapper := codec.NewCodec(gateways.NewPlaintextUnlocker())

	fmt.Printf("%-12s %-11s %-7s %s\n", "KIND", "SDK", "BACKUP", "FILE")
	for _, path := range files {
		//nolint:gosec // G304: paths come from the scanned input tree
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		kind := prober.DetectKind(data)
		var img *entities.ExecutableImage
		switch kind {
		case ifgateways.KindContainer:
			img, _, err = unwrapper.Unwrap(data)
		case ifgateways.KindExecutable:
			img, err = codec.ParseExecutable(data)
		}

		sdk := "unreadable"
		if err == nil && img != nil {
			sdk = fmt.Sprintf("0x%08X", img.SdkVersion())
		}
		backup := "-"
		if _, statErr := os.Stat(path + gateways.BackupSuffix); statErr == nil {
			backup = "yes"
		}
		fmt.Printf("%-12s %-11s %-7s %s\n", kind, sdk, backup, path)
	}
	return nil
}
