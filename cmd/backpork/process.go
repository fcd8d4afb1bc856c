package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/codec"
	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/gateways"
	orchestrators "github.com/Nazky/Auto-Backpork/internal/domain-orchestrators"
	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/services"
	"github.com/Nazky/Auto-Backpork/internal/external-adapters/gpg"
	"github.com/Nazky/Auto-Backpork/internal/external-adapters/yaml"
)

var (
	processOutputDir  string
	processSdkPair    int
	processPaid       string
	processPtype      string
	processLibc       bool
	processManifest   string
	processFakelibDir string
	processKeyPath    string
	processSigPath    string
	processBackup     bool
	processOverwrite  bool
	processStrictLibc bool
	processAutoRevert bool
	processWorkers    int
	processCatalog    string
)

var processCmd = &cobra.Command{
	Use:   "process <path>...",
	Short: "Run the full downgrade pipeline over files or directories",
	Long: `Process runs unwrap, downgrade and fake-sign over every container or
executable found under the given paths. Directories are walked recursively;
backup files and previously produced "decrypted" directories are skipped.

Without --output-dir files are rewritten in place, with the original kept
as a .bak backup.`,
	Example: `  # Downgrade a single file in place, default SDK pair
  backpork process game/eboot.bin

  # Downgrade a tree to a separate output directory, SDK pair 2
  backpork process game/ --output-dir out/ --sdk-pair 2

  # Include the libc requirement pass against a fakelib manifest
  backpork process game/ --libc --fakelib-manifest fakelibs/manifest.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&processOutputDir, "output-dir", "o", "", "Write outputs under this directory instead of in place")
	processCmd.Flags().IntVar(&processSdkPair, "sdk-pair", entities.DefaultSdkPair, "Target SDK pair id")
	processCmd.Flags().StringVar(&processPaid, "paid", fmt.Sprintf("0x%016X", entities.DefaultPaid), "Authorization id to stamp (decimal or 0x hex)")
	processCmd.Flags().StringVar(&processPtype, "ptype", "fake", "Program type to stamp (fake, npdrm-exec, npdrm-dynlib, system-exec, system-dynlib)")
	processCmd.Flags().BoolVar(&processLibc, "libc", false, "Clamp C library version requirements against the fakelib manifest")
	processCmd.Flags().StringVar(&processManifest, "fakelib-manifest", "", "Path to the fakelib manifest YAML")
	processCmd.Flags().StringVar(&processFakelibDir, "fakelib-dir", "", "Directory holding fakelib images for checksum verification")
	processCmd.Flags().StringVar(&processKeyPath, "manifest-key", "", "GPG public key for manifest signature verification")
	processCmd.Flags().StringVar(&processSigPath, "manifest-sig", "", "Detached GPG signature over the manifest")
	processCmd.Flags().BoolVar(&processBackup, "backup", true, "Keep a .bak copy of overwritten outputs")
	processCmd.Flags().BoolVar(&processOverwrite, "overwrite", false, "Overwrite outputs that already exist")
	processCmd.Flags().BoolVar(&processStrictLibc, "strict-libc", false, "Fail a file when a dependency has no fakelib counterpart")
	processCmd.Flags().BoolVar(&processAutoRevert, "auto-revert", true, "Run the revert patch set on images above the high-SDK threshold")
	processCmd.Flags().IntVar(&processWorkers, "workers", 0, "Concurrent file workers (0 = number of CPUs)")
	processCmd.Flags().StringVar(&processCatalog, "catalog", "", "Patch catalog YAML replacing the built-in rules")
}

func runProcess(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paid, err := parsePaid(processPaid)
	if err != nil {
		return err
	}
	ptype, err := entities.ParseProgramType(processPtype)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(processCatalog)
	if err != nil {
		return err
	}

	files, err := collectBatch(args, processOutputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no containers or executables found under the given paths")
	}

	logger := newLogger()
	table := services.NewSdkVersionTable()
	unwrapper := codec.NewCodec(gateways.NewPlaintextUnlocker())

	orch := orchestrators.NewPipelineOrchestrator(
		table,
		unwrapper,
		codec.ParseExecutable,
		gateways.NewFileProber(),
		services.NewDowngradePatcher(catalog, codec.ParseExecutable, logger),
		services.NewLibcPatcher(catalog, codec.ParseExecutable, logger),
		services.NewFakeSigner(table, unwrapper),
		gateways.NewAtomicFileWriter(),
		yaml.NewManifestParser(),
		gpg.NewVerifier(),
		gateways.NewChecksumVerifier(),
		logger,
		orchestrators.PipelineConfig{
			SdkPair:              processSdkPair,
			Paid:                 paid,
			PType:                ptype,
			FakelibManifestPath:  processManifest,
			FakelibDir:           processFakelibDir,
			ManifestKeyPath:      processKeyPath,
			ManifestSigPath:      processSigPath,
			CreateBackup:         processBackup,
			Overwrite:            processOverwrite || processOutputDir == "",
			ApplyLibcPatch:       processLibc,
			AutoRevertForHighSdk: processAutoRevert,
			StrictLibc:           processStrictLibc,
			Workers:              processWorkers,
		},
	)

	report, err := orch.ProcessBatch(ctx, files)
	if err != nil {
		return err
	}

	printReport(report)
	if report.FailedFiles() > 0 {
		return fmt.Errorf("%d of %d files failed", report.FailedFiles(), len(report.Files))
	}
	return nil
}

// collectBatch expands path arguments into batch entries. In-place mode maps
// every file onto itself; with an output directory, each root's relative
// layout is mirrored underneath it.
func collectBatch(roots []string, outputDir string) ([]orchestrators.BatchFile, error) {
	scanner := gateways.NewInputScanner()
	var files []orchestrators.BatchFile
	for _, root := range roots {
		found, err := scanner.Scan(root)
		if err != nil {
			return nil, err
		}
		for _, path := range found {
			out := path
			if outputDir != "" {
				rel, err := filepath.Rel(root, path)
				if err != nil || rel == "." {
					rel = filepath.Base(path)
				}
				out = filepath.Join(outputDir, rel)
			}
			files = append(files, orchestrators.BatchFile{InputPath: path, OutputPath: out})
		}
	}
	return files, nil
}

func printReport(report *entities.PipelineReport) {
	if quiet {
		return
	}
	fmt.Printf("Processed %d files (%d failed)\n", len(report.Files), report.FailedFiles())
	for _, stage := range []string{entities.StageDecrypt, entities.StageDowngrade, entities.StageSigning} {
		s := report.Stage(stage)
		fmt.Printf("  %-10s attempted=%d successful=%d failed=%d\n", stage, s.Attempted, s.Successful, s.Failed)
	}
	for _, f := range report.Files {
		switch f.Status {
		case entities.StatusFailed:
			fmt.Printf("  FAILED  %s (%s): %v\n", f.InputPath, f.FailedStage, f.Err)
		case entities.StatusSkipped:
			fmt.Printf("  skipped %s\n", f.InputPath)
		case entities.StatusSuccess:
			for _, lib := range f.Skipped {
				fmt.Printf("  note    %s: no fakelib for %s %s\n", f.InputPath, lib.Name, lib.RequiredVersion)
			}
		}
	}
}
