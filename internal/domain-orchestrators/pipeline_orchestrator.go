// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
	"github.com/Nazky/Auto-Backpork/internal/domain/services"
)

// ContainerUnwrapper extracts the executable image and stored identity from
// container bytes.
type ContainerUnwrapper interface {
	Unwrap(data []byte) (*entities.ExecutableImage, *entities.FakeIdentity, error)
}

// ImageParseFunc parses raw executable bytes into a typed image. Inputs
// that are already unwrapped skip the container codec and go straight here.
type ImageParseFunc func(data []byte) (*entities.ExecutableImage, error)

// Downgrader retargets an image to an older SDK pair.
type Downgrader interface {
	Downgrade(img *entities.ExecutableImage, target entities.SdkVersionPair, autoRevert bool) (*entities.ExecutableImage, error)
}

// LibcPatcher clamps library version requirements against a fakelib manifest.
type LibcPatcher interface {
	PatchLibc(img *entities.ExecutableImage, manifest *gateways.FakelibManifest, strict bool) (*entities.ExecutableImage, []entities.SkippedLibrary, error)
}

// Signer re-wraps a patched image under a forged identity.
type Signer interface {
	Sign(img *entities.ExecutableImage, pairID int, paid uint64, ptype entities.ProgramType) ([]byte, error)
}

// KindProber classifies input bytes by magic.
type KindProber interface {
	DetectKind(data []byte) gateways.FileKind
}

// ManifestVerifier checks a detached signature over the manifest file.
type ManifestVerifier interface {
	ImportKeyFromFile(keyPath string) error
	VerifyDetached(signedPath, sigPath string) error
}

// ChecksumVerifier checks fakelib image digests against manifest entries.
type ChecksumVerifier interface {
	VerifyFakelibChecksums(ctx context.Context, manifest *gateways.FakelibManifest, dir string) error
}

// PipelineConfig holds batch-level settings for the orchestrator.
type PipelineConfig struct {
	SdkPair              int
	Paid                 uint64
	PType                entities.ProgramType
	FakelibManifestPath  string
	FakelibDir           string
	ManifestKeyPath      string
	ManifestSigPath      string
	CreateBackup         bool
	Overwrite            bool
	ApplyLibcPatch       bool
	AutoRevertForHighSdk bool
	StrictLibc           bool
	Workers              int
}

// BatchFile names one input file and where its output goes.
type BatchFile struct {
	InputPath  string
	OutputPath string
}

// PipelineOrchestrator coordinates the complete unwrap, downgrade and re-sign
// workflow over a batch of files. Files are independent: each runs on its own
// worker and a failure in one never stops the others.
type PipelineOrchestrator struct {
	table     *services.SdkVersionTable
	unwrapper ContainerUnwrapper
	parser    ImageParseFunc
	prober    KindProber
	patcher   Downgrader
	libc      LibcPatcher
	signer    Signer
	writer    gateways.FileWriter
	manifests gateways.ManifestReader
	verifier  ManifestVerifier
	checksums ChecksumVerifier
	logger    interfaces.Logger
	config    PipelineConfig
}

// NewPipelineOrchestrator creates a new pipeline orchestrator. The manifest
// verifier and checksum verifier may be nil when signature or checksum
// verification is not configured.
func NewPipelineOrchestrator(
	table *services.SdkVersionTable,
	unwrapper ContainerUnwrapper,
	parser ImageParseFunc,
	prober KindProber,
	patcher Downgrader,
	libc LibcPatcher,
	signer Signer,
	writer gateways.FileWriter,
	manifests gateways.ManifestReader,
	verifier ManifestVerifier,
	checksums ChecksumVerifier,
	logger interfaces.Logger,
	config PipelineConfig,
) *PipelineOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &PipelineOrchestrator{
		table:     table,
		unwrapper: unwrapper,
		parser:    parser,
		prober:    prober,
		patcher:   patcher,
		libc:      libc,
		signer:    signer,
		writer:    writer,
		manifests: manifests,
		verifier:  verifier,
		checksums: checksums,
		logger:    logger,
		config:    config,
	}
}

// ProcessBatch runs the pipeline over every file and returns the aggregated
// report. The returned error is non-nil only for batch-level misconfiguration
// (unknown SDK pair, unusable fakelib manifest); per-file failures are
// recorded in the report instead.
//
// Cancelling the context stops launching new files; in-flight files run to
// completion so no output is left half-written.
func (o *PipelineOrchestrator) ProcessBatch(ctx context.Context, files []BatchFile) (*entities.PipelineReport, error) {
	// Step 1: resolve the downgrade target; a bad pair id fails the batch
	pair, err := o.table.Resolve(o.config.SdkPair)
	if err != nil {
		return nil, err
	}

	// Step 2: load and verify the fakelib manifest when libc patching is on
	manifest, err := o.prepareManifest(ctx)
	if err != nil {
		return nil, err
	}

	report := entities.NewPipelineReport()
	results := make([]entities.ProcessingResult, len(files))
	var mu sync.Mutex

	// Step 3: fan out, one file per worker, bounded
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i := range files {
		if ctx.Err() != nil {
			results[i] = entities.ProcessingResult{
				InputPath:  files[i].InputPath,
				OutputPath: files[i].OutputPath,
				Status:     entities.StatusSkipped,
				Err:        ctx.Err(),
			}
			continue
		}
		i := i
		g.Go(func() error {
			results[i] = o.processFile(files[i], pair, manifest, report, &mu)
			return nil
		})
	}
	//nolint:errcheck // Workers record failures in the report, never return them
	g.Wait()

	report.Files = results
	o.logger.Info("batch complete",
		interfaces.F("files", len(files)),
		interfaces.F("failed", report.FailedFiles()))
	return report, nil
}

// prepareManifest loads the fakelib manifest and runs the optional signature
// and checksum verification. Returns nil when libc patching is disabled.
func (o *PipelineOrchestrator) prepareManifest(ctx context.Context) (*gateways.FakelibManifest, error) {
	if !o.config.ApplyLibcPatch {
		return nil, nil
	}
	if o.config.FakelibManifestPath == "" {
		return nil, fmt.Errorf("libc patching requires a fakelib manifest path")
	}

	manifest, err := o.manifests.ReadManifest(ctx, o.config.FakelibManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fakelib manifest: %w", err)
	}

	if o.config.ManifestKeyPath != "" && o.config.ManifestSigPath != "" {
		if o.verifier == nil {
			return nil, fmt.Errorf("manifest signature configured but no verifier wired")
		}
		if err := o.verifier.ImportKeyFromFile(o.config.ManifestKeyPath); err != nil {
			return nil, fmt.Errorf("failed to import manifest signing key: %w", err)
		}
		if err := o.verifier.VerifyDetached(o.config.FakelibManifestPath, o.config.ManifestSigPath); err != nil {
			return nil, fmt.Errorf("fakelib manifest signature rejected: %w", err)
		}
		o.logger.Info("fakelib manifest signature verified",
			interfaces.F("manifest", o.config.FakelibManifestPath))
	}

	if o.config.FakelibDir != "" && o.checksums != nil && len(manifest.Checksums) > 0 {
		if err := o.checksums.VerifyFakelibChecksums(ctx, manifest, o.config.FakelibDir); err != nil {
			return nil, fmt.Errorf("fakelib checksum verification failed: %w", err)
		}
	}

	return manifest, nil
}

// processFile runs the three stages for one file and returns its result. All
// report mutation goes through mu; the returned result is slotted by index so
// output order matches input order.
func (o *PipelineOrchestrator) processFile(
	file BatchFile,
	pair entities.SdkVersionPair,
	manifest *gateways.FakelibManifest,
	report *entities.PipelineReport,
	mu *sync.Mutex,
) entities.ProcessingResult {
	result := entities.ProcessingResult{
		InputPath:  file.InputPath,
		OutputPath: file.OutputPath,
	}

	fail := func(stage string, err error) entities.ProcessingResult {
		mu.Lock()
		report.Stage(stage).Failed++
		mu.Unlock()
		result.Status = entities.StatusFailed
		result.FailedStage = stage
		result.Err = err
		o.logger.Error("file failed",
			interfaces.F("input", file.InputPath),
			interfaces.F("stage", stage),
			interfaces.F("error", err.Error()))
		return result
	}
	begin := func(stage string) {
		mu.Lock()
		report.Stage(stage).Attempted++
		mu.Unlock()
		result.StagesRun = append(result.StagesRun, stage)
	}
	done := func(stage string) {
		mu.Lock()
		report.Stage(stage).Successful++
		mu.Unlock()
	}

	if !o.config.Overwrite {
		if _, err := os.Stat(file.OutputPath); err == nil {
			result.Status = entities.StatusSkipped
			o.logger.Info("output exists, skipping",
				interfaces.F("output", file.OutputPath))
			return result
		}
	}

	// Stage 1: read and unwrap, or pass an already-unwrapped executable
	// through. Reading counts toward the stage so failed counts never
	// exceed attempted counts.
	begin(entities.StageDecrypt)
	//nolint:gosec // G304: input paths come from the batch configuration
	data, err := os.ReadFile(file.InputPath)
	if err != nil {
		return fail(entities.StageDecrypt, fmt.Errorf("failed to read input: %w", err))
	}

	var img *entities.ExecutableImage
	switch o.prober.DetectKind(data) {
	case gateways.KindContainer:
		img, _, err = o.unwrapper.Unwrap(data)
	case gateways.KindExecutable:
		img, err = o.parser(data)
	default:
		err = &entities.MalformedContainerError{Reason: "unrecognized input magic"}
	}
	if err != nil {
		return fail(entities.StageDecrypt, err)
	}
	done(entities.StageDecrypt)

	// Stage 2: downgrade, with the libc pass folded in
	begin(entities.StageDowngrade)
	img, err = o.patcher.Downgrade(img, pair, o.config.AutoRevertForHighSdk)
	if err != nil {
		return fail(entities.StageDowngrade, err)
	}
	if manifest != nil {
		var skipped []entities.SkippedLibrary
		img, skipped, err = o.libc.PatchLibc(img, manifest, o.config.StrictLibc)
		if err != nil {
			return fail(entities.StageDowngrade, err)
		}
		result.Skipped = skipped
	}
	done(entities.StageDowngrade)

	// Stage 3: forge identity, re-wrap and write the output
	begin(entities.StageSigning)
	out, err := o.signer.Sign(img, pair.ID, o.config.Paid, o.config.PType)
	if err != nil {
		return fail(entities.StageSigning, err)
	}
	if err := o.writer.Write(file.OutputPath, out, o.config.CreateBackup); err != nil {
		return fail(entities.StageSigning, fmt.Errorf("failed to write output: %w", err))
	}
	done(entities.StageSigning)

	result.Status = entities.StatusSuccess
	o.logger.Info("file processed",
		interfaces.F("input", file.InputPath),
		interfaces.F("output", file.OutputPath),
		interfaces.F("pair", pair.ID))
	return result
}
