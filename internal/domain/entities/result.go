package entities

// Pipeline stage names used as PipelineReport keys.
const (
	StageDecrypt   = "decrypt"
	StageDowngrade = "downgrade"
	StageSigning   = "signing"
)

// FileStatus is the per-file outcome of a batch run.
type FileStatus int

const (
	StatusSuccess FileStatus = iota
	StatusSkipped
	StatusFailed
)

// String returns the status name.
func (s FileStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SkippedLibrary records a dependency the libc patcher left untouched
// because the fakelib manifest has no counterpart for it.
type SkippedLibrary struct {
	Name            string
	RequiredVersion string
}

// ProcessingResult is the per-file outcome: status, the stage that failed
// (empty on success), the stages that ran, and any skipped libraries.
type ProcessingResult struct {
	InputPath   string
	OutputPath  string
	Status      FileStatus
	FailedStage string
	Err         error
	StagesRun   []string
	Skipped     []SkippedLibrary
}

// StageStats counts attempts and outcomes for one pipeline stage.
type StageStats struct {
	Attempted  int
	Successful int
	Failed     int
}

// PipelineReport aggregates a batch run: per-stage counts plus the per-file
// results in input order. Created fresh per batch; never persisted.
type PipelineReport struct {
	Stages map[string]*StageStats
	Files  []ProcessingResult
}

// NewPipelineReport returns a report with all stage counters initialized.
func NewPipelineReport() *PipelineReport {
	return &PipelineReport{
		Stages: map[string]*StageStats{
			StageDecrypt:   {},
			StageDowngrade: {},
			StageSigning:   {},
		},
	}
}

// Stage returns the counter for a stage name, creating it if needed.
func (r *PipelineReport) Stage(name string) *StageStats {
	s, ok := r.Stages[name]
	if !ok {
		s = &StageStats{}
		r.Stages[name] = s
	}
	return s
}

// FailedFiles returns how many files ended in StatusFailed.
func (r *PipelineReport) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Status == StatusFailed {
			n++
		}
	}
	return n
}
