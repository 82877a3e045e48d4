package domain

// PipelineStage is one discrete step of server-side document ingestion.
type PipelineStage string

// Ordered stages. Progress through these never regresses.
const (
	StageSubmitted         PipelineStage = "submitted"
	StageContentFetched    PipelineStage = "content-fetched"
	StageContentNormalized PipelineStage = "content-normalized"
	StageEnrichmentRunning PipelineStage = "enrichment-running"
	StageReady             PipelineStage = "ready"
)

// Terminal failure stages. They are not part of the ordering.
const (
	// StageNormalizationFailed means the content could not be read.
	StageNormalizationFailed PipelineStage = "normalization-failed"

	// StageEnrichmentInsufficient means the content was readable but carried too little signal.
	StageEnrichmentInsufficient PipelineStage = "enrichment-insufficient"

	// StageUnknown stands for any value outside the known set.
	StageUnknown PipelineStage = "unknown"
)

// StageNone is the zero stage of a session that has not been submitted.
const StageNone PipelineStage = ""

// orderedStages lists the progress stages in pipeline order.
var orderedStages = []PipelineStage{
	StageSubmitted,
	StageContentFetched,
	StageContentNormalized,
	StageEnrichmentRunning,
	StageReady,
}

// stageProgress maps each ordered stage to its progress percentage.
var stageProgress = map[PipelineStage]int{
	StageSubmitted:         25,
	StageContentFetched:    50,
	StageContentNormalized: 65,
	StageEnrichmentRunning: 75,
	StageReady:             100,
}

// legacyStages maps stage names reported by older servers.
var legacyStages = map[string]PipelineStage{
	"created":    StageSubmitted,
	"uploaded":   StageContentFetched,
	"extracted":  StageContentNormalized,
	"processing": StageEnrichmentRunning,
	"embedded":   StageReady,
}

// ParseStage converts a reported status value into a PipelineStage.
// Values outside the known set map to StageUnknown.
func ParseStage(s string) PipelineStage {
	stage := PipelineStage(s)
	if stage.Ordinal() >= 0 || stage.IsFailure() {
		return stage
	}
	if legacy, ok := legacyStages[s]; ok {
		return legacy
	}
	return StageUnknown
}

// Ordinal returns the stage's position in the pipeline order,
// or -1 for the empty stage and all terminal failures.
func (s PipelineStage) Ordinal() int {
	for i, stage := range orderedStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsFailure reports whether the stage is a terminal failure.
func (s PipelineStage) IsFailure() bool {
	switch s {
	case StageNormalizationFailed, StageEnrichmentInsufficient, StageUnknown:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether polling stops at this stage.
func (s PipelineStage) IsTerminal() bool {
	return s == StageReady || s.IsFailure()
}

// Progress returns the fixed percentage for an ordered stage.
// The second value is false for stages without a percentage.
func (s PipelineStage) Progress() (int, bool) {
	p, ok := stageProgress[s]
	return p, ok
}

// After reports whether s is strictly later in the pipeline than other.
func (s PipelineStage) After(other PipelineStage) bool {
	idx := s.Ordinal()
	return idx >= 0 && idx > other.Ordinal()
}

// FailureKind returns the failure kind for a terminal failure stage.
func (s PipelineStage) FailureKind() FailureKind {
	switch s {
	case StageNormalizationFailed:
		return FailureContentUnreadable
	case StageEnrichmentInsufficient:
		return FailureInsufficientSignal
	default:
		return FailureUnknown
	}
}

// String returns the wire representation of the stage.
func (s PipelineStage) String() string {
	return string(s)
}

// NextProgress derives the externally visible progress value.
// Progress never decreases, whatever order stages are reported in.
func NextProgress(stage PipelineStage, highest int) int {
	p, ok := stage.Progress()
	if !ok || p < highest {
		return highest
	}
	return p
}
