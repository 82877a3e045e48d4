package domain

// Durable store keys.
const (
	KeySessionID     = "session_id"
	KeyPipelineStage = "pipeline_stage"
	KeyResultHandle  = "result_handle"
	KeyIdentity      = "identity"
	KeyCreatedAt     = "session_created_at"
	KeyMessageLog    = "conversation"

	// Resume passthrough values, never interpreted.
	KeySummaryFilename  = "summary_filename"
	KeySummaryCreatedAt = "summary_created_at"
	KeySummaryText      = "summary_text"
	KeyScoreFeedback    = "summary_score_feedback"
)

// SessionKeys lists every key cleared when a session ends.
// The identity key is deliberately absent.
func SessionKeys() []string {
	return []string{
		KeySessionID,
		KeyPipelineStage,
		KeyResultHandle,
		KeyCreatedAt,
		KeyMessageLog,
		KeySummaryFilename,
		KeySummaryCreatedAt,
		KeySummaryText,
		KeyScoreFeedback,
	}
}
