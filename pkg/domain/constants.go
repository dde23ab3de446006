package domain

// Metadata keys used in Result.Metadata and Session.Metadata.
const (
	KeyHint             = "hint"
	KeyOptions          = "options"
	KeyRetryCount       = "retry_count"
	KeyMaxRetries       = "max_retries"
	KeyPreviousStep     = "previous_step"
	KeySessionRestarted = "session_restarted"
	KeySessionCompleted = "session_completed"
	KeySessionReset     = "session_reset"

	// KeyFinalSummary holds the completed Summary (as a map) in Session.Metadata.
	KeyFinalSummary = "final_summary"
)

// Codes carried in Result.ValidationError when the failure is not a field rule.
const (
	CodeMaxRetries   = "max_retries"
	CodeUnknownState = "unknown_state"
)
