package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/intake/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured record per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepAdvanced: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_advanced", "session_id", e.SessionID, "from", e.From, "to", e.To)
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.InfoContext(ctx, "validation_failed",
				"session_id", e.SessionID,
				"step", e.Step,
				"reason", e.Reason,
				"retry_count", e.RetryCount,
				"max_retries", e.MaxRetries,
			)
		},
		OnSessionReset: func(ctx context.Context, e *domain.ResetEvent) {
			logger.InfoContext(ctx, "session_reset", "session_id", e.SessionID, "from", e.From, "reason", e.Reason)
		},
		OnSessionCompleted: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_completed", "session_id", e.SessionID)
		},
	}
}
