package logging

import "go.uber.org/zap"

// ForRun returns the global logger tagged with the run id
func ForRun(runID string) *zap.SugaredLogger {
	return zap.S().With("runId", runID)
}
