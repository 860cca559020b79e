package log

import "go.uber.org/zap"

var (
	// Internal mark the error severe, due to issues in code.
	Internal = zap.String("severe_error", "internal")

	// Fatal marks errors that will repeat every cycle until the configuration changes.
	Fatal = zap.String("severe_error", "config")
)
