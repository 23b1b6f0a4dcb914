package utils

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. Debug mode gets the
// development config (console encoding, debug level) for working against a
// local catalog; otherwise JSON at info level for server deployments.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
