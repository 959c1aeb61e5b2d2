package config

import "go.uber.org/zap"

// NewLogger builds the process logger: JSON in production, console in development
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
