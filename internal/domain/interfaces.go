package domain

import (
	"context"
)

// RiskEvaluator runs the complete guideline evaluation for one set of
// patient inputs. Implementations must not retain or alias the request's
// selection set across calls.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, req *EvaluationRequest) (*EvaluationResult, error)
	ToggleFactor(selected []string, factorID string) ([]string, error)
}

// ConfigManager provides typed access to the process configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatasetConfig() *DatasetConfig
	GetFeedbackConfig() *FeedbackConfig
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
