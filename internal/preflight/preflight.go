package preflight

import (
	"context"

	"wildcam/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Capture directory", cfg.Paths.CaptureDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckModelArtifact(cfg),
		CheckDatabase(ctx, cfg.Paths.DatabasePath),
	}

	if cfg.Classifier.Backend == config.ClassifierBackendHTTP {
		results = append(results, CheckClassifierEndpoint(ctx, cfg.Classifier.Endpoint))
	}

	results = append(results, CheckBroker(ctx, cfg), CheckNtfy(cfg))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
