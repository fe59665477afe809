package preflight

import (
	"context"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectories verifies every configured directory is accessible.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// RunRemote contacts the LLM provider and the translation cache when the
// configuration uses them. checker may be nil when no completer was built.
func RunRemote(ctx context.Context, cfg *config.Config, checker HealthChecker) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if cfg.NeedsLLM() {
		results = append(results, CheckLLM(ctx, "LLM ("+cfg.LLM.Provider+")", checker))
	}
	if cfg.Cache.RedisAddr != "" && cfg.UsesEnricher(config.EnricherTranslation) {
		results = append(results, CheckRedis(ctx, cfg))
	}
	return results
}
