package preflight

import (
	"bidsprep/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for cfg. root overrides the configured
// data directory when set.
func RunAll(cfg *config.Config, root string) []Result {
	if cfg == nil {
		return nil
	}
	if root == "" {
		root = cfg.Paths.DataDir
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", root, ReadOnly),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir, ReadWrite),
	}
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckOutputDirectory("Output directory", cfg.Paths.OutputDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
