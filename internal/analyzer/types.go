package analyzer

// Diff represents one environment variable whose file value is not
// reflected in the compiled configuration cache
type Diff struct {
	Name  string   // The environment variable name
	Value string   // Value declared by the environment file
	Paths []string // Dotted config paths that were checked and disagreed
}

// Result contains the complete reconciliation results
type Result struct {
	Diffs   []Diff // Differences, in environment file order
	Checked int    // Variables with at least one config reference
	Skipped int    // Variables never referenced by any config source
	Ignored int    // Differences suppressed via config
}

// HasDiffs reports whether any difference survived filtering.
func (r Result) HasDiffs() bool {
	return len(r.Diffs) > 0
}
