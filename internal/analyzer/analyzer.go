package analyzer

import (
	"strings"

	"github.com/rnovak/envdrift/internal/config"
	"github.com/rnovak/envdrift/internal/envfile"
	"github.com/rnovak/envdrift/internal/scanner"
	"github.com/rnovak/envdrift/internal/snapshot"
)

// Analyze reconciles the environment file against the compiled config cache.
// env: the parsed environment file, which fixes the report order
// refs: every env() reference discovered in the config sources
// tree: the decoded snapshot of the compiled cache
// cfg: configuration for ignoring variables
//
// A variable with no reference is skipped: nothing in the cache could hold
// it. A referenced variable matches when any one of its candidate paths
// resolves to an equivalent cached value; otherwise it is reported once,
// listing every path that disagreed.
func Analyze(env *envfile.File, refs []scanner.Reference, tree snapshot.Node, cfg *config.Config) Result {
	refsByName := make(map[string][]scanner.Reference)
	for _, ref := range refs {
		refsByName[ref.Name] = append(refsByName[ref.Name], ref)
	}

	var result Result
	for _, entry := range env.Entries() {
		candidates := refsByName[entry.Name]
		if shouldSkip(candidates) {
			result.Skipped++
			continue
		}
		result.Checked++

		matched := false
		var failed []string
		seen := make(map[string]bool)
		for _, ref := range candidates {
			path := ref.Dotted()
			if seen[path] {
				continue
			}
			seen[path] = true

			cached, ok := resolve(tree, ref.Path)
			if ok && valuesMatch(entry.Value, cached) {
				matched = true
				break
			}
			failed = append(failed, path)
		}
		if matched {
			continue
		}

		if cfg != nil && cfg.ShouldIgnoreDiff(entry.Name) {
			result.Ignored++
			continue
		}
		result.Diffs = append(result.Diffs, Diff{
			Name:  entry.Name,
			Value: entry.Value,
			Paths: failed,
		})
	}
	return result
}

// shouldSkip reports whether a variable is exempt from checking: with no
// reference there is no cache location to compare against.
func shouldSkip(candidates []scanner.Reference) bool {
	return len(candidates) == 0
}

// resolve walks the snapshot along path and renders the cached value as a
// string. The walk descends mappings only; a missing key, a non-mapping
// midway or a non-scalar leaf all come back unresolved.
func resolve(tree snapshot.Node, path []string) (string, bool) {
	node := tree
	for _, segment := range path {
		mapping, ok := node.(*snapshot.Mapping)
		if !ok {
			return "", false
		}
		child, ok := mapping.Get(segment)
		if !ok {
			return "", false
		}
		node = child
	}

	scalar, ok := node.(*snapshot.Scalar)
	if !ok {
		return "", false
	}
	if scalar.Null {
		return "null", true
	}
	return scalar.Value, true
}

// valuesMatch compares a declared value with a cached one. Empty strings,
// the literal "null" in any casing, a quoted empty string and "false" form
// one equivalence class: PHP renders an absent or false-cast value through
// all four spellings depending on where the cast happened.
func valuesMatch(envValue, cachedValue string) bool {
	e := strings.TrimSpace(envValue)
	c := strings.TrimSpace(cachedValue)
	if isNullish(e) || isNullish(c) {
		return isNullish(e) && isNullish(c)
	}
	return e == c
}

func isNullish(v string) bool {
	switch strings.ToLower(v) {
	case "", "null", `""`, "false":
		return true
	}
	return false
}
