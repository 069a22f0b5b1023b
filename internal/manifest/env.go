package manifest

import (
	"path"
	"sort"
	"strings"
)

// baseVars are always passed through to environment commands regardless
// of the passenv configuration.
var baseVars = []string{"PATH", "HOME", "TMPDIR", "LANG"}

// FilterEnviron filters an ambient environment (os.Environ form,
// "KEY=value" entries) down to the variables the resolved environment
// passes through. Values are never modified, only selected. The result
// is sorted by name for stable command invocation.
func (r *ResolvedEnv) FilterEnviron(ambient []string) []string {
	var out []string
	for _, entry := range ambient {
		name, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if r.passes(name) {
			out = append(out, entry)
		}
	}
	sort.Strings(out)
	return out
}

// passes reports whether a variable name is allowed through, either as
// a base variable or by matching one of the passenv patterns.
func (r *ResolvedEnv) passes(name string) bool {
	for _, base := range baseVars {
		if name == base {
			return true
		}
	}
	for _, pattern := range r.PassEnv {
		// Patterns were validated at load time.
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
