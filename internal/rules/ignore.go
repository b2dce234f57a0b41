package rules

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreReasoning is the reasoning attached to an ignored item.
const IgnoreReasoning = "File matches ignore pattern"

// Ignorer decides which items never enter classification.
type Ignorer struct {
	patterns     []string
	ignoreHidden bool
}

// NewIgnorer builds an ignorer. Patterns containing glob metacharacters are
// matched as globs against the base name; all others match as substrings.
func NewIgnorer(patterns []string, ignoreHidden bool) *Ignorer {
	return &Ignorer{
		patterns:     append([]string(nil), patterns...),
		ignoreHidden: ignoreHidden,
	}
}

// Ignored reports whether the named item should be skipped.
func (i *Ignorer) Ignored(name string) bool {
	if i == nil {
		return false
	}
	base := filepath.Base(name)
	if i.ignoreHidden && strings.HasPrefix(base, ".") {
		return true
	}
	for _, p := range i.patterns {
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[{") {
			if ok, err := doublestar.Match(p, filepath.ToSlash(base)); err == nil && ok {
				return true
			}
			continue
		}
		if strings.Contains(base, p) {
			return true
		}
	}
	return false
}
