// Package rules implements the deterministic classification stage: an
// ordered table of filename rules plus metadata-driven rules, and the
// ignore list that short-circuits classification entirely.
package rules

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/sift/internal/model"
)

// NoMatchReasoning is the reasoning attached to a needs-escalation result.
const NoMatchReasoning = "No matching rule found - needs AI classification"

// Rule maps a set of filename patterns onto a classification.
// A rule matches when any of its patterns matches.
type Rule struct {
	Name          string
	Category      model.Category
	Action        model.Action
	Domain        string
	Subfolder     string
	Patterns      []string
	Confidence    float64
	CaseSensitive bool
}

// MetadataRule inspects extracted facts rather than the filename.
type MetadataRule interface {
	Name() string
	Evaluate(facts model.Facts) (Match, bool)
}

// Match is the outcome of evaluating one item against the rule set.
type Match struct {
	Rule       string
	Category   model.Category
	Action     model.Action
	Domain     string
	Subfolder  string
	Reasoning  string
	Confidence float64
}

// Matched reports whether a rule decided the item.
func (m Match) Matched() bool {
	return m.Rule != ""
}

// NeedsEscalation is the result for an item no rule matched.
func NeedsEscalation() Match {
	return Match{
		Action:    model.ActionSkip,
		Category:  model.CategoryUnknown,
		Reasoning: NoMatchReasoning,
	}
}

type compiledRule struct {
	rule     Rule
	patterns []*regexp.Regexp
}

func (c compiledRule) matches(name string) bool {
	for _, re := range c.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Engine evaluates items against an ordered rule table.
type Engine struct {
	rules []compiledRule
	meta  []MetadataRule
}

// NewEngine compiles the rule table. Patterns are compiled once; an
// invalid pattern is an error.
func NewEngine(fileRules []Rule, meta ...MetadataRule) (*Engine, error) {
	e := &Engine{
		rules: make([]compiledRule, 0, len(fileRules)),
		meta:  meta,
	}

	for _, r := range fileRules {
		c := compiledRule{rule: r}
		for _, p := range r.Patterns {
			expr := p
			if !r.CaseSensitive {
				expr = "(?i)" + p
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid pattern %q: %w", r.Name, p, err)
			}
			c.patterns = append(c.patterns, re)
		}
		e.rules = append(e.rules, c)
	}

	return e, nil
}

// MustEngine is NewEngine for built-in tables that are known to compile.
func MustEngine(fileRules []Rule, meta ...MetadataRule) *Engine {
	e, err := NewEngine(fileRules, meta...)
	if err != nil {
		panic(err)
	}
	return e
}

// Evaluate returns the highest-confidence match for the item. Metadata
// rules are considered before filename rules; among equal confidences the
// first candidate wins.
func (e *Engine) Evaluate(facts model.Facts) Match {
	best := NeedsEscalation()

	for _, m := range e.meta {
		if got, ok := m.Evaluate(facts); ok && got.Confidence > best.Confidence {
			best = got
		}
	}

	for _, c := range e.rules {
		if !c.matches(facts.Name) || c.rule.Confidence <= best.Confidence {
			continue
		}
		best = Match{
			Rule:       c.rule.Name,
			Category:   c.rule.Category,
			Action:     c.rule.Action,
			Domain:     c.rule.Domain,
			Subfolder:  c.rule.Subfolder,
			Confidence: c.rule.Confidence,
			Reasoning:  "Matched rule: " + c.rule.Name,
		}
	}

	return best
}

// Rules returns the filename rule table in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.rule
	}
	return out
}
