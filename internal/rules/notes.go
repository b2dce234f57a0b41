package rules

import (
	"strings"

	"github.com/Veraticus/sift/internal/model"
)

// CategoryToArea maps a frontmatter category onto a vault area.
var CategoryToArea = map[string]string{
	"finance":      model.AreaFinance,
	"trading":      model.AreaFinance,
	"investment":   model.AreaFinance,
	"family":       model.AreaFamily,
	"kids":         model.AreaFamily,
	"children":     model.AreaFamily,
	"work":         model.AreaWork,
	"career":       model.AreaWork,
	"professional": model.AreaWork,
	"health":       model.AreaHealth,
	"medical":      model.AreaHealth,
	"fitness":      model.AreaHealth,
	"learning":     model.AreaLearning,
	"education":    model.AreaLearning,
	"course":       model.AreaLearning,
	"projects":     model.AreaProjects,
	"project":      model.AreaProjects,
	"hobby":        model.AreaProjects,
}

// TagKeywords maps a lowercased frontmatter tag onto a vault area.
var TagKeywords = map[string]string{
	"trading":       model.AreaFinance,
	"stocks":        model.AreaFinance,
	"crypto":        model.AreaFinance,
	"portfolio":     model.AreaFinance,
	"backtest":      model.AreaFinance,
	"sa2":           model.AreaFinance,
	"42macro":       model.AreaFinance,
	"investment":    model.AreaFinance,
	"budget":        model.AreaFinance,
	"tax":           model.AreaFinance,
	"family":        model.AreaFamily,
	"kids":          model.AreaFamily,
	"parenting":     model.AreaFamily,
	"home":          model.AreaFamily,
	"work":          model.AreaWork,
	"career":        model.AreaWork,
	"resume":        model.AreaWork,
	"job":           model.AreaWork,
	"interview":     model.AreaWork,
	"health":        model.AreaHealth,
	"medical":       model.AreaHealth,
	"fitness":       model.AreaHealth,
	"exercise":      model.AreaHealth,
	"bp":            model.AreaHealth,
	"bloodpressure": model.AreaHealth,
	"learning":      model.AreaLearning,
	"course":        model.AreaLearning,
	"tutorial":      model.AreaLearning,
	"study":         model.AreaLearning,
	"project":       model.AreaProjects,
	"hobby":         model.AreaProjects,
	"diy":           model.AreaProjects,
}

// DefaultNoteRules returns the filename rules for vault notes. The Domain
// field carries the target area folder.
func DefaultNoteRules() []Rule {
	note := func(name, area string, patterns ...string) Rule {
		return Rule{
			Name:       name,
			Patterns:   patterns,
			Category:   model.CategoryNote,
			Action:     model.ActionMove,
			Domain:     area,
			Confidence: 0.8,
		}
	}

	return []Rule{
		note("trading_research", model.AreaFinance,
			`trading`, `backtest`, `SA2`, `42macro`, `portfolio`, `stock`, `crypto`, `market`),
		note("health_notes", model.AreaHealth,
			`health`, `BP[_\s]?Log`, `blood[_\s]?pressure`, `medical`, `fitness`, `workout`, `exercise`),
		note("work_notes", model.AreaWork,
			`resume`, `cv`, `career`, `job[_\s]?search`, `interview`, `work[_\s]?notes`),
		note("family_notes", model.AreaFamily,
			`family`, `kids`, `children`, `parenting`, `school`),
		note("learning_notes", model.AreaLearning,
			`course`, `tutorial`, `lesson`, `study[_\s]?notes`, `learning`),
		note("project_notes", model.AreaProjects,
			`project[_\s]?notes`, `hobby`, `diy`, `build[_\s]?log`),
	}
}

// FrontmatterCategoryRule routes a note by its frontmatter category.
type FrontmatterCategoryRule struct{}

// Name implements MetadataRule.
func (FrontmatterCategoryRule) Name() string { return "frontmatter_category" }

// Evaluate implements MetadataRule.
func (r FrontmatterCategoryRule) Evaluate(facts model.Facts) (Match, bool) {
	if facts.Note == nil || facts.Note.Category == "" {
		return Match{}, false
	}
	area, ok := CategoryToArea[strings.ToLower(strings.TrimSpace(facts.Note.Category))]
	if !ok {
		return Match{}, false
	}
	return Match{
		Rule:       r.Name(),
		Category:   model.CategoryNote,
		Action:     model.ActionMove,
		Domain:     area,
		Confidence: 0.95,
		Reasoning:  "Frontmatter category: " + facts.Note.Category,
	}, true
}

// FrontmatterTagRule routes a note by the first tag with a known area.
type FrontmatterTagRule struct{}

// Name implements MetadataRule.
func (FrontmatterTagRule) Name() string { return "frontmatter_tag" }

// Evaluate implements MetadataRule.
func (r FrontmatterTagRule) Evaluate(facts model.Facts) (Match, bool) {
	if facts.Note == nil {
		return Match{}, false
	}
	for _, tag := range facts.Note.Tags {
		key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		area, ok := TagKeywords[key]
		if !ok {
			continue
		}
		return Match{
			Rule:       r.Name(),
			Category:   model.CategoryNote,
			Action:     model.ActionMove,
			Domain:     area,
			Confidence: 0.9,
			Reasoning:  "Frontmatter tag: " + tag,
		}, true
	}
	return Match{}, false
}

// NewFileEngine builds the engine for loose files.
func NewFileEngine() *Engine {
	return MustEngine(DefaultFileRules())
}

// NewNoteEngine builds the engine for vault notes.
func NewNoteEngine() *Engine {
	return MustEngine(DefaultNoteRules(), FrontmatterCategoryRule{}, FrontmatterTagRule{})
}
