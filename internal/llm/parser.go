package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// cleanMarkdownWrapper strips a fenced code block around a reply. An
// opening fence without a closing one (a truncated reply) is also removed.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "```") {
		return content
	}
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(content, "```") {
		if nl := strings.IndexByte(content, '\n'); nl >= 0 {
			return strings.TrimSpace(content[nl+1:])
		}
		return ""
	}
	return content
}

// wireVerdict is the oracle's JSON reply for one item. Null strings decode
// as empty.
type wireVerdict struct {
	Confidence        *float64 `json:"confidence"`
	Action            string   `json:"action"`
	Domain            string   `json:"domain"`
	Area              string   `json:"area"`
	Subfolder         string   `json:"subfolder"`
	Category          string   `json:"category"`
	Reasoning         string   `json:"reasoning"`
	SuggestedName     string   `json:"suggested_name"`
	ExtractedPattern  string   `json:"extracted_pattern"`
	ExtractedKeywords []string `json:"extracted_keywords"`
	Index             int      `json:"index"`
}

// wirePattern is the pattern-extraction reply.
type wirePattern struct {
	FilenamePattern string   `json:"filename_pattern"`
	Reasoning       string   `json:"reasoning"`
	Keywords        []string `json:"keywords"`
}

// parseVerdict decodes a single-item reply.
func parseVerdict(content string) (Verdict, error) {
	var w wireVerdict
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &w); err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	return w.verdict()
}

// parseBatch decodes a batch reply. A reply cut off mid-array is salvaged by
// keeping everything up to the last complete element.
func parseBatch(content string, logger *slog.Logger) ([]wireVerdict, error) {
	content = cleanMarkdownWrapper(content)
	if i := strings.IndexByte(content, '['); i > 0 {
		content = content[i:]
	}

	var out []wireVerdict
	err := json.Unmarshal([]byte(content), &out)
	if err == nil {
		return out, nil
	}

	logger.Warn("Oracle batch reply did not parse, attempting salvage", "error", err)
	last := strings.LastIndex(content, "},")
	if last <= 0 {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}

	out = nil
	if salvageErr := json.Unmarshal([]byte(content[:last+1]+"]"), &out); salvageErr != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	logger.Info("Salvaged classifications from truncated reply", "count", len(out))
	return out, nil
}

// parsePattern decodes a pattern-extraction reply.
func parsePattern(content string) (Pattern, error) {
	var w wirePattern
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &w); err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}

	p := Pattern{Reasoning: w.Reasoning}
	if !model.IsNullLabel(w.FilenamePattern) {
		p.FilenamePattern = w.FilenamePattern
	}
	for _, kw := range w.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			p.Keywords = append(p.Keywords, kw)
		}
	}
	return p, nil
}

func (w wireVerdict) verdict() (Verdict, error) {
	action, ok := model.ParseAction(w.Action)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: unknown action %q", common.ErrMalformedResponse, w.Action)
	}

	confidence := 0.8
	if w.Confidence != nil {
		confidence = min(max(*w.Confidence, 0), 1)
	}

	label := w.Domain
	if label == "" {
		label = w.Area
	}

	v := Verdict{
		Action:     action,
		Label:      cleanLabel(label),
		Category:   model.ParseCategory(w.Category),
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(w.Reasoning),
		Pattern:    cleanLabel(w.ExtractedPattern),
		Keywords:   w.ExtractedKeywords,
	}
	if v.Reasoning == "" {
		v.Reasoning = "AI classification"
	}
	if sub := cleanLabel(w.Subfolder); model.IsPathElement(sub) {
		v.Subfolder = sub
	}
	if name := cleanLabel(w.SuggestedName); model.IsPathElement(name) {
		v.SuggestedName = name
	}
	return v, nil
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if model.IsNullLabel(s) {
		return ""
	}
	return s
}
