package extract

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterBlock = regexp.MustCompile(`(?s)^---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(\r?\n|$)`)

// Frontmatter holds the classification-relevant frontmatter keys.
type Frontmatter struct {
	Title    string     `yaml:"title"`
	Category string     `yaml:"category"`
	Created  string     `yaml:"created"`
	Modified string     `yaml:"modified"`
	Tags     stringList `yaml:"tags"`
}

// HasClassificationHints reports whether category or tags are present.
func (f Frontmatter) HasClassificationHints() bool {
	return f.Category != "" || len(f.Tags) > 0
}

// stringList accepts a YAML scalar, a sequence, or a comma separated string.
type stringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, n := range value.Content {
			if s := strings.TrimSpace(n.Value); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(value.Value, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	}
	return nil
}

// SplitFrontmatter separates a leading YAML block from the body. Content
// without a well-formed block, or whose block does not parse, yields empty
// frontmatter and the content unchanged.
func SplitFrontmatter(content string) (Frontmatter, string) {
	var fm Frontmatter
	loc := frontmatterBlock.FindStringSubmatchIndex(content)
	if loc == nil {
		return fm, content
	}

	raw := content[loc[2]:loc[3]]
	body := content[loc[1]:]
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return Frontmatter{}, body
	}
	return fm, body
}
