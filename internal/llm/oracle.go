package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// Variant selects the file organizer or the note vault prompts.
type Variant string

// Variants.
const (
	VariantFiles Variant = "files"
	VariantVault Variant = "vault"
)

// Batch limits per call.
const (
	MaxFileBatch = 20
	MaxNoteBatch = 10
)

// MaxExamples caps the corrections rendered into a prompt.
const MaxExamples = 10

// Verdict is one decoded oracle classification. Label is the raw domain
// (files) or area (vault) text, empty when the oracle gave none.
type Verdict struct {
	Action        model.Action
	Label         string
	Subfolder     string
	Category      model.Category
	SuggestedName string
	Reasoning     string
	Pattern       string
	Keywords      []string
	Confidence    float64
	Index         int
}

// Pattern is the generalization extracted from a correction.
type Pattern struct {
	FilenamePattern string
	Reasoning       string
	Keywords        []string
}

// Revision carries the plan being revised and the user's feedback.
type Revision struct {
	Action    model.Action
	Domain    string
	Subfolder string
	Reasoning string
	Feedback  string
}

// Oracle renders prompts for a Variant, calls the client and decodes replies.
type Oracle struct {
	client         Client
	logger         *slog.Logger
	now            func() time.Time
	variant        Variant
	maxTokens      int
	batchMaxTokens int
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OracleOption {
	return func(o *Oracle) { o.logger = common.OrDefault(l) }
}

// WithTokenLimits sets the reply budgets for single and batch calls.
func WithTokenLimits(single, batch int) OracleOption {
	return func(o *Oracle) {
		if single > 0 {
			o.maxTokens = single
		}
		if batch > 0 {
			o.batchMaxTokens = batch
		}
	}
}

// WithClock overrides the clock used for the naming convention date.
func WithClock(now func() time.Time) OracleOption {
	return func(o *Oracle) { o.now = now }
}

// NewOracle creates an oracle over client.
func NewOracle(client Client, variant Variant, opts ...OracleOption) *Oracle {
	o := &Oracle{
		client:         client,
		variant:        variant,
		logger:         slog.Default(),
		now:            time.Now,
		maxTokens:      500,
		batchMaxTokens: 4000,
	}
	if variant == VariantVault {
		o.batchMaxTokens = 2000
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BatchLimit is the largest batch accepted by ClassifyBatch.
func (o *Oracle) BatchLimit() int {
	if o.variant == VariantVault {
		return MaxNoteBatch
	}
	return MaxFileBatch
}

// Classify asks for a single classification. rev is nil unless revising.
func (o *Oracle) Classify(ctx context.Context, facts model.Facts, corrections []model.Correction, rev *Revision) (Verdict, error) {
	data := singleData{
		Name:        facts.Name,
		Ext:         facts.Ext,
		Size:        humanize.Comma(facts.Size),
		Modified:    dateOrUnknown(facts.ModTime),
		Metadata:    facts.MetadataBlock(),
		Today:       o.now().Format("2006-01-02"),
		Corrections: examples(corrections),
		Revision:    rev,
	}
	name := "file"
	if o.variant == VariantVault {
		name = "note"
		if facts.Note != nil {
			data.Folder = facts.Note.Folder
			data.Content = facts.Note.Preview
		}
	}

	prompt, err := render(name, data)
	if err != nil {
		return Verdict{}, err
	}

	reply, err := o.client.Complete(ctx, Request{System: systemPrompt, Prompt: prompt, MaxTokens: o.maxTokens})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", common.ErrOracleUnavailable, err)
	}

	v, err := parseVerdict(reply)
	if err != nil {
		return Verdict{}, err
	}
	o.logger.Debug("Oracle classified item",
		"name", facts.Name,
		"action", v.Action,
		"label", v.Label,
		"confidence", v.Confidence)
	return v, nil
}

// ClassifyBatch classifies up to BatchLimit items in one call. Verdicts come
// back in input order with Index set to the 0-based input position; items
// the reply omitted or could not describe are absent.
func (o *Oracle) ClassifyBatch(ctx context.Context, items []model.Facts, corrections []model.Correction) ([]Verdict, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items) > o.BatchLimit() {
		return nil, fmt.Errorf("batch of %d exceeds limit %d", len(items), o.BatchLimit())
	}

	data := batchData{Corrections: examples(corrections)}
	for i, f := range items {
		data.Items = append(data.Items, o.batchItem(i+1, f))
	}

	name := "file_batch"
	if o.variant == VariantVault {
		name = "note_batch"
	}
	prompt, err := render(name, data)
	if err != nil {
		return nil, err
	}

	reply, err := o.client.Complete(ctx, Request{System: systemPrompt, Prompt: prompt, MaxTokens: o.batchMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrOracleUnavailable, err)
	}

	wire, err := parseBatch(reply, o.logger)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(wire))
	verdicts := make([]Verdict, 0, len(wire))
	for _, w := range wire {
		idx := w.Index - 1
		if idx < 0 || idx >= len(items) {
			o.logger.Debug("Dropping batch entry with out-of-range index", "index", w.Index)
			continue
		}
		if seen[idx] {
			continue
		}
		v, err := w.verdict()
		if err != nil {
			o.logger.Warn("Dropping unusable batch entry", "name", items[idx].Name, "error", err)
			continue
		}
		seen[idx] = true
		v.Index = idx
		verdicts = append(verdicts, v)
	}
	sort.SliceStable(verdicts, func(i, j int) bool { return verdicts[i].Index < verdicts[j].Index })

	o.logger.Info("Oracle batch classified", "requested", len(items), "returned", len(verdicts))
	return verdicts, nil
}

// ExtractPattern asks the oracle to generalize a correction into a filename
// regex and keywords.
func (o *Oracle) ExtractPattern(ctx context.Context, c model.Correction) (Pattern, error) {
	prompt, err := render("pattern", c)
	if err != nil {
		return Pattern{}, err
	}
	reply, err := o.client.Complete(ctx, Request{System: systemPrompt, Prompt: prompt, MaxTokens: 300})
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", common.ErrOracleUnavailable, err)
	}
	return parsePattern(reply)
}

type singleData struct {
	Revision    *Revision
	Name        string
	Ext         string
	Size        string
	Modified    string
	Metadata    string
	Today       string
	Folder      string
	Content     string
	Corrections []string
}

type batchData struct {
	Items       []batchItem
	Corrections []string
}

type batchItem struct {
	Name     string
	Ext      string
	Size     string
	Modified string
	Summary  string
	Preview  string
	Number   int
}

var unsafePreviewChars = regexp.MustCompile(`[^\w\s.,;:!?-]`)

func (o *Oracle) batchItem(n int, f model.Facts) batchItem {
	item := batchItem{
		Number:   n,
		Name:     f.Name,
		Ext:      f.Ext,
		Size:     humanize.Comma(f.Size),
		Modified: dateOrUnknown(f.ModTime),
	}

	var parts []string
	if d := f.Document; !d.IsEmpty() {
		if d.Title != "" {
			parts = append(parts, "Title: "+squash(d.Title, 100))
		}
		if d.Author != "" {
			parts = append(parts, "Author: "+squash(d.Author, 50))
		}
		if d.FirstPageText != "" {
			preview := unsafePreviewChars.ReplaceAllString(squash(d.FirstPageText, 100), "")
			parts = append(parts, "Preview: "+preview)
		}
	}
	if note := f.Note; note != nil {
		if note.Category != "" {
			parts = append(parts, "category: "+note.Category)
		}
		if len(note.Tags) > 0 {
			tags := note.Tags
			if len(tags) > 3 {
				tags = tags[:3]
			}
			parts = append(parts, "tags: "+strings.Join(tags, ", "))
		}
		item.Preview = squash(note.Preview, 200)
	}
	item.Summary = strings.Join(parts, "; ")
	return item
}

func examples(corrections []model.Correction) []string {
	if len(corrections) > MaxExamples {
		corrections = corrections[:MaxExamples]
	}
	out := make([]string, len(corrections))
	for i, c := range corrections {
		out[i] = c.RuleDescription()
	}
	return out
}

// squash collapses whitespace and truncates to limit runes.
func squash(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit])
	}
	return s
}

func dateOrUnknown(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02")
}
