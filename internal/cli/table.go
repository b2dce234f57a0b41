package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/Veraticus/sift/internal/model"
)

// PlanCard renders the details of a single plan.
func PlanCard(p model.Plan) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render(fmt.Sprintf("%-12s", label)), value)
	}

	line("Action", ActionIcon(p.Action)+" "+FormatAction(p.Action))
	line("Source", p.SourcePath)
	if p.Domain != "" {
		target := p.Domain
		if p.Subfolder != "" {
			target += "/" + p.Subfolder
		}
		line("Target", target)
	}
	line("Destination", p.DestinationPath)
	line("New name", p.SuggestedName)
	line("Confidence", FormatConfidence(p.Confidence)+" "+SourceIcon(p.ClassificationSource)+" "+string(p.ClassificationSource))
	line("Reasoning", p.Reasoning)
	line("Feedback", p.UserFeedback)
	if p.RevisionCount > 0 {
		line("Revision", fmt.Sprintf("#%d of %s", p.RevisionCount, p.OriginalPlanID))
	}
	line("Error", p.ErrorMessage)
	return strings.TrimRight(b.String(), "\n")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderRow(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

// Table renders arbitrary rows under headers.
func Table(headers []string, rows [][]string) string {
	return newTable(headers...).Rows(rows...).Render()
}

// PlanTable renders plans one per row.
func PlanTable(plans []model.Plan) string {
	t := newTable("ID", "STATUS", "ACTION", "FILE", "TARGET", "CONF", "SOURCE", "CREATED")
	for _, p := range plans {
		target := p.Domain
		if p.Subfolder != "" {
			target += "/" + p.Subfolder
		}
		t.Row(
			p.ID,
			string(p.Status),
			string(p.Action),
			truncate(p.SourceName(), 40),
			target,
			fmt.Sprintf("%.0f%%", p.Confidence*100),
			string(p.ClassificationSource),
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return t.Render()
}

// HistoryTable renders status transitions oldest first.
func HistoryTable(changes []model.StatusChange) string {
	t := newTable("WHEN", "FROM", "TO", "NOTE")
	for _, c := range changes {
		from := string(c.From)
		if from == "" {
			from = "-"
		}
		t.Row(c.ChangedAt.Local().Format(time.DateTime), from, string(c.To), c.Note)
	}
	return t.Render()
}

// CorrectionTable renders learned corrections.
func CorrectionTable(corrections []model.Correction) string {
	t := newTable("ID", "FILE", "LEARNED", "PATTERN", "KEYWORDS", "USED")
	for _, c := range corrections {
		learned := string(c.CorrectedAction)
		if target := c.Target(); target != "" {
			learned += " → " + target
		}
		t.Row(
			c.ID,
			truncate(c.OriginalFilename, 32),
			learned,
			c.FilenamePattern,
			strings.Join(c.Keywords, ", "),
			fmt.Sprintf("%d", c.TimesApplied),
		)
	}
	return t.Render()
}

// SummaryView renders the pending-plan summary.
func SummaryView(s *model.Summary) string {
	if s == nil || s.Total == 0 {
		return FormatInfo("No pending plans")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", BoldStyle.Render(fmt.Sprintf("%d pending plans", s.Total)))

	actions := make([]string, 0, len(s.ByAction))
	for a := range s.ByAction {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)
	for _, a := range actions {
		action := model.Action(a)
		fmt.Fprintf(&b, "  %s %-8s %d\n", ActionIcon(action), a, s.ByAction[action])
	}

	if len(s.ByDomain) > 0 {
		b.WriteString("\n")
		for _, d := range sortedKeys(s.ByDomain) {
			fmt.Fprintf(&b, "  %-20s %d\n", d, s.ByDomain[d])
		}
	}

	if s.EstimatedFreedBytes > 0 {
		fmt.Fprintf(&b, "\n  %s\n", SubtleStyle.Render("Deletes would free about "+humanize.Bytes(uint64(s.EstimatedFreedBytes))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ResultsView renders an execution tally with per-item failures.
func ResultsView(results []model.ExecutionResult) string {
	var ok, failed int
	var b strings.Builder
	for _, r := range results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "  %s %s\n", FormatError(r.PlanID), r.Message)
	}

	summary := FormatSuccess(fmt.Sprintf("%d succeeded", ok))
	if failed > 0 {
		summary += "  " + FormatError(fmt.Sprintf("%d failed", failed))
		return summary + "\n" + strings.TrimRight(b.String(), "\n")
	}
	return summary
}

// FormatSize renders a byte count for humans.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
