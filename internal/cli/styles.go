// Package cli renders sift's terminal output with lipgloss and drives the
// interactive review prompts.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/sift/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#7AA2F7")
	// SuccessColor marks completed work.
	SuccessColor = lipgloss.Color("#9ECE6A")
	// WarningColor marks things that need attention.
	WarningColor = lipgloss.Color("#E0AF68")
	// ErrorColor marks failures.
	ErrorColor = lipgloss.Color("#F7768E")
	// InfoColor is used for neutral information.
	InfoColor = lipgloss.Color("#7DCFFF")
	// SubtleColor is used for secondary text.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// BoxStyle is used for bordered plan cards.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B4261")).
			Padding(0, 1)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PrimaryColor).
				PaddingRight(2)

	// TableCellStyle pads table cells.
	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)

	// PromptStyle is used for user prompts.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	FolderIcon  = "📁"
	TrashIcon   = "🗑️"
	ArchiveIcon = "📦"
	RenameIcon  = "✏️"
	SkipIcon    = "⏭️"
	RobotIcon   = "🤖"
	LearnIcon   = "🧠"
	RuleIcon    = "📏"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox renders content in a titled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, boxTitle, content))
}

// ActionIcon returns the icon for an action.
func ActionIcon(a model.Action) string {
	switch a {
	case model.ActionMove:
		return FolderIcon
	case model.ActionDelete:
		return TrashIcon
	case model.ActionArchive:
		return ArchiveIcon
	case model.ActionRename:
		return RenameIcon
	default:
		return SkipIcon
	}
}

// FormatAction renders an action in its color.
func FormatAction(a model.Action) string {
	style := InfoStyle
	switch a {
	case model.ActionDelete:
		style = ErrorStyle
	case model.ActionMove, model.ActionRename:
		style = SuccessStyle
	case model.ActionSkip:
		style = SubtleStyle
	}
	return style.Render(string(a))
}

// FormatStatus renders a plan status in its color.
func FormatStatus(s model.PlanStatus) string {
	style := SubtleStyle
	switch s {
	case model.StatusPending:
		style = WarningStyle
	case model.StatusApproved, model.StatusExecuted:
		style = SuccessStyle
	case model.StatusFailed:
		style = ErrorStyle
	case model.StatusRevised:
		style = InfoStyle
	}
	return style.Render(string(s))
}

// FormatConfidence renders a confidence as a colored percentage.
func FormatConfidence(c float64) string {
	text := fmt.Sprintf("%.0f%%", c*100)
	switch {
	case c >= 0.9:
		return SuccessStyle.Render(text)
	case c >= 0.7:
		return WarningStyle.Render(text)
	default:
		return ErrorStyle.Render(text)
	}
}

// SourceIcon returns the icon for a classification source.
func SourceIcon(s model.ClassificationSource) string {
	switch s {
	case model.SourceAI:
		return RobotIcon
	case model.SourceLearned:
		return LearnIcon
	default:
		return RuleIcon
	}
}
