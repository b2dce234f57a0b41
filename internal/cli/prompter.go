package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/review"
)

// PrompterOptions describes what the reviewer may choose from.
type PrompterOptions struct {
	// Actions allowed when editing a plan.
	Actions []model.Action
	// Labels offered as edit destinations (domains or vault areas).
	Labels []string
	// CanDelete offers the force-delete shortcut.
	CanDelete bool
	// CanRevise offers natural-language revision.
	CanRevise bool
}

// ReviewPrompter asks the reviewer about one plan at a time on a terminal.
type ReviewPrompter struct {
	reader *LineReader
	writer io.Writer
	opts   PrompterOptions
}

// NewReviewPrompter creates a prompter reading from r and writing to w.
func NewReviewPrompter(r io.Reader, w io.Writer, opts PrompterOptions) *ReviewPrompter {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &ReviewPrompter{reader: NewLineReader(r), writer: w, opts: opts}
}

var _ review.Prompter = (*ReviewPrompter)(nil)

// Decide shows plan and reads the reviewer's choice.
func (p *ReviewPrompter) Decide(ctx context.Context, plan model.Plan, position, total int) (review.Choice, error) {
	_, _ = fmt.Fprintln(p.writer, RenderBox(fmt.Sprintf("[%d/%d] %s", position, total, plan.SourceName()), PlanCard(plan)))

	keys := p.menu()
	for {
		answer, err := p.ask(ctx, "Choice")
		if err != nil {
			return review.Choice{}, err
		}

		switch {
		case answer == "a" || answer == "":
			return review.Choice{Decision: review.DecisionApprove}, nil
		case answer == "d" && p.opts.CanDelete:
			return review.Choice{Decision: review.DecisionDelete}, nil
		case answer == "r":
			return review.Choice{Decision: review.DecisionReject}, nil
		case answer == "s":
			return review.Choice{Decision: review.DecisionDefer}, nil
		case answer == "A":
			return review.Choice{Decision: review.DecisionApproveAll}, nil
		case answer == "q":
			return review.Choice{Decision: review.DecisionQuit}, nil
		case answer == "e":
			edit, err := p.askEdit(ctx)
			if err != nil {
				return review.Choice{}, err
			}
			return review.Choice{Decision: review.DecisionEdit, Edit: edit}, nil
		case answer == "v" && p.opts.CanRevise:
			feedback, err := p.askRequired(ctx, "What should change?")
			if err != nil {
				return review.Choice{}, err
			}
			return review.Choice{Decision: review.DecisionRevise, Feedback: feedback}, nil
		default:
			_, _ = fmt.Fprintln(p.writer, FormatWarning("Choose one of: "+keys))
		}
	}
}

// Notify prints the outcome of a decision.
func (p *ReviewPrompter) Notify(msg string, err error) {
	if err != nil {
		_, _ = fmt.Fprintln(p.writer, FormatError(err.Error()))
		return
	}
	if msg != "" {
		_, _ = fmt.Fprintln(p.writer, FormatSuccess(msg))
	}
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (p *ReviewPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.ask(ctx, question+" [y/N]")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func (p *ReviewPrompter) menu() string {
	items := []string{"[a]pprove"}
	if p.opts.CanDelete {
		items = append(items, "[d]elete")
	}
	items = append(items, "[r]eject", "[e]dit")
	if p.opts.CanRevise {
		items = append(items, "re[v]ise")
	}
	items = append(items, "[s]kip", "[A]pprove all remaining", "[q]uit")
	keys := strings.Join(items, "  ")
	_, _ = fmt.Fprintln(p.writer, SubtleStyle.Render(keys))
	return keys
}

func (p *ReviewPrompter) askEdit(ctx context.Context) (review.Edit, error) {
	names := make([]string, len(p.opts.Actions))
	for i, a := range p.opts.Actions {
		names[i] = string(a)
	}

	var edit review.Edit
	for {
		answer, err := p.ask(ctx, "Action ("+strings.Join(names, "/")+")")
		if err != nil {
			return edit, err
		}
		a, ok := model.ParseAction(answer)
		if ok && slices.Contains(p.opts.Actions, a) {
			edit.Action = a
			break
		}
		_, _ = fmt.Fprintln(p.writer, FormatWarning("Unknown action: "+answer))
	}
	if !edit.Action.Relocates() {
		return edit, nil
	}

	for i, label := range p.opts.Labels {
		_, _ = fmt.Fprintf(p.writer, "  %d. %s\n", i+1, label)
	}
	label, err := p.askRequired(ctx, "Destination (number or name)")
	if err != nil {
		return edit, err
	}
	edit.Domain = p.pickLabel(label)

	if edit.Action == model.ActionMove {
		sub, err := p.ask(ctx, "Subfolder (blank for default)")
		if err != nil {
			return edit, err
		}
		edit.Subfolder = sub
	}
	return edit, nil
}

func (p *ReviewPrompter) pickLabel(answer string) string {
	var n int
	if _, err := fmt.Sscanf(answer, "%d", &n); err == nil && n >= 1 && n <= len(p.opts.Labels) {
		return p.opts.Labels[n-1]
	}
	return answer
}

func (p *ReviewPrompter) ask(ctx context.Context, prompt string) (string, error) {
	_, _ = fmt.Fprint(p.writer, FormatPrompt(prompt))
	return p.reader.ReadLine(ctx)
}

func (p *ReviewPrompter) askRequired(ctx context.Context, prompt string) (string, error) {
	for {
		answer, err := p.ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
}
