package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/sift/internal/model"
)

// Decision is one reviewer choice.
type Decision int

// Review decisions.
const (
	DecisionApprove Decision = iota
	DecisionDelete
	DecisionReject
	DecisionEdit
	DecisionDefer
	DecisionRevise
	DecisionApproveAll
	DecisionQuit
)

// Choice is a decision plus the details some decisions need.
type Choice struct {
	Feedback string
	Edit     Edit
	Decision Decision
}

// Prompter asks a reviewer what to do with a plan.
type Prompter interface {
	Decide(ctx context.Context, plan model.Plan, position, total int) (Choice, error)
	// Notify reports the outcome of a decision to the reviewer.
	Notify(msg string, err error)
}

// Tally counts the outcomes of a review session.
type Tally struct {
	Approved int
	Deleted  int
	Rejected int
	Edited   int
	Deferred int
	Revised  int
	Errors   int
}

// Run walks plans in order, applying each decision through the
// controller. Errors on individual plans are reported and counted, not
// returned; only prompt failures and cancellation end the session early.
func (c *Controller) Run(ctx context.Context, plans []model.Plan, p Prompter) (Tally, error) {
	var t Tally
	for i := 0; i < len(plans); i++ {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		plan := plans[i]

		choice, err := p.Decide(ctx, plan, i+1, len(plans))
		if err != nil {
			return t, err
		}

		switch choice.Decision {
		case DecisionQuit:
			t.Deferred += len(plans) - i
			return t, nil
		case DecisionApproveAll:
			n, err := c.ApproveAll(ctx, plans[i:])
			t.Approved += n
			if err != nil {
				t.Errors++
				p.Notify("", err)
			} else {
				p.Notify(fmt.Sprintf("Approved %d remaining plans", n), nil)
			}
			return t, nil
		case DecisionRevise:
			res, err := c.Revise(ctx, plan.ID, choice.Feedback)
			if err != nil {
				t.Errors++
				p.Notify("", err)
				continue
			}
			t.Revised++
			if res.Correction == nil {
				p.Notify("AI revision failed, nothing was learned", nil)
			}
			// Review the revised plan in place of the original.
			plans[i] = *res.Plan
			i--
		default:
			if err := c.apply(ctx, plan.ID, choice, &t); err != nil {
				t.Errors++
				p.Notify("", err)
			}
		}
	}
	return t, nil
}

func (c *Controller) apply(ctx context.Context, id string, choice Choice, t *Tally) error {
	switch choice.Decision {
	case DecisionApprove:
		if err := c.Approve(ctx, id); err != nil {
			return err
		}
		t.Approved++
	case DecisionDelete:
		if err := c.ForceDelete(ctx, id); err != nil {
			return err
		}
		t.Deleted++
	case DecisionReject:
		if err := c.Reject(ctx, id); err != nil {
			return err
		}
		t.Rejected++
	case DecisionEdit:
		if _, err := c.Edit(ctx, id, choice.Edit); err != nil {
			return err
		}
		t.Edited++
	case DecisionDefer:
		if err := c.Defer(ctx, id); err != nil {
			return err
		}
		t.Deferred++
	default:
		return errors.New("unknown decision")
	}
	return nil
}
