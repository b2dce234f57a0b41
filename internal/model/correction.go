package model

import (
	"fmt"
	"time"
)

// Correction is a learned generalization of one user override.
type Correction struct {
	CreatedAt          time.Time
	LastApplied        *time.Time
	ID                 string
	OriginalFilename   string
	OriginalAction     Action
	OriginalDomain     string
	OriginalSubfolder  string
	CorrectedAction    Action
	CorrectedDomain    string
	CorrectedSubfolder string
	UserFeedback       string
	FilenamePattern    string
	Keywords           []string
	TimesApplied       int
}

// Target renders the corrected destination as "Domain/Subfolder".
func (c Correction) Target() string {
	if c.CorrectedSubfolder == "" {
		return c.CorrectedDomain
	}
	return c.CorrectedDomain + "/" + c.CorrectedSubfolder
}

// RuleDescription renders the correction as a one-line few-shot example.
func (c Correction) RuleDescription() string {
	if c.CorrectedAction.Relocates() && c.CorrectedDomain != "" {
		return fmt.Sprintf("Files like '%s' should go to %s. User said: %q",
			c.OriginalFilename, c.Target(), c.UserFeedback)
	}
	return fmt.Sprintf("Files like '%s' should get action %s. User said: %q",
		c.OriginalFilename, c.CorrectedAction, c.UserFeedback)
}
