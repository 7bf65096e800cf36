package prescription

import (
	"context"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

type Decision int

const (
	Cancel Decision = iota
	Acknowledge
)

func (d Decision) String() string {
	if d == Acknowledge {
		return "acknowledge"
	}
	return "cancel"
}

// Acknowledger is asked to decide at each safety gate. A gate is resolved
// completely before the next one is evaluated.
type Acknowledger interface {
	ReviewConflicts(ctx context.Context, conflicts []model.ConflictResult) (Decision, error)
	ReviewInteractions(ctx context.Context, interactions []model.InteractionResult) (Decision, error)
}

// Flags answers each gate from decisions made up front, as an HTTP client does
// when it resubmits after showing a dialog.
type Flags struct {
	AcknowledgeConflicts    bool
	AcknowledgeInteractions bool
}

func (f Flags) ReviewConflicts(context.Context, []model.ConflictResult) (Decision, error) {
	if f.AcknowledgeConflicts {
		return Acknowledge, nil
	}
	return Cancel, nil
}

func (f Flags) ReviewInteractions(context.Context, []model.InteractionResult) (Decision, error) {
	if f.AcknowledgeInteractions {
		return Acknowledge, nil
	}
	return Cancel, nil
}
