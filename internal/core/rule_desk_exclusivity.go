package core

import (
	"context"
	"fmt"

	"inventorycore/pkg/domain"
)

// DeskExclusivityRule blocks any state in which more than one active loan
// occupies the same desk. Person, office, and department targets carry no
// analogous constraint.
func DeskExclusivityRule() domain.Rule {
	return deskExclusivityRule{}
}

type deskExclusivityRule struct{}

func (deskExclusivityRule) Name() string { return "desk_exclusivity" }

func (deskExclusivityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if !touchesLoans(changes) {
		return domain.Result{}, nil
	}
	res := domain.Result{}
	occupied := make(map[string]int)
	for _, loan := range view.ListLoans() {
		if !loan.Active() || loan.Target.Kind != domain.TargetDesk {
			continue
		}
		occupied[loan.Target.ID]++
		if occupied[loan.Target.ID] == 2 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "desk_exclusivity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("desk %s is occupied by more than one active loan", loan.Target.ID),
				Entity:   domain.EntityDesk,
				EntityID: loan.Target.ID,
			})
		}
	}
	return res, nil
}
