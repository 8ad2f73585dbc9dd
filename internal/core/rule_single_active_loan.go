package core

import (
	"context"
	"fmt"

	"inventorycore/pkg/domain"
)

// SingleActiveLoanRule blocks any state in which more than one active loan
// references the same asset.
func SingleActiveLoanRule() domain.Rule {
	return singleActiveLoanRule{}
}

type singleActiveLoanRule struct{}

func (singleActiveLoanRule) Name() string { return "single_active_loan" }

func (singleActiveLoanRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if !touchesLoans(changes) {
		return domain.Result{}, nil
	}
	res := domain.Result{}
	active := make(map[string]int)
	for _, loan := range view.ListLoans() {
		if !loan.Active() {
			continue
		}
		active[loan.AssetID]++
		if active[loan.AssetID] == 2 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "single_active_loan",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("asset %s has more than one active loan", loan.AssetID),
				Entity:   domain.EntityAsset,
				EntityID: loan.AssetID,
			})
		}
	}
	return res, nil
}

func touchesLoans(changes []domain.Change) bool {
	for _, change := range changes {
		if change.Entity == domain.EntityLoan {
			return true
		}
	}
	return false
}
