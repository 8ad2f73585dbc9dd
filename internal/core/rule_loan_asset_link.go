package core

import (
	"context"
	"fmt"

	"inventorycore/pkg/domain"
)

// LoanAssetLinkRule keeps the ledger and the asset status machine in step:
// a loan created as active must leave its asset in the assigned status, and an
// active loan whose asset has drifted elsewhere (administratively retired
// under an open loan) is reported as a warning so the drift is visible without
// rewriting history.
func LoanAssetLinkRule() domain.Rule {
	return loanAssetLinkRule{}
}

type loanAssetLinkRule struct{}

func (loanAssetLinkRule) Name() string { return "loan_asset_link" }

func (loanAssetLinkRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityLoan || change.Action != domain.ActionCreate {
			continue
		}
		loan, ok := change.After.(domain.Loan)
		if !ok || !loan.Active() {
			continue
		}
		asset, found := view.FindAsset(loan.AssetID)
		if !found {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "loan_asset_link",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("loan %s references missing asset %s", loan.ID, loan.AssetID),
				Entity:   domain.EntityLoan,
				EntityID: loan.ID,
			})
			continue
		}
		if asset.Status != domain.StatusAssigned {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "loan_asset_link",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("loan %s opened while asset %s is %s, want %s", loan.ID, asset.ID, asset.Status, domain.StatusAssigned),
				Entity:   domain.EntityLoan,
				EntityID: loan.ID,
			})
		}
	}
	for _, loan := range view.ListLoans() {
		if !loan.Active() {
			continue
		}
		asset, found := view.FindAsset(loan.AssetID)
		if !found || asset.Status == domain.StatusAssigned {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "loan_asset_link",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("active loan %s has asset %s in status %s", loan.ID, loan.AssetID, asset.Status),
			Entity:   domain.EntityLoan,
			EntityID: loan.ID,
		})
	}
	return res, nil
}
