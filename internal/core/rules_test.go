package core

import (
	"context"
	"errors"
	"testing"

	"inventorycore/pkg/domain"
)

// The rules engine is the last line of defense: even writes that bypass the
// service orchestration must not commit a state violating the ledger
// invariants.

func openRawLoan(t *testing.T, f *fixture, assetID string, target TargetRef) (Loan, error) {
	t.Helper()
	var created Loan
	_, err := f.store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateLoan(Loan{
			AssetID:  assetID,
			Target:   target,
			Status:   domain.LoanActive,
			OpenedAt: tx.Now(),
		})
		return err
	})
	return created, err
}

func TestSingleActiveLoanRuleBlocksDirectWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.OpenLoan(ctx, admin(), OpenLoanInput{AssetID: f.asset.ID, Target: personTarget(f.person.ID)}); err != nil {
		t.Fatalf("open: %v", err)
	}
	// A raw second active loan for the same asset must be rejected by the
	// engine even though no conflict check ran.
	_, err := openRawLoan(t, f, f.asset.ID, personTarget(f.person2.ID))
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if !hasViolation(rve.Result, "single_active_loan") {
		t.Fatalf("violations = %+v", rve.Result.Violations)
	}
}

func TestDeskExclusivityRuleBlocksDirectWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.OpenLoan(ctx, admin(), OpenLoanInput{AssetID: f.asset.ID, Target: deskTarget(f.desk.ID)}); err != nil {
		t.Fatalf("open: %v", err)
	}
	// Put the second asset into assigned state first so only the desk rule
	// can fire.
	if _, err := f.store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateAsset(f.asset2.ID, func(a *Asset) error {
			a.Status = domain.StatusAssigned
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("stage asset2: %v", err)
	}
	_, err := openRawLoan(t, f, f.asset2.ID, deskTarget(f.desk.ID))
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if !hasViolation(rve.Result, "desk_exclusivity") {
		t.Fatalf("violations = %+v", rve.Result.Violations)
	}
}

func TestLoanAssetLinkRuleBlocksLoanOnUnassignedAsset(t *testing.T) {
	f := newFixture(t)

	// The asset is still available; an active loan referencing it is invalid.
	_, err := openRawLoan(t, f, f.asset.ID, personTarget(f.person.ID))
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if !hasViolation(rve.Result, "loan_asset_link") {
		t.Fatalf("violations = %+v", rve.Result.Violations)
	}
}

func TestLoanAssetLinkRuleWarnsOnDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.OpenLoan(ctx, admin(), OpenLoanInput{AssetID: f.asset.ID, Target: personTarget(f.person.ID)}); err != nil {
		t.Fatalf("open: %v", err)
	}
	// Retiring the assigned asset leaves the ledger pointing at a retired
	// asset. That commits, but with a warning on record.
	res, err := f.store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateAsset(f.asset.ID, func(a *Asset) error {
			a.Status = domain.StatusRetired
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	warned := false
	for _, v := range res.Violations {
		if v.Rule == "loan_asset_link" && v.Severity == domain.SeverityWarn {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected drift warning, got %+v", res.Violations)
	}
}

func hasViolation(res domain.Result, rule string) bool {
	for _, v := range res.Violations {
		if v.Rule == rule && v.Severity == domain.SeverityBlock {
			return true
		}
	}
	return false
}
