package core

import (
	"context"
	"errors"
	"time"

	"inventorycore/pkg/domain"
)

// OpenLoanInput carries an open request into the engine.
type OpenLoanInput struct {
	AssetID  string
	Target   TargetRef
	DueDate  *time.Time
	IssuedBy string
}

// OpenLoan creates a loan as one atomic unit: authorize, resolve the target,
// validate conflicts against the ledger, build the department snapshot, move
// the asset available -> assigned, and insert the active loan record. Every
// failure leaves the store exactly as it was.
func (s *Service) OpenLoan(ctx context.Context, actor ActorContext, input OpenLoanInput) (Loan, error) {
	start := time.Now()
	var created Loan
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()

		resolved, err := resolveTarget(view, input.Target)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, actor, ActionLoanOpen, resolved.Scope()); err != nil {
			return err
		}
		// Asset lookup stays behind the guard so a denied caller learns
		// nothing about which ids exist.
		asset, ok := view.FindAsset(input.AssetID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: input.AssetID}
		}
		if err := validateConflicts(view, asset, resolved.Ref); err != nil {
			return err
		}

		snapshot := buildSnapshot(view, resolved)

		if _, err := transition(tx, asset.ID, domain.StatusAssigned); err != nil {
			return err
		}
		issuedBy := input.IssuedBy
		if issuedBy == "" {
			issuedBy = actor.Subject
		}
		created, err = tx.CreateLoan(Loan{
			AssetID:   asset.ID,
			Target:    resolved.Ref,
			Snapshot:  snapshot,
			Status:    domain.LoanActive,
			OpenedAt:  tx.Now(),
			DueDate:   input.DueDate,
			IssuedBy:  issuedBy,
			CreatedBy: actor.Subject,
		})
		return err
	})
	s.observe(ctx, "loan.open", start, err)
	if err != nil {
		return Loan{}, err
	}
	s.logger.Info("loan opened", "loan_id", created.ID, "asset_id", created.AssetID,
		"target_kind", string(created.Target.Kind), "target_id", created.Target.ID)
	return created, nil
}

// validateConflicts performs the two ledger checks: asset availability and
// desk exclusivity. Both read the authoritative ledger inside the same atomic
// unit that performs the writes, so concurrent opens cannot slip past each
// other.
func validateConflicts(view TransactionView, asset Asset, target TargetRef) error {
	if holders := view.ListLoansMatching(LoanFilter{AssetID: asset.ID, ActiveOnly: true}); len(holders) > 0 {
		return domain.ConflictError{Kind: domain.ConflictAssetAlreadyLoaned, ConflictingLoanID: holders[0].ID}
	}
	if asset.Status != domain.StatusAvailable {
		return domain.AssetUnavailableError{AssetID: asset.ID, Status: asset.Status}
	}
	if target.Kind == domain.TargetDesk {
		if occupants := view.ListLoansMatching(LoanFilter{TargetKind: domain.TargetDesk, TargetID: target.ID, ActiveOnly: true}); len(occupants) > 0 {
			return domain.ConflictError{Kind: domain.ConflictDeskOccupied, ConflictingLoanID: occupants[0].ID}
		}
	}
	return nil
}

// CloseLoan returns a loan: the asset moves assigned -> available and the loan
// gets its end timestamp and returned status, atomically. Closing twice fails
// with a loan_already_closed conflict; an asset whose status has drifted away
// from assigned aborts with an inconsistency error and is logged as a defect
// signal.
func (s *Service) CloseLoan(ctx context.Context, actor ActorContext, loanID string) (Loan, error) {
	start := time.Now()
	var closed Loan
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()

		loan, ok := view.FindLoan(loanID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityLoan, ID: loanID}
		}
		if err := s.guard.Authorize(ctx, actor, ActionLoanClose, scopeForLoan(view, loan)); err != nil {
			return err
		}
		if !loan.Active() {
			return domain.ConflictError{Kind: domain.ConflictLoanAlreadyClosed, ConflictingLoanID: loan.ID}
		}
		asset, ok := view.FindAsset(loan.AssetID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: loan.AssetID}
		}
		if asset.Status != domain.StatusAssigned {
			return domain.InconsistentAssetStateError{AssetID: asset.ID, LoanID: loan.ID, Status: asset.Status}
		}
		if _, err := transition(tx, asset.ID, domain.StatusAvailable); err != nil {
			return err
		}
		closedAt := tx.Now()
		var err error
		closed, err = tx.UpdateLoan(loan.ID, func(l *Loan) error {
			l.Status = domain.LoanReturned
			l.ClosedAt = &closedAt
			return nil
		})
		return err
	})
	s.observe(ctx, "loan.close", start, err)
	if err != nil {
		var drift domain.InconsistentAssetStateError
		if errors.As(err, &drift) {
			s.logger.Error("asset status and ledger disagree", "asset_id", drift.AssetID,
				"loan_id", drift.LoanID, "status", string(drift.Status))
		}
		return Loan{}, err
	}
	s.logger.Info("loan closed", "loan_id", closed.ID, "asset_id", closed.AssetID)
	return closed, nil
}

// scopeForLoan recovers the authorization scope of an existing loan. The
// directory may have moved on since the loan opened, so resolution is
// best-effort with the immutable snapshot as fallback.
func scopeForLoan(view TransactionView, loan Loan) Scope {
	if resolved, err := resolveTarget(view, loan.Target); err == nil {
		return resolved.Scope()
	}
	return Scope{Target: loan.Target, DepartmentID: loan.Snapshot.DepartmentID}
}

// GetLoan retrieves one ledger record.
func (s *Service) GetLoan(ctx context.Context, actor ActorContext, id string) (Loan, error) {
	loan, ok := s.store.GetLoan(id)
	if !ok {
		return Loan{}, domain.NotFoundError{Entity: domain.EntityLoan, ID: id}
	}
	if err := s.guard.Authorize(ctx, actor, ActionLoanList, Scope{Target: loan.Target}); err != nil {
		return Loan{}, err
	}
	if actor.Role == domain.RoleEmployee && !targetsActor(loan, actor) {
		return Loan{}, domain.ForbiddenError{Actor: actor.Subject, Action: ActionLoanList}
	}
	return loan, nil
}

// ListActiveLoans returns open loans matching the filter, newest first.
func (s *Service) ListActiveLoans(ctx context.Context, actor ActorContext, filter LoanFilter) ([]Loan, error) {
	filter.ActiveOnly = true
	return s.listLoans(ctx, actor, filter)
}

// ListLoanHistory returns all ledger records matching the filter, open and
// closed, newest first.
func (s *Service) ListLoanHistory(ctx context.Context, actor ActorContext, filter LoanFilter) ([]Loan, error) {
	return s.listLoans(ctx, actor, filter)
}

func (s *Service) listLoans(ctx context.Context, actor ActorContext, filter LoanFilter) ([]Loan, error) {
	if err := s.guard.Authorize(ctx, actor, ActionLoanList, Scope{}); err != nil {
		return nil, err
	}
	// Employees only ever see loans targeting their own person.
	if actor.Role == domain.RoleEmployee {
		if actor.PersonID == nil {
			return []Loan{}, nil
		}
		if filter.TargetID != "" && (filter.TargetKind != domain.TargetPerson || filter.TargetID != *actor.PersonID) {
			return []Loan{}, nil
		}
		filter.TargetKind = domain.TargetPerson
		filter.TargetID = *actor.PersonID
	}
	return s.store.ListLoans(filter), nil
}

func targetsActor(loan Loan, actor ActorContext) bool {
	return loan.Target.Kind == domain.TargetPerson && actor.PersonID != nil && loan.Target.ID == *actor.PersonID
}

// Administrative status transitions ------------------------------------------

// PlaceAssetInService moves an available asset into maintenance, out of the
// loan pool.
func (s *Service) PlaceAssetInService(ctx context.Context, actor ActorContext, assetID string) (Asset, error) {
	return s.transitionAsset(ctx, actor, "asset.in_service", assetID, domain.StatusInService)
}

// ReturnAssetToService moves an in-service asset back into the loan pool.
func (s *Service) ReturnAssetToService(ctx context.Context, actor ActorContext, assetID string) (Asset, error) {
	return s.transitionAsset(ctx, actor, "asset.restore", assetID, domain.StatusAvailable)
}

// RetireAsset retires an asset permanently. Retirement is soft: the record
// stays while loan history references it.
func (s *Service) RetireAsset(ctx context.Context, actor ActorContext, assetID string) (Asset, error) {
	return s.transitionAsset(ctx, actor, "asset.retire", assetID, domain.StatusRetired)
}

func (s *Service) transitionAsset(ctx context.Context, actor ActorContext, operation, assetID string, to domain.AssetStatus) (Asset, error) {
	start := time.Now()
	var updated Asset
	err := func() error {
		if err := s.guard.Authorize(ctx, actor, ActionAssetStatus, Scope{}); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = transition(tx, assetID, to)
			return err
		})
		return err
	}()
	s.observe(ctx, operation, start, err)
	if err != nil {
		return Asset{}, err
	}
	return updated, nil
}

// transition applies one status change under the state machine rules.
func transition(tx Transaction, assetID string, to domain.AssetStatus) (Asset, error) {
	return tx.UpdateAsset(assetID, func(a *Asset) error {
		if !domain.CanTransition(a.Status, to) {
			return domain.TransitionError{AssetID: a.ID, From: a.Status, To: to}
		}
		a.Status = to
		return nil
	})
}
