package domain

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err is a NotFoundError for any entity.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// TargetKindError is returned when a loan request carries an unrecognised
// target discriminant.
type TargetKindError struct {
	Kind TargetKind
}

func (e TargetKindError) Error() string {
	return fmt.Sprintf("unknown loan target kind %q", e.Kind)
}

// ForbiddenError is returned when the actor lacks the scope required for an
// operation. It is a permission failure, never retried.
type ForbiddenError struct {
	Actor  string
	Action string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s is not allowed to %s", e.Actor, e.Action)
}

// ConflictKind classifies business-rule conflicts that prevent a loan
// operation under current state.
type ConflictKind string

// Conflict kinds surfaced to callers with enough detail to decide whether to
// retry against a different target.
const (
	// ConflictAssetAlreadyLoaned means an active loan already references the asset.
	ConflictAssetAlreadyLoaned ConflictKind = "asset_already_loaned"
	// ConflictDeskOccupied means another active loan already occupies the desk.
	ConflictDeskOccupied ConflictKind = "desk_occupied"
	// ConflictLoanAlreadyClosed means the loan was already returned.
	ConflictLoanAlreadyClosed ConflictKind = "loan_already_closed"
)

// ConflictError is returned when a business rule blocks the operation.
// ConflictingLoanID names the loan that holds the asset or desk, when known.
type ConflictError struct {
	Kind              ConflictKind
	ConflictingLoanID string
}

func (e ConflictError) Error() string {
	if e.ConflictingLoanID != "" {
		return fmt.Sprintf("%s (conflicting loan %s)", e.Kind, e.ConflictingLoanID)
	}
	return string(e.Kind)
}

// IsConflict reports whether err is a ConflictError of the given kind.
func IsConflict(err error, kind ConflictKind) bool {
	var ce ConflictError
	return errors.As(err, &ce) && ce.Kind == kind
}

// AssetUnavailableError is returned when a loan is opened against an asset
// that is not in the available state.
type AssetUnavailableError struct {
	AssetID string
	Status  AssetStatus
}

func (e AssetUnavailableError) Error() string {
	return fmt.Sprintf("asset %s is not available (status %s)", e.AssetID, e.Status)
}

// TransitionError is returned for an administrative status change the state
// machine does not permit.
type TransitionError struct {
	AssetID string
	From    AssetStatus
	To      AssetStatus
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("asset %s: illegal status transition %s -> %s", e.AssetID, e.From, e.To)
}

// InconsistentAssetStateError signals that the asset status and the loan
// ledger disagree, e.g. closing a loan whose asset is no longer assigned.
// It indicates data drift: the transaction aborts and the condition must be
// logged as a defect signal, never auto-corrected.
type InconsistentAssetStateError struct {
	AssetID string
	LoanID  string
	Status  AssetStatus
}

func (e InconsistentAssetStateError) Error() string {
	return fmt.Sprintf("asset %s referenced by loan %s has inconsistent status %s", e.AssetID, e.LoanID, e.Status)
}
