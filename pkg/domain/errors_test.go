package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundErrorMessageAndDetection(t *testing.T) {
	err := NotFoundError{Entity: EntityAsset, ID: "a1"}
	if err.Error() != "asset a1 not found" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	wrapped := fmt.Errorf("open loan: %w", err)
	if !IsNotFound(wrapped) {
		t.Fatalf("IsNotFound should see through wrapping")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatalf("IsNotFound must not match unrelated errors")
	}
}

func TestConflictErrorNamesConflictingLoan(t *testing.T) {
	err := ConflictError{Kind: ConflictDeskOccupied, ConflictingLoanID: "loan-7"}
	if err.Error() != "desk_occupied (conflicting loan loan-7)" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !IsConflict(err, ConflictDeskOccupied) {
		t.Fatalf("IsConflict should match kind")
	}
	if IsConflict(err, ConflictAssetAlreadyLoaned) {
		t.Fatalf("IsConflict must discriminate kinds")
	}
}

func TestConflictErrorWithoutLoanID(t *testing.T) {
	err := ConflictError{Kind: ConflictLoanAlreadyClosed}
	if err.Error() != "loan_already_closed" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	err := TransitionError{AssetID: "a1", From: StatusRetired, To: StatusAvailable}
	want := "asset a1: illegal status transition retired -> available"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestInconsistentAssetStateErrorMessage(t *testing.T) {
	err := InconsistentAssetStateError{AssetID: "a1", LoanID: "l1", Status: StatusInService}
	want := "asset a1 referenced by loan l1 has inconsistent status in_service"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestForbiddenErrorMessage(t *testing.T) {
	err := ForbiddenError{Actor: "u1", Action: "loan.open"}
	if err.Error() != "actor u1 is not allowed to loan.open" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
