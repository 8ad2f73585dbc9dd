package domain

import (
	"context"
	"time"
)

// LoanFilter selects loans from the ledger. Zero-value fields are ignored.
type LoanFilter struct {
	AssetID      string
	TargetKind   TargetKind
	TargetID     string
	DepartmentID string
	// OpenedFrom and OpenedTo bound the loan's open timestamp (inclusive).
	OpenedFrom *time.Time
	OpenedTo   *time.Time
	ActiveOnly bool
}

// Matches reports whether the loan satisfies every set filter field. The
// department filter matches the loan's immutable snapshot, not the live
// directory.
func (f LoanFilter) Matches(l Loan) bool {
	if f.AssetID != "" && l.AssetID != f.AssetID {
		return false
	}
	if f.TargetKind != "" && l.Target.Kind != f.TargetKind {
		return false
	}
	if f.TargetID != "" && l.Target.ID != f.TargetID {
		return false
	}
	if f.DepartmentID != "" {
		if l.Snapshot.DepartmentID == nil || *l.Snapshot.DepartmentID != f.DepartmentID {
			return false
		}
	}
	if f.OpenedFrom != nil && l.OpenedAt.Before(*f.OpenedFrom) {
		return false
	}
	if f.OpenedTo != nil && l.OpenedAt.After(*f.OpenedTo) {
		return false
	}
	if f.ActiveOnly && !l.Active() {
		return false
	}
	return true
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Loans have no delete: the ledger is
// append-then-close-once.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time

	CreateAsset(Asset) (Asset, error)
	UpdateAsset(id string, mutator func(*Asset) error) (Asset, error)
	DeleteAsset(id string) error
	CreateAssetCategory(AssetCategory) (AssetCategory, error)
	UpdateAssetCategory(id string, mutator func(*AssetCategory) error) (AssetCategory, error)
	DeleteAssetCategory(id string) error
	CreatePerson(Person) (Person, error)
	UpdatePerson(id string, mutator func(*Person) error) (Person, error)
	DeletePerson(id string) error
	CreateOffice(Office) (Office, error)
	UpdateOffice(id string, mutator func(*Office) error) (Office, error)
	DeleteOffice(id string) error
	CreateRoom(Room) (Room, error)
	UpdateRoom(id string, mutator func(*Room) error) (Room, error)
	DeleteRoom(id string) error
	CreateDesk(Desk) (Desk, error)
	UpdateDesk(id string, mutator func(*Desk) error) (Desk, error)
	DeleteDesk(id string) error
	CreateDepartment(Department) (Department, error)
	UpdateDepartment(id string, mutator func(*Department) error) (Department, error)
	DeleteDepartment(id string) error
	CreateDepartmentPosition(DepartmentPosition) (DepartmentPosition, error)
	UpdateDepartmentPosition(id string, mutator func(*DepartmentPosition) error) (DepartmentPosition, error)
	DeleteDepartmentPosition(id string) error
	CreateLoan(Loan) (Loan, error)
	UpdateLoan(id string, mutator func(*Loan) error) (Loan, error)
}

// TransactionView provides read-only access to snapshot data for validation,
// resolution, and rules.
type TransactionView interface {
	RuleView
	FindAssetCategory(id string) (AssetCategory, bool)
	FindPerson(id string) (Person, bool)
	FindOffice(id string) (Office, bool)
	FindRoom(id string) (Room, bool)
	FindDepartment(id string) (Department, bool)
	FindDepartmentPosition(id string) (DepartmentPosition, bool)
	ListDepartments() []Department
	ListLoansMatching(LoanFilter) []Loan
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetAsset(id string) (Asset, bool)
	ListAssets() []Asset
	GetLoan(id string) (Loan, bool)
	ListLoans(LoanFilter) []Loan
	ListPersons() []Person
	ListDesks() []Desk
	ListOffices() []Office
	ListRooms() []Room
	ListDepartments() []Department
	ListDepartmentPositions() []DepartmentPosition
	ListAssetCategories() []AssetCategory
}
