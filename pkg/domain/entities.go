// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by inventorycore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityAsset identifies a tracked physical asset record.
	EntityAsset EntityType = "asset"
	// EntityAssetCategory identifies an asset category record.
	EntityAssetCategory EntityType = "asset_category"
	// EntityPerson identifies a person directory record.
	EntityPerson EntityType = "person"
	// EntityOffice identifies an office record.
	EntityOffice EntityType = "office"
	// EntityRoom identifies a room record.
	EntityRoom EntityType = "room"
	// EntityDesk identifies a desk record.
	EntityDesk EntityType = "desk"
	// EntityDepartment identifies a department record.
	EntityDepartment EntityType = "department"
	// EntityDepartmentPosition identifies a numbered position within a department.
	EntityDepartmentPosition EntityType = "department_position"
	// EntityLoan identifies a loan ledger record.
	EntityLoan EntityType = "loan"
)

// AssetStatus represents the lifecycle state of an asset.
type AssetStatus string

// Canonical asset statuses. Loan operations drive only the
// available/assigned pair; in_service and retired are administrative.
const (
	StatusAvailable AssetStatus = "available"
	StatusAssigned  AssetStatus = "assigned"
	StatusInService AssetStatus = "in_service"
	StatusRetired   AssetStatus = "retired"
)

// assetTransitions enumerates the permitted status transitions. Retired is
// terminal.
var assetTransitions = map[AssetStatus][]AssetStatus{
	StatusAvailable: {StatusAssigned, StatusInService, StatusRetired},
	StatusAssigned:  {StatusAvailable, StatusRetired},
	StatusInService: {StatusAvailable, StatusRetired},
	StatusRetired:   {},
}

// CanTransition reports whether an asset may move from one status to another.
func CanTransition(from, to AssetStatus) bool {
	for _, next := range assetTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LoanStatus represents the lifecycle state of a loan record.
type LoanStatus string

// Loan statuses. A loan is active until returned; it is never deleted.
const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
)

// TargetKind discriminates the loan target union.
type TargetKind string

// Loan target kinds. Desk targets carry an exclusivity constraint; the
// others allow any number of concurrent loans.
const (
	TargetPerson     TargetKind = "person"
	TargetDesk       TargetKind = "desk"
	TargetOffice     TargetKind = "office"
	TargetDepartment TargetKind = "department"
)

// Valid reports whether the kind is one of the recognised discriminants.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetPerson, TargetDesk, TargetOffice, TargetDepartment:
		return true
	}
	return false
}

// TargetRef is a discriminated reference to a loan target. It is resolved
// against the organizational directory before a loan opens; the engine never
// owns the referenced entity.
type TargetRef struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Office represents a physical office location.
type Office struct {
	Base
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Department represents an organizational unit within an office.
// Department names are unique per office.
type Department struct {
	Base
	OfficeID string `json:"office_id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
}

// DepartmentPosition is a numbered position slot within a department.
// Numbers are unique per department.
type DepartmentPosition struct {
	Base
	DepartmentID string `json:"department_id"`
	Number       int    `json:"number"`
}

// Room represents a room within an office.
type Room struct {
	Base
	OfficeID string `json:"office_id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
}

// Desk represents a bookable desk within a room. Desk codes are unique per
// room. OccupantID optionally links the desk to the person currently seated
// at it, which the snapshot builder uses to resolve a desk's department.
type Desk struct {
	Base
	RoomID     string  `json:"room_id"`
	Code       string  `json:"code"`
	OccupantID *string `json:"occupant_id,omitempty"`
}

// AssetCategory classifies assets. Category names are unique.
type AssetCategory struct {
	Base
	Name string `json:"name"`
}

// Person represents an employee in the directory.
type Person struct {
	Base
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	PositionID   *string `json:"position_id,omitempty"`
}

// Asset represents a tracked physical item with a lifecycle status.
// Serial numbers are unique. Assets are never hard-deleted while loan
// history references them; retirement is a status change.
type Asset struct {
	Base
	CategoryID   string      `json:"category_id"`
	Name         string      `json:"name"`
	SerialNumber string      `json:"serial_number"`
	AssetTag     string      `json:"asset_tag,omitempty"`
	Status       AssetStatus `json:"status"`
	PurchaseDate *time.Time  `json:"purchase_date,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// DepartmentSnapshot is an immutable copy of the organizational context taken
// when a loan opens. Later department reorganizations never rewrite it. A nil
// DepartmentID means the department could not be resolved at open time, which
// is permitted.
type DepartmentSnapshot struct {
	DepartmentID   *string `json:"department_id,omitempty"`
	DepartmentName string  `json:"department_name,omitempty"`
	PositionLabel  string  `json:"position_label,omitempty"`
}

// Loan is a time-bounded assignment of one asset to one target. It is the
// audit trail: created once, closed once, never deleted.
type Loan struct {
	Base
	AssetID   string             `json:"asset_id"`
	Target    TargetRef          `json:"target"`
	Snapshot  DepartmentSnapshot `json:"snapshot"`
	Status    LoanStatus         `json:"status"`
	OpenedAt  time.Time          `json:"opened_at"`
	DueDate   *time.Time         `json:"due_date,omitempty"`
	ClosedAt  *time.Time         `json:"closed_at,omitempty"`
	IssuedBy  string             `json:"issued_by,omitempty"`
	CreatedBy string             `json:"created_by,omitempty"`
}

// Active reports whether the loan has no end timestamp yet.
func (l Loan) Active() bool {
	return l.Status == LoanActive && l.ClosedAt == nil
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
