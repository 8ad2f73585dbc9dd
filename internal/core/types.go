// Package core implements the asset allocation engine: transactional loan
// orchestration, target resolution, conflict validation, department
// snapshotting, and the access guard seam. Persistence and blob backends live
// under internal/infra; this package composes them.
package core

import "inventorycore/pkg/domain"

type (
	// Asset aliases the domain asset record.
	Asset = domain.Asset
	// AssetCategory aliases the domain asset category.
	AssetCategory = domain.AssetCategory
	// Person aliases the domain person record.
	Person = domain.Person
	// Office aliases the domain office record.
	Office = domain.Office
	// Room aliases the domain room record.
	Room = domain.Room
	// Desk aliases the domain desk record.
	Desk = domain.Desk
	// Department aliases the domain department record.
	Department = domain.Department
	// DepartmentPosition aliases the domain position record.
	DepartmentPosition = domain.DepartmentPosition
	// Loan aliases the domain loan ledger record.
	Loan = domain.Loan
	// LoanFilter aliases the domain ledger filter.
	LoanFilter = domain.LoanFilter
	// TargetRef aliases the discriminated loan target reference.
	TargetRef = domain.TargetRef
	// DepartmentSnapshot aliases the immutable loan-time org context.
	DepartmentSnapshot = domain.DepartmentSnapshot
	// ActorContext aliases the caller identity passed into every operation.
	ActorContext = domain.ActorContext
	// Scope aliases the resolved authorization scope.
	Scope = domain.Scope
	// Result aliases the rule evaluation result.
	Result = domain.Result
	// Change aliases the transaction change record.
	Change = domain.Change
	// RulesEngine aliases the rule evaluation engine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases the persistence transaction contract.
	Transaction = domain.Transaction
	// TransactionView aliases the read-only transaction snapshot.
	TransactionView = domain.TransactionView
	// PersistentStore aliases the durable store contract.
	PersistentStore = domain.PersistentStore
)
