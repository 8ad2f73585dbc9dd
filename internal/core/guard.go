package core

import (
	"context"

	"inventorycore/pkg/domain"
)

// Guard actions passed to AccessGuard.Authorize.
const (
	ActionLoanOpen    = "loan.open"
	ActionLoanClose   = "loan.close"
	ActionLoanList    = "loan.list"
	ActionAssetWrite  = "asset.write"
	ActionDirectory   = "directory.write"
	ActionLoanExport  = "loan.export"
	ActionAssetStatus = "asset.status"
)

// AccessGuard authorizes an actor for an action within a resolved scope. It is
// an external collaborator from the engine's perspective; the engine only
// consults it and never mutates state when it denies.
type AccessGuard interface {
	Authorize(ctx context.Context, actor ActorContext, action string, scope Scope) error
}

// RoleGuard is the default AccessGuard over the admin/employee/company roles.
type RoleGuard struct{}

// NewRoleGuard returns the built-in role policy.
func NewRoleGuard() RoleGuard { return RoleGuard{} }

// Authorize implements AccessGuard.
//
// admin may do everything. employee may open, close, and list loans targeting
// their own person. company may operate on loans whose resolved scope belongs
// to their office and may read everything. Directory and asset writes are
// admin only.
func (RoleGuard) Authorize(_ context.Context, actor ActorContext, action string, scope Scope) error {
	deny := domain.ForbiddenError{Actor: actor.Subject, Action: action}

	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleEmployee:
		switch action {
		case ActionLoanOpen, ActionLoanClose:
			if scope.Target.Kind == domain.TargetPerson && actor.PersonID != nil && scope.Target.ID == *actor.PersonID {
				return nil
			}
			return deny
		case ActionLoanList:
			return nil
		}
		return deny
	case domain.RoleCompany:
		switch action {
		case ActionLoanOpen, ActionLoanClose:
			if actor.OfficeID != nil && scope.OfficeID != nil && *actor.OfficeID == *scope.OfficeID {
				return nil
			}
			return deny
		case ActionLoanList, ActionLoanExport:
			return nil
		}
		return deny
	}
	return deny
}
