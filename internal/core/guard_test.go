package core

import (
	"context"
	"errors"
	"testing"

	"inventorycore/pkg/domain"
)

func TestRoleGuardMatrix(t *testing.T) {
	officeA, officeB := "office-a", "office-b"
	personP, personQ := "person-p", "person-q"

	self := Scope{Target: TargetRef{Kind: domain.TargetPerson, ID: personP}, OfficeID: &officeA}
	other := Scope{Target: TargetRef{Kind: domain.TargetPerson, ID: personQ}, OfficeID: &officeA}
	deskA := Scope{Target: TargetRef{Kind: domain.TargetDesk, ID: "desk-1"}, OfficeID: &officeA}
	deskB := Scope{Target: TargetRef{Kind: domain.TargetDesk, ID: "desk-2"}, OfficeID: &officeB}

	adminActor := ActorContext{Subject: "root", Role: domain.RoleAdmin}
	employeeActor := ActorContext{Subject: "emp", Role: domain.RoleEmployee, PersonID: &personP}
	companyActor := ActorContext{Subject: "mgr", Role: domain.RoleCompany, OfficeID: &officeA}

	cases := []struct {
		name    string
		actor   ActorContext
		action  string
		scope   Scope
		allowed bool
	}{
		{"admin open", adminActor, ActionLoanOpen, deskB, true},
		{"admin directory", adminActor, ActionDirectory, Scope{}, true},
		{"admin status", adminActor, ActionAssetStatus, Scope{}, true},

		{"employee open self", employeeActor, ActionLoanOpen, self, true},
		{"employee close self", employeeActor, ActionLoanClose, self, true},
		{"employee open other", employeeActor, ActionLoanOpen, other, false},
		{"employee open desk", employeeActor, ActionLoanOpen, deskA, false},
		{"employee list", employeeActor, ActionLoanList, Scope{}, true},
		{"employee export", employeeActor, ActionLoanExport, Scope{}, false},
		{"employee directory", employeeActor, ActionDirectory, Scope{}, false},
		{"employee status", employeeActor, ActionAssetStatus, Scope{}, false},

		{"company open own office", companyActor, ActionLoanOpen, deskA, true},
		{"company open other office", companyActor, ActionLoanOpen, deskB, false},
		{"company open unscoped", companyActor, ActionLoanOpen, Scope{Target: TargetRef{Kind: domain.TargetPerson, ID: personP}}, false},
		{"company list", companyActor, ActionLoanList, Scope{}, true},
		{"company export", companyActor, ActionLoanExport, Scope{}, true},
		{"company directory", companyActor, ActionDirectory, Scope{}, false},

		{"unknown role", ActorContext{Subject: "ghost", Role: "visitor"}, ActionLoanList, Scope{}, false},
	}

	guard := NewRoleGuard()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.Authorize(context.Background(), tc.actor, tc.action, tc.scope)
			if tc.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allowed {
				var forbidden domain.ForbiddenError
				if !errors.As(err, &forbidden) {
					t.Fatalf("expected ForbiddenError, got %v", err)
				}
				if forbidden.Action != tc.action {
					t.Fatalf("denied action = %q, want %q", forbidden.Action, tc.action)
				}
			}
		})
	}
}

// denyAll is a guard replacement checking the injection seam.
type denyAll struct{}

func (denyAll) Authorize(_ context.Context, actor ActorContext, action string, _ Scope) error {
	return domain.ForbiddenError{Actor: actor.Subject, Action: action}
}

func TestServiceUsesInjectedGuard(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, WithAccessGuard(denyAll{}))
	_, err := svc.OpenLoan(context.Background(), admin(), OpenLoanInput{
		AssetID: f.asset.ID,
		Target:  personTarget(f.person.ID),
	})
	var forbidden domain.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("err = %v, want ForbiddenError from injected guard", err)
	}
}
