package core

import (
	"inventorycore/pkg/domain"
)

// resolvedTarget is the outcome of resolving a TargetRef against the
// directory: the validated reference plus the organizational context needed
// for authorization scoping and the department snapshot.
type resolvedTarget struct {
	Ref          TargetRef
	OfficeID     *string
	DepartmentID *string
	// PersonID is set for person targets and for desk targets with an
	// occupant; the snapshot builder uses it to resolve a position label.
	PersonID *string
}

// Scope converts the resolution into an authorization scope.
func (r resolvedTarget) Scope() Scope {
	return Scope{Target: r.Ref, OfficeID: r.OfficeID, DepartmentID: r.DepartmentID}
}

// resolveTarget validates the reference and derives its office and department
// through the directory. It has no side effects.
func resolveTarget(view TransactionView, ref TargetRef) (resolvedTarget, error) {
	if !ref.Kind.Valid() {
		return resolvedTarget{}, domain.TargetKindError{Kind: ref.Kind}
	}
	resolved := resolvedTarget{Ref: ref}
	switch ref.Kind {
	case domain.TargetPerson:
		person, ok := view.FindPerson(ref.ID)
		if !ok {
			return resolvedTarget{}, domain.NotFoundError{Entity: domain.EntityPerson, ID: ref.ID}
		}
		resolved.PersonID = &person.ID
		resolved.DepartmentID = person.DepartmentID
		resolved.OfficeID = officeOfDepartment(view, person.DepartmentID)
	case domain.TargetDesk:
		desk, ok := view.FindDesk(ref.ID)
		if !ok {
			return resolvedTarget{}, domain.NotFoundError{Entity: domain.EntityDesk, ID: ref.ID}
		}
		if room, ok := view.FindRoom(desk.RoomID); ok {
			resolved.OfficeID = &room.OfficeID
		}
		if desk.OccupantID != nil {
			if occupant, ok := view.FindPerson(*desk.OccupantID); ok {
				resolved.PersonID = &occupant.ID
				resolved.DepartmentID = occupant.DepartmentID
			}
		}
	case domain.TargetOffice:
		office, ok := view.FindOffice(ref.ID)
		if !ok {
			return resolvedTarget{}, domain.NotFoundError{Entity: domain.EntityOffice, ID: ref.ID}
		}
		resolved.OfficeID = &office.ID
		resolved.DepartmentID = soleDepartmentOfOffice(view, office.ID)
	case domain.TargetDepartment:
		dept, ok := view.FindDepartment(ref.ID)
		if !ok {
			return resolvedTarget{}, domain.NotFoundError{Entity: domain.EntityDepartment, ID: ref.ID}
		}
		resolved.DepartmentID = &dept.ID
		resolved.OfficeID = &dept.OfficeID
	}
	return resolved, nil
}

func officeOfDepartment(view TransactionView, departmentID *string) *string {
	if departmentID == nil {
		return nil
	}
	dept, ok := view.FindDepartment(*departmentID)
	if !ok {
		return nil
	}
	return &dept.OfficeID
}

// soleDepartmentOfOffice returns the office's department when it has exactly
// one; an office with zero or several departments yields no department
// context, which the snapshot treats as unresolved.
func soleDepartmentOfOffice(view TransactionView, officeID string) *string {
	var found *string
	for _, dept := range view.ListDepartments() {
		if dept.OfficeID != officeID {
			continue
		}
		if found != nil {
			return nil
		}
		id := dept.ID
		found = &id
	}
	return found
}
