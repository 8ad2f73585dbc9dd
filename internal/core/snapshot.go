package core

import "fmt"

// buildSnapshot captures the department context applicable to the resolved
// target at loan-open time. A target without a resolvable department yields an
// empty snapshot, which is permitted. The copy is never re-read from the live
// directory after the loan commits.
func buildSnapshot(view TransactionView, resolved resolvedTarget) DepartmentSnapshot {
	snapshot := DepartmentSnapshot{}
	if resolved.DepartmentID == nil {
		return snapshot
	}
	id := *resolved.DepartmentID
	snapshot.DepartmentID = &id
	if dept, ok := view.FindDepartment(id); ok {
		snapshot.DepartmentName = dept.Name
	}
	snapshot.PositionLabel = positionLabel(view, resolved.PersonID)
	return snapshot
}

// positionLabel renders the person's department position, when the target
// resolves to a person holding one.
func positionLabel(view TransactionView, personID *string) string {
	if personID == nil {
		return ""
	}
	person, ok := view.FindPerson(*personID)
	if !ok || person.PositionID == nil {
		return ""
	}
	position, ok := view.FindDepartmentPosition(*person.PositionID)
	if !ok {
		return ""
	}
	return fmt.Sprintf("position %d", position.Number)
}
