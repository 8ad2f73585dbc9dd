package domain

import "testing"

func TestCanTransitionAllowsLoanLifecyclePair(t *testing.T) {
	if !CanTransition(StatusAvailable, StatusAssigned) {
		t.Fatalf("available -> assigned must be permitted")
	}
	if !CanTransition(StatusAssigned, StatusAvailable) {
		t.Fatalf("assigned -> available must be permitted")
	}
}

func TestCanTransitionAdministrative(t *testing.T) {
	cases := []struct {
		from, to AssetStatus
		want     bool
	}{
		{StatusAvailable, StatusInService, true},
		{StatusInService, StatusAvailable, true},
		{StatusAvailable, StatusRetired, true},
		{StatusAssigned, StatusRetired, true},
		{StatusInService, StatusRetired, true},
		{StatusAssigned, StatusInService, false},
		{StatusInService, StatusAssigned, false},
		{StatusRetired, StatusAvailable, false},
		{StatusRetired, StatusAssigned, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestRetiredIsTerminal(t *testing.T) {
	for _, to := range []AssetStatus{StatusAvailable, StatusAssigned, StatusInService, StatusRetired} {
		if CanTransition(StatusRetired, to) {
			t.Fatalf("retired -> %s must be rejected", to)
		}
	}
}

func TestTargetKindValid(t *testing.T) {
	for _, k := range []TargetKind{TargetPerson, TargetDesk, TargetOffice, TargetDepartment} {
		if !k.Valid() {
			t.Errorf("kind %s should be valid", k)
		}
	}
	if TargetKind("printer").Valid() {
		t.Fatalf("unknown kind should be invalid")
	}
}
