package domain

import (
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoanFilterMatches(t *testing.T) {
	dept := "d1"
	closed := ts("2026-02-01T10:00:00Z")
	loan := Loan{
		AssetID:  "a1",
		Target:   TargetRef{Kind: TargetDesk, ID: "desk-9"},
		Snapshot: DepartmentSnapshot{DepartmentID: &dept, DepartmentName: "Finance"},
		Status:   LoanActive,
		OpenedAt: ts("2026-01-15T09:00:00Z"),
	}
	returned := loan
	returned.Status = LoanReturned
	returned.ClosedAt = &closed

	from := ts("2026-01-01T00:00:00Z")
	to := ts("2026-01-31T23:59:59Z")
	late := ts("2026-02-01T00:00:00Z")

	cases := []struct {
		name   string
		filter LoanFilter
		loan   Loan
		want   bool
	}{
		{"empty matches all", LoanFilter{}, loan, true},
		{"asset match", LoanFilter{AssetID: "a1"}, loan, true},
		{"asset mismatch", LoanFilter{AssetID: "a2"}, loan, false},
		{"target kind match", LoanFilter{TargetKind: TargetDesk}, loan, true},
		{"target kind mismatch", LoanFilter{TargetKind: TargetPerson}, loan, false},
		{"target id match", LoanFilter{TargetID: "desk-9"}, loan, true},
		{"department match", LoanFilter{DepartmentID: "d1"}, loan, true},
		{"department mismatch", LoanFilter{DepartmentID: "d2"}, loan, false},
		{"date range contains", LoanFilter{OpenedFrom: &from, OpenedTo: &to}, loan, true},
		{"date range after", LoanFilter{OpenedFrom: &late}, loan, false},
		{"active only keeps active", LoanFilter{ActiveOnly: true}, loan, true},
		{"active only drops returned", LoanFilter{ActiveOnly: true}, returned, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.filter.Matches(c.loan); got != c.want {
				t.Fatalf("Matches = %v, want %v", got, c.want)
			}
		})
	}
}

func TestLoanFilterNilSnapshotDepartment(t *testing.T) {
	loan := Loan{AssetID: "a1", Status: LoanActive}
	if (LoanFilter{DepartmentID: "d1"}).Matches(loan) {
		t.Fatalf("loan without snapshot department must not match department filter")
	}
}
