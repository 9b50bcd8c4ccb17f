package models

import "testing"

func TestYearGroupFor(t *testing.T) {
	tests := []struct {
		name string
		year string
		want int
	}{
		{name: "reception", year: "reception", want: 0},
		{name: "year one", year: "year1", want: 1},
		{name: "year eleven", year: "year11", want: 11},
		{name: "mixed case with space", year: "Year 7", want: 7},
		{name: "unknown label", year: "year12", want: DefaultYearGroup},
		{name: "empty", year: "", want: DefaultYearGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearGroupFor(tt.year); got != tt.want {
				t.Errorf("YearGroupFor(%q) = %d, want %d", tt.year, got, tt.want)
			}
		})
	}
}

func TestParentAvailableSlots(t *testing.T) {
	tests := []struct {
		name        string
		maxChildren int
		children    []string
		want        int
	}{
		{name: "empty roster", maxChildren: 2, want: 2},
		{name: "one free slot", maxChildren: 2, children: []string{"alice"}, want: 1},
		{name: "full", maxChildren: 1, children: []string{"alice"}, want: 0},
		{name: "zero quota", maxChildren: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ParentAccount{MaxChildren: tt.maxChildren, Children: tt.children}
			if got := p.AvailableSlots(); got != tt.want {
				t.Errorf("AvailableSlots() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParentRosterLookups(t *testing.T) {
	p := &ParentAccount{
		Children: []string{"alice", "bob"},
		Partners: []PartnerEntry{{Email: "gran@example.com"}},
	}

	if !p.HasChild("bob") || p.HasChild("carol") {
		t.Error("HasChild returned unexpected result")
	}
	if !p.HasPartner("gran@example.com") || p.HasPartner("uncle@example.com") {
		t.Error("HasPartner returned unexpected result")
	}
}

func TestEnumValidity(t *testing.T) {
	if !LogTypeDeletion.Valid() || LogType("login").Valid() {
		t.Error("LogType.Valid returned unexpected result")
	}
	if !LevelExcelling.Valid() || Level("expert").Valid() {
		t.Error("Level.Valid returned unexpected result")
	}
	if !QuestionTrueFalse.Valid() || QuestionType("essay").Valid() {
		t.Error("QuestionType.Valid returned unexpected result")
	}
}

func TestPrincipalSubject(t *testing.T) {
	child := &Principal{Role: RoleChild, Username: "alice"}
	parent := &Principal{Role: RoleParent, Email: "pat@example.com"}

	if child.Subject() != "alice" {
		t.Errorf("child Subject() = %q", child.Subject())
	}
	if parent.Subject() != "pat@example.com" {
		t.Errorf("parent Subject() = %q", parent.Subject())
	}
	if parent.IsAdmin() || !(&Principal{Role: RoleAdmin}).IsAdmin() {
		t.Error("IsAdmin returned unexpected result")
	}
}
