package resolver

import (
	"testing"
)

func teamMembers() []Entity {
	return []Entity{
		{ID: "mem-1", Name: "jordan", DisplayName: "Jordan Lee", Email: "jordan@example.com"},
		{ID: "mem-2", Name: "joanna", DisplayName: "Joanna Park", Email: "joanna@example.com"},
		{ID: "mem-3", Name: "sam", DisplayName: "Sam Chen", Email: "sam@example.com"},
	}
}

func TestMatchNameExactWins(t *testing.T) {
	// "jo" is someone's actual handle here; the substring matches against
	// jordan and joanna must not drown out the exact hit.
	entities := append(teamMembers(), Entity{ID: "mem-4", Name: "jo", DisplayName: "Jo Okafor"})

	m := MatchName(entities, "jo")
	if m.Outcome != Resolved {
		t.Fatalf("outcome = %s, want resolved", m.Outcome)
	}
	if m.Entity.ID != "mem-4" {
		t.Errorf("resolved %q, want the exact handle mem-4", m.Entity.ID)
	}
}

func TestMatchNameExactIsTrimmedAndCaseInsensitive(t *testing.T) {
	for _, query := range []string{"jordan", "JORDAN", "  Jordan  ", "Jordan Lee", "jordan@example.com"} {
		m := MatchName(teamMembers(), query)
		if m.Outcome != Resolved || m.Entity.ID != "mem-1" {
			t.Errorf("MatchName(%q) = %+v, want mem-1 resolved", query, m)
		}
	}
}

func TestMatchNameSubstringFallback(t *testing.T) {
	m := MatchName(teamMembers(), "Chen")
	if m.Outcome != Resolved || m.Entity.ID != "mem-3" {
		t.Errorf("MatchName(Chen) = %+v, want mem-3 via substring", m)
	}
}

func TestMatchNameAmbiguousListsDisplayNames(t *testing.T) {
	m := MatchName(teamMembers(), "Jo")
	if m.Outcome != Ambiguous {
		t.Fatalf("outcome = %s, want ambiguous", m.Outcome)
	}
	if len(m.Candidates) != 2 {
		t.Fatalf("candidates = %v, want both close matches", m.Candidates)
	}
	if m.Candidates[0] != "Jordan Lee" || m.Candidates[1] != "Joanna Park" {
		t.Errorf("candidates = %v, want display names", m.Candidates)
	}
}

func TestMatchNameNotFound(t *testing.T) {
	m := MatchName(teamMembers(), "Zebulon")
	if m.Outcome != NotFound {
		t.Errorf("outcome = %s, want not_found", m.Outcome)
	}
}

func TestMatchNameEmptyQuery(t *testing.T) {
	if m := MatchName(teamMembers(), "   "); m.Outcome != NotFound {
		t.Errorf("blank query outcome = %s, want not_found", m.Outcome)
	}
}

func TestMatchNameCandidatesFallBackToName(t *testing.T) {
	labels := []Entity{
		{ID: "lbl-1", Name: "infra"},
		{ID: "lbl-2", Name: "infra-debt"},
	}

	m := MatchName(labels, "inf")
	if m.Outcome != Ambiguous {
		t.Fatalf("outcome = %s, want ambiguous", m.Outcome)
	}
	if m.Candidates[0] != "infra" || m.Candidates[1] != "infra-debt" {
		t.Errorf("candidates = %v, want label names", m.Candidates)
	}
}

func TestMatchNameExactAmbiguity(t *testing.T) {
	// Two people with the same display name stay ambiguous; resolution
	// must not silently pick one.
	entities := []Entity{
		{ID: "mem-1", Name: "asmith", DisplayName: "Alex Smith"},
		{ID: "mem-2", Name: "alsmith", DisplayName: "Alex Smith"},
	}

	m := MatchName(entities, "Alex Smith")
	if m.Outcome != Ambiguous {
		t.Errorf("outcome = %s, want ambiguous", m.Outcome)
	}
}
