package resolver

import "strings"

// Outcome says how a resolution attempt ended.
type Outcome int8

const (
	// NotFound means nothing matched the query.
	NotFound Outcome = iota
	// Resolved means exactly one entity matched.
	Resolved
	// Ambiguous means two or more entities matched equally well.
	Ambiguous
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Match is the outcome of resolving a free-text reference. Entity is set
// only when Resolved; Candidates lists display names only when Ambiguous.
type Match struct {
	Outcome    Outcome
	Entity     Entity
	Candidates []string
}

// MatchName resolves a query against entities in two phases. Exact matches
// (trimmed, case-folded) on Name, DisplayName, or Email win outright; only
// when nothing matches exactly does substring matching run. So "jordan"
// resolves even when "jordan-2" also exists.
func MatchName(entities []Entity, query string) Match {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return Match{Outcome: NotFound}
	}

	var exact []Entity
	for _, e := range entities {
		if equalsFold(e.Name, needle) || equalsFold(e.DisplayName, needle) || equalsFold(e.Email, needle) {
			exact = append(exact, e)
		}
	}
	if len(exact) > 0 {
		return matchFrom(exact)
	}

	var partial []Entity
	for _, e := range entities {
		if containsFold(e.Name, needle) || containsFold(e.DisplayName, needle) || containsFold(e.Email, needle) {
			partial = append(partial, e)
		}
	}
	return matchFrom(partial)
}

func matchFrom(hits []Entity) Match {
	switch len(hits) {
	case 0:
		return Match{Outcome: NotFound}
	case 1:
		return Match{Outcome: Resolved, Entity: hits[0]}
	default:
		names := make([]string, 0, len(hits))
		for _, e := range hits {
			names = append(names, e.Display())
		}
		return Match{Outcome: Ambiguous, Candidates: names}
	}
}

func equalsFold(field, needle string) bool {
	return strings.EqualFold(strings.TrimSpace(field), needle)
}

func containsFold(field, needle string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(needle))
}
