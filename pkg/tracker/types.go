package tracker

import (
	"strconv"
	"strings"
	"time"
)

// WorkflowState is one column of a team's workflow (e.g. Todo, In Progress).
type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Member is a tracker user visible to the team.
type Member struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Label is a team-scoped issue label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project groups issues under a named initiative.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cycle is a time-boxed iteration.
type Cycle struct {
	ID       string
	Number   int
	Name     string
	StartsAt time.Time
	EndsAt   time.Time
}

// Comment is one entry in an issue's discussion.
type Comment struct {
	ID        string
	Body      string
	Author    Member
	CreatedAt time.Time
}

// Issue is the tracker's central record.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	URL         string
	State       WorkflowState
	Priority    int
	Assignee    *Member
	Labels      []Label
	Project     *Project
	Estimate    *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateIssueInput carries the fields for a new issue. TeamID and Title are
// required; the rest are included only when set.
type CreateIssueInput struct {
	TeamID      string
	Title       string
	Description string
	AssigneeID  string
	StateID     string
	ProjectID   string
	LabelIDs    []string
	Priority    *int
	Estimate    *float64
}

// UpdateIssueInput carries a partial issue update. Nil fields are left
// untouched. AddLabelIDs is additive: the listed labels are joined with the
// issue's current set, never replacing it.
type UpdateIssueInput struct {
	Title       *string
	Description *string
	StateID     *string
	AssigneeID  *string
	ProjectID   *string
	Priority    *int
	Estimate    *float64
	AddLabelIDs []string
}

// ParsePriority maps the priority vocabulary (urgent, high, medium, low,
// none) to the tracker's numeric scale. Unknown tokens fall through to a
// bare integer parse so server-native values pass untranslated.
func ParsePriority(token string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "urgent":
		return 1, true
	case "high":
		return 2, true
	case "medium":
		return 3, true
	case "low":
		return 4, true
	case "none", "no priority":
		return 0, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(token)); err == nil && n >= 0 {
		return n, true
	}
	return 0, false
}

// PriorityName renders a numeric priority back into the vocabulary.
func PriorityName(priority int) string {
	switch priority {
	case 0:
		return "none"
	case 1:
		return "urgent"
	case 2:
		return "high"
	case 3:
		return "medium"
	case 4:
		return "low"
	default:
		return strconv.Itoa(priority)
	}
}

// MatchState finds a workflow state by name, case-insensitively. Tokens
// that match nothing are passed through to the server by the caller.
func MatchState(states []WorkflowState, token string) (WorkflowState, bool) {
	want := strings.ToLower(strings.TrimSpace(token))
	for _, s := range states {
		if strings.ToLower(s.Name) == want {
			return s, true
		}
	}
	return WorkflowState{}, false
}
