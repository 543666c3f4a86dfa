package tools

import (
	"context"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/tracker"
)

// memberName prefers the display name a human would recognize.
func memberName(m tracker.Member) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// issueSummary renders an issue's headline fields for a tool result.
func issueSummary(iss tracker.Issue) map[string]any {
	m := map[string]any{
		"identifier": iss.Identifier,
		"title":      iss.Title,
		"state":      iss.State.Name,
		"priority":   tracker.PriorityName(iss.Priority),
		"url":        iss.URL,
	}
	if iss.Assignee != nil {
		m["assignee"] = memberName(*iss.Assignee)
	}
	if len(iss.Labels) > 0 {
		names := make([]string, 0, len(iss.Labels))
		for _, l := range iss.Labels {
			names = append(names, l.Name)
		}
		m["labels"] = names
	}
	if iss.Project != nil {
		m["project"] = iss.Project.Name
	}
	return m
}

// issueDetail is issueSummary plus the long fields.
func issueDetail(iss tracker.Issue) map[string]any {
	m := issueSummary(iss)
	m["description"] = iss.Description
	if iss.Estimate != nil {
		m["estimate"] = *iss.Estimate
	}
	m["created_at"] = iss.CreatedAt.Format(time.RFC3339)
	m["updated_at"] = iss.UpdatedAt.Format(time.RFC3339)
	return m
}

func issueSummaries(issues []tracker.Issue) []map[string]any {
	out := make([]map[string]any, len(issues))
	for i, iss := range issues {
		out[i] = issueSummary(iss)
	}
	return out
}

// SearchIssuesTool searches team issues by title and description text.
type SearchIssuesTool struct {
	deps Deps
}

// NewSearchIssuesTool creates a new SearchIssuesTool instance.
func NewSearchIssuesTool(d Deps) *SearchIssuesTool {
	return &SearchIssuesTool{deps: d}
}

// Definition returns the tool definition for search_issues.
func (t *SearchIssuesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolSearchIssues,
		Description: "Search the team's issues by free text across titles and descriptions",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "Text to search for in issue titles and descriptions",
				},
				"limit": {
					Type:        "number",
					Description: "Maximum number of issues to return (default 25)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Name identifies the tool in the catalog.
func (t *SearchIssuesTool) Name() string { return ToolSearchIssues }

// PromptDocumentation renders the usage guide injected into the system prompt.
func (t *SearchIssuesTool) PromptDocumentation() string {
	return `- **search_issues** - Search team issues by free text
  - Parameters: query (required), limit (optional)
  - Matches against issue titles and descriptions, case-insensitively`
}

// Exec runs the search against the tracker.
func (t *SearchIssuesTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	query, err := requiredString(args, "query")
	if err != nil {
		return nil, err
	}
	limit, _ := optionalInt(args, "limit")

	issues, err := t.deps.Tracker.SearchIssues(ctx, t.deps.TeamID, query, limit)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"count":   len(issues),
		"issues":  issueSummaries(issues),
	}, nil
}

// GetIssueTool fetches one issue by its identifier.
type GetIssueTool struct {
	deps Deps
}

// NewGetIssueTool creates a new GetIssueTool instance.
func NewGetIssueTool(d Deps) *GetIssueTool {
	return &GetIssueTool{deps: d}
}

// Definition returns the tool definition for get_issue.
func (t *GetIssueTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGetIssue,
		Description: "Fetch one issue by identifier, including its description",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"identifier": {
					Type:        "string",
					Description: "Issue identifier like COD-379",
				},
			},
			Required: []string{"identifier"},
		},
	}
}

// Name identifies the tool in the catalog.
func (t *GetIssueTool) Name() string { return ToolGetIssue }

// PromptDocumentation renders the usage guide injected into the system prompt.
func (t *GetIssueTool) PromptDocumentation() string {
	return `- **get_issue** - Fetch one issue with full detail
  - Parameters: identifier (required, e.g. COD-379)
  - Returns title, description, state, priority, assignee, labels, project`
}

// Exec fetches the issue. The identifier is validated before any remote
// call.
func (t *GetIssueTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	raw, err := requiredString(args, "identifier")
	if err != nil {
		return nil, err
	}
	id, err := tracker.ParseIdentifier(raw)
	if err != nil {
		return nil, err
	}

	issue, err := t.deps.Tracker.IssueByIdentifier(ctx, id)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"issue":   issueDetail(*issue),
	}, nil
}

// ListIssuesTool lists the team's issues in a given workflow state.
type ListIssuesTool struct {
	deps Deps
}

// NewListIssuesTool creates a new ListIssuesTool instance.
func NewListIssuesTool(d Deps) *ListIssuesTool {
	return &ListIssuesTool{deps: d}
}

// Definition returns the tool definition for list_issues.
func (t *ListIssuesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListIssues,
		Description: "List the team's issues in a given workflow state",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"state": {
					Type:        "string",
					Description: "Workflow state name, e.g. Todo or In Progress (use list_statuses for the team's states)",
				},
				"limit": {
					Type:        "number",
					Description: "Maximum number of issues to return (default 25)",
				},
			},
			Required: []string{"state"},
		},
	}
}

// Name identifies the tool in the catalog.
func (t *ListIssuesTool) Name() string { return ToolListIssues }

// PromptDocumentation renders the usage guide injected into the system prompt.
func (t *ListIssuesTool) PromptDocumentation() string {
	return `- **list_issues** - List team issues in one workflow state
  - Parameters: state (required), limit (optional)
  - State names match case-insensitively; list_statuses shows the team's states`
}

// Exec lists issues by state.
func (t *ListIssuesTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	state, err := requiredString(args, "state")
	if err != nil {
		return nil, err
	}
	limit, _ := optionalInt(args, "limit")

	issues, err := t.deps.Tracker.IssuesByState(ctx, t.deps.TeamID, state, limit)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"state":   state,
		"count":   len(issues),
		"issues":  issueSummaries(issues),
	}, nil
}

// ListCommentsTool lists an issue's comment thread.
type ListCommentsTool struct {
	deps Deps
}

// NewListCommentsTool creates a new ListCommentsTool instance.
func NewListCommentsTool(d Deps) *ListCommentsTool {
	return &ListCommentsTool{deps: d}
}

// Definition returns the tool definition for list_comments.
func (t *ListCommentsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListComments,
		Description: "List the comments on one issue, oldest first",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"identifier": {
					Type:        "string",
					Description: "Issue identifier like COD-379",
				},
				"limit": {
					Type:        "number",
					Description: "Maximum number of comments to return (default 25)",
				},
			},
			Required: []string{"identifier"},
		},
	}
}

// Name identifies the tool in the catalog.
func (t *ListCommentsTool) Name() string { return ToolListComments }

// PromptDocumentation renders the usage guide injected into the system prompt.
func (t *ListCommentsTool) PromptDocumentation() string {
	return `- **list_comments** - List an issue's comments
  - Parameters: identifier (required, e.g. COD-379), limit (optional)
  - Returns author, body, and timestamp per comment, oldest first`
}

// Exec lists the issue's comments.
func (t *ListCommentsTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	raw, err := requiredString(args, "identifier")
	if err != nil {
		return nil, err
	}
	id, err := tracker.ParseIdentifier(raw)
	if err != nil {
		return nil, err
	}
	limit, _ := optionalInt(args, "limit")

	comments, err := t.deps.Tracker.Comments(ctx, id.String(), limit)
	if err != nil {
		return nil, err
	}

	rendered := make([]map[string]any, len(comments))
	for i, c := range comments {
		rendered[i] = map[string]any{
			"author":     memberName(c.Author),
			"body":       c.Body,
			"created_at": c.CreatedAt.Format(time.RFC3339),
		}
	}

	return map[string]any{
		"success":  true,
		"issue":    id.String(),
		"count":    len(comments),
		"comments": rendered,
	}, nil
}
