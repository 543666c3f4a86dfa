package tools

import (
	"context"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/resolver"
)

// entitySummaries renders cached entities for a tool result.
func entitySummaries(entities []resolver.Entity, withEmail bool) []map[string]any {
	out := make([]map[string]any, len(entities))
	for i, e := range entities {
		m := map[string]any{
			"id":   e.ID,
			"name": e.Name,
		}
		if e.DisplayName != "" {
			m["display_name"] = e.DisplayName
		}
		if withEmail && e.Email != "" {
			m["email"] = e.Email
		}
		out[i] = m
	}
	return out
}

// ListStatusesTool lists the team's workflow states.
type ListStatusesTool struct {
	deps Deps
}

// NewListStatusesTool creates a new ListStatusesTool instance.
func NewListStatusesTool(d Deps) *ListStatusesTool {
	return &ListStatusesTool{deps: d}
}

// Definition returns the tool definition for list_statuses.
func (t *ListStatusesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListStatuses,
		Description: "List the team's workflow states (issue statuses)",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Name is the catalog identifier.
func (t *ListStatusesTool) Name() string { return ToolListStatuses }

// PromptDocumentation gives the model its usage notes.
func (t *ListStatusesTool) PromptDocumentation() string {
	return `- **list_statuses** - List the team's workflow states
  - No parameters
  - Use these names when filtering or moving issues`
}

// Exec lists the workflow states.
func (t *ListStatusesTool) Exec(ctx context.Context, _ map[string]any) (any, error) {
	states, err := t.deps.Tracker.WorkflowStates(ctx, t.deps.TeamID)
	if err != nil {
		return nil, err
	}

	rendered := make([]map[string]any, len(states))
	for i, s := range states {
		rendered[i] = map[string]any{
			"name": s.Name,
			"type": s.Type,
		}
	}

	return map[string]any{
		"success":  true,
		"count":    len(states),
		"statuses": rendered,
	}, nil
}

// ListMembersTool lists the team's members from the entity cache.
type ListMembersTool struct {
	deps Deps
}

// NewListMembersTool creates a new ListMembersTool instance.
func NewListMembersTool(d Deps) *ListMembersTool {
	return &ListMembersTool{deps: d}
}

// Definition returns the tool definition for list_members.
func (t *ListMembersTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListMembers,
		Description: "List the team's members (assignable users)",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Name is the catalog identifier.
func (t *ListMembersTool) Name() string { return ToolListMembers }

// PromptDocumentation gives the model its usage notes.
func (t *ListMembersTool) PromptDocumentation() string {
	return `- **list_members** - List the team's members
  - No parameters
  - Use these names when assigning issues`
}

// Exec lists the members through the resolver cache.
func (t *ListMembersTool) Exec(ctx context.Context, _ map[string]any) (any, error) {
	members, err := t.deps.Resolver.Members(ctx, t.deps.TeamID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"count":   len(members),
		"members": entitySummaries(members, true),
	}, nil
}

// ListLabelsTool lists the team's labels from the entity cache.
type ListLabelsTool struct {
	deps Deps
}

// NewListLabelsTool creates a new ListLabelsTool instance.
func NewListLabelsTool(d Deps) *ListLabelsTool {
	return &ListLabelsTool{deps: d}
}

// Definition returns the tool definition for list_labels.
func (t *ListLabelsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListLabels,
		Description: "List the team's issue labels",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Name is the catalog identifier.
func (t *ListLabelsTool) Name() string { return ToolListLabels }

// PromptDocumentation gives the model its usage notes.
func (t *ListLabelsTool) PromptDocumentation() string {
	return `- **list_labels** - List the team's issue labels
  - No parameters
  - Label additions on update_issue are additive, never replacing`
}

// Exec lists the labels through the resolver cache.
func (t *ListLabelsTool) Exec(ctx context.Context, _ map[string]any) (any, error) {
	labels, err := t.deps.Resolver.Labels(ctx, t.deps.TeamID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"count":   len(labels),
		"labels":  entitySummaries(labels, false),
	}, nil
}

// ListProjectsTool lists the team's projects from the entity cache.
type ListProjectsTool struct {
	deps Deps
}

// NewListProjectsTool creates a new ListProjectsTool instance.
func NewListProjectsTool(d Deps) *ListProjectsTool {
	return &ListProjectsTool{deps: d}
}

// Definition returns the tool definition for list_projects.
func (t *ListProjectsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListProjects,
		Description: "List the team's projects",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Name is the catalog identifier.
func (t *ListProjectsTool) Name() string { return ToolListProjects }

// PromptDocumentation gives the model its usage notes.
func (t *ListProjectsTool) PromptDocumentation() string {
	return `- **list_projects** - List the team's projects
  - No parameters
  - Use these names when filing issues under a project`
}

// Exec lists the projects through the resolver cache.
func (t *ListProjectsTool) Exec(ctx context.Context, _ map[string]any) (any, error) {
	projects, err := t.deps.Resolver.Projects(ctx, t.deps.TeamID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":  true,
		"count":    len(projects),
		"projects": entitySummaries(projects, false),
	}, nil
}

// ListCyclesTool lists the team's cycles.
type ListCyclesTool struct {
	deps Deps
}

// NewListCyclesTool creates a new ListCyclesTool instance.
func NewListCyclesTool(d Deps) *ListCyclesTool {
	return &ListCyclesTool{deps: d}
}

// Definition returns the tool definition for list_cycles.
func (t *ListCyclesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListCycles,
		Description: "List the team's cycles (time-boxed iterations)",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Name is the catalog identifier.
func (t *ListCyclesTool) Name() string { return ToolListCycles }

// PromptDocumentation gives the model its usage notes.
func (t *ListCyclesTool) PromptDocumentation() string {
	return `- **list_cycles** - List the team's cycles
  - No parameters
  - Returns cycle number, name, and start/end dates`
}

// Exec lists the cycles.
func (t *ListCyclesTool) Exec(ctx context.Context, _ map[string]any) (any, error) {
	cycles, err := t.deps.Tracker.Cycles(ctx, t.deps.TeamID)
	if err != nil {
		return nil, err
	}

	rendered := make([]map[string]any, len(cycles))
	for i, c := range cycles {
		m := map[string]any{
			"number":    c.Number,
			"starts_at": c.StartsAt.Format(time.RFC3339),
			"ends_at":   c.EndsAt.Format(time.RFC3339),
		}
		if c.Name != "" {
			m["name"] = c.Name
		}
		rendered[i] = m
	}

	return map[string]any{
		"success": true,
		"count":   len(cycles),
		"cycles":  rendered,
	}, nil
}
