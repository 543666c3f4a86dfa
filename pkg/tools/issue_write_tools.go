package tools

import (
	"context"
	"fmt"

	"github.com/Koplal/tai-discord-bot/pkg/tracker"
)

// CreateIssueTool files a new issue. Free-text assignee, label, project,
// and status references are resolved before the create; any resolution
// failure aborts the whole call.
type CreateIssueTool struct {
	deps Deps
}

// NewCreateIssueTool creates a new CreateIssueTool instance.
func NewCreateIssueTool(d Deps) *CreateIssueTool {
	return &CreateIssueTool{deps: d}
}

// Definition returns the tool definition for create_issue.
func (t *CreateIssueTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolCreateIssue,
		Description: "Create a new issue for the team. Names for assignee, labels, and project may be free text; they are resolved against the team before anything is created.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"title": {
					Type:        "string",
					Description: "Issue title",
				},
				"description": {
					Type:        "string",
					Description: "Issue description (markdown)",
				},
				"assignee": {
					Type:        "string",
					Description: "Member to assign, by name, display name, or email",
				},
				"labels": {
					Type:        "array",
					Description: "Label names to apply",
					Items:       &Property{Type: "string"},
				},
				"project": {
					Type:        "string",
					Description: "Project to file the issue under, by name",
				},
				"status": {
					Type:        "string",
					Description: "Workflow state for the new issue, by name",
				},
				"priority": {
					Type:        "string",
					Description: "Priority: urgent, high, medium, low, or none",
				},
				"estimate": {
					Type:        "number",
					Description: "Point estimate",
				},
			},
			Required: []string{"title"},
		},
	}
}

// Name reports the catalog identifier.
func (t *CreateIssueTool) Name() string { return ToolCreateIssue }

// PromptDocumentation describes the tool for the model's system prompt.
func (t *CreateIssueTool) PromptDocumentation() string {
	return `- **create_issue** - Create a new issue
  - Parameters: title (required), description, assignee, labels, project, status, priority, estimate
  - Assignee/labels/project are resolved by name first; ambiguous or unknown names fail the call without creating anything`
}

// Exec resolves every free-text field, then creates the issue.
func (t *CreateIssueTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	title, err := requiredString(args, "title")
	if err != nil {
		return nil, err
	}

	input := tracker.CreateIssueInput{
		TeamID:      t.deps.TeamID,
		Title:       title,
		Description: optionalString(args, "description"),
	}

	var resolution fieldResolution
	if assignee := optionalString(args, "assignee"); assignee != "" {
		id, resolveErr := resolution.assignee(ctx, t.deps, assignee)
		if resolveErr != nil {
			return nil, resolveErr
		}
		input.AssigneeID = id
	}
	labelNames, err := stringListArg(args, "labels")
	if err != nil {
		return nil, err
	}
	if len(labelNames) > 0 {
		ids, resolveErr := resolution.labels(ctx, t.deps, labelNames)
		if resolveErr != nil {
			return nil, resolveErr
		}
		input.LabelIDs = ids
	}
	if project := optionalString(args, "project"); project != "" {
		id, resolveErr := resolution.project(ctx, t.deps, project)
		if resolveErr != nil {
			return nil, resolveErr
		}
		input.ProjectID = id
	}
	if status := optionalString(args, "status"); status != "" {
		id, resolveErr := resolution.status(ctx, t.deps, status)
		if resolveErr != nil {
			return nil, resolveErr
		}
		input.StateID = id
	}
	if token, ok := priorityToken(args, "priority"); ok {
		if p, matched := resolution.priority(token); matched {
			input.Priority = &p
		}
	}
	if est, ok := optionalFloat(args, "estimate"); ok {
		input.Estimate = &est
	}

	// Every failed field reports at once; nothing was created.
	if resolveErr := resolution.Err(); resolveErr != nil {
		return nil, resolveErr
	}

	issue, err := t.deps.Tracker.CreateIssue(ctx, input)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Created %s: %s", issue.Identifier, issue.Title),
		"issue":   issueSummary(*issue),
	}, nil
}

// UpdateIssueTool applies a partial update to one issue. All free-text
// fields are resolved up front; any failure means no update at all.
// Label additions are additive.
type UpdateIssueTool struct {
	deps Deps
}

// NewUpdateIssueTool creates a new UpdateIssueTool instance.
func NewUpdateIssueTool(d Deps) *UpdateIssueTool {
	return &UpdateIssueTool{deps: d}
}

// Definition returns the tool definition for update_issue.
func (t *UpdateIssueTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolUpdateIssue,
		Description: "Update fields on an existing issue. Only the provided fields change; label additions are additive. Free-text names are resolved before anything mutates, and any resolution failure cancels the whole update.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"identifier": {
					Type:        "string",
					Description: "Issue identifier like COD-379",
				},
				"title": {
					Type:        "string",
					Description: "New title",
				},
				"description": {
					Type:        "string",
					Description: "New description (markdown, replaces the current one)",
				},
				"status": {
					Type:        "string",
					Description: "Workflow state to move the issue to, by name",
				},
				"assignee": {
					Type:        "string",
					Description: "Member to assign, by name, display name, or email",
				},
				"labels": {
					Type:        "array",
					Description: "Label names to add (existing labels are kept)",
					Items:       &Property{Type: "string"},
				},
				"project": {
					Type:        "string",
					Description: "Project to move the issue under, by name",
				},
				"priority": {
					Type:        "string",
					Description: "Priority: urgent, high, medium, low, or none",
				},
				"estimate": {
					Type:        "number",
					Description: "Point estimate",
				},
			},
			Required: []string{"identifier"},
		},
	}
}

// Name reports the catalog identifier.
func (t *UpdateIssueTool) Name() string { return ToolUpdateIssue }

// PromptDocumentation describes the tool for the model's system prompt.
func (t *UpdateIssueTool) PromptDocumentation() string {
	return `- **update_issue** - Update fields on an existing issue
  - Parameters: identifier (required), then any of title, description, status, assignee, labels, project, priority, estimate
  - Labels are added to the current set, never replacing it
  - All names are resolved first; one ambiguous or unknown name cancels the entire update`
}

// Exec resolves every free-text field, then applies the update.
func (t *UpdateIssueTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	raw, err := requiredString(args, "identifier")
	if err != nil {
		return nil, err
	}
	id, err := tracker.ParseIdentifier(raw)
	if err != nil {
		return nil, err
	}

	var input tracker.UpdateIssueInput
	if title := optionalString(args, "title"); title != "" {
		input.Title = &title
	}
	if desc, ok := stringArg(args, "description"); ok {
		input.Description = &desc
	}

	var resolution fieldResolution
	if status := optionalString(args, "status"); status != "" {
		stateID, resolveErr := resolution.status(ctx, t.deps, status)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if stateID != "" {
			input.StateID = &stateID
		}
	}
	if assignee := optionalString(args, "assignee"); assignee != "" {
		memberID, resolveErr := resolution.assignee(ctx, t.deps, assignee)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if memberID != "" {
			input.AssigneeID = &memberID
		}
	}
	labelNames, err := stringListArg(args, "labels")
	if err != nil {
		return nil, err
	}
	if len(labelNames) > 0 {
		ids, resolveErr := resolution.labels(ctx, t.deps, labelNames)
		if resolveErr != nil {
			return nil, resolveErr
		}
		input.AddLabelIDs = ids
	}
	if project := optionalString(args, "project"); project != "" {
		projectID, resolveErr := resolution.project(ctx, t.deps, project)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if projectID != "" {
			input.ProjectID = &projectID
		}
	}
	if token, ok := priorityToken(args, "priority"); ok {
		if p, matched := resolution.priority(token); matched {
			input.Priority = &p
		}
	}
	if est, ok := optionalFloat(args, "estimate"); ok {
		input.Estimate = &est
	}

	// Every failed field reports at once; the issue was not touched.
	if resolveErr := resolution.Err(); resolveErr != nil {
		return nil, fmt.Errorf("cannot update %s: %w", id, resolveErr)
	}

	issue, err := t.deps.Tracker.UpdateIssue(ctx, id.String(), input)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Updated %s", issue.Identifier),
		"issue":   issueSummary(*issue),
	}, nil
}

// AddCommentTool posts a comment on one issue.
type AddCommentTool struct {
	deps Deps
}

// NewAddCommentTool creates a new AddCommentTool instance.
func NewAddCommentTool(d Deps) *AddCommentTool {
	return &AddCommentTool{deps: d}
}

// Definition returns the tool definition for add_comment.
func (t *AddCommentTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolAddComment,
		Description: "Add a comment to an existing issue",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"identifier": {
					Type:        "string",
					Description: "Issue identifier like COD-379",
				},
				"body": {
					Type:        "string",
					Description: "Comment body (markdown)",
				},
			},
			Required: []string{"identifier", "body"},
		},
	}
}

// Name reports the catalog identifier.
func (t *AddCommentTool) Name() string { return ToolAddComment }

// PromptDocumentation describes the tool for the model's system prompt.
func (t *AddCommentTool) PromptDocumentation() string {
	return `- **add_comment** - Add a comment to an issue
  - Parameters: identifier (required, e.g. COD-379), body (required)`
}

// Exec posts the comment.
func (t *AddCommentTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	raw, err := requiredString(args, "identifier")
	if err != nil {
		return nil, err
	}
	id, err := tracker.ParseIdentifier(raw)
	if err != nil {
		return nil, err
	}
	body, err := requiredString(args, "body")
	if err != nil {
		return nil, err
	}

	comment, err := t.deps.Tracker.AddComment(ctx, id.String(), body)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("Commented on %s", id),
		"comment_id": comment.ID,
	}, nil
}
