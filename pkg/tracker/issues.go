package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/boterr"
)

const issueFieldsFragment = `
fragment IssueFields on Issue {
  id
  identifier
  title
  description
  url
  priority
  estimate
  createdAt
  updatedAt
  state { id name type }
  assignee { id name displayName email }
  labels { nodes { id name } }
  project { id name }
}`

const createIssueMutation = `
mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { ...IssueFields }
  }
}` + issueFieldsFragment

const updateIssueMutation = `
mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
  issueUpdate(id: $id, input: $input) {
    success
    issue { ...IssueFields }
  }
}` + issueFieldsFragment

const issueQuery = `
query Issue($id: String!) {
  issue(id: $id) { ...IssueFields }
}` + issueFieldsFragment

const issueLabelsQuery = `
query IssueLabels($id: String!) {
  issue(id: $id) {
    labels { nodes { id name } }
  }
}`

const searchIssuesQuery = `
query SearchIssues($teamId: ID!, $term: String!, $first: Int!) {
  issues(
    filter: {
      team: { id: { eq: $teamId } }
      or: [
        { title: { containsIgnoreCase: $term } }
        { description: { containsIgnoreCase: $term } }
      ]
    }
    first: $first
  ) {
    nodes { ...IssueFields }
  }
}` + issueFieldsFragment

const issuesByStateQuery = `
query IssuesByState($teamId: ID!, $state: String!, $first: Int!) {
  issues(
    filter: {
      team: { id: { eq: $teamId } }
      state: { name: { eqIgnoreCase: $state } }
    }
    first: $first
  ) {
    nodes { ...IssueFields }
  }
}` + issueFieldsFragment

const createCommentMutation = `
mutation CommentCreate($input: CommentCreateInput!) {
  commentCreate(input: $input) {
    success
    comment {
      id
      body
      createdAt
      user { id name displayName email }
    }
  }
}`

const issueCommentsQuery = `
query IssueComments($id: String!, $first: Int!) {
  issue(id: $id) {
    comments(first: $first) {
      nodes {
        id
        body
        createdAt
        user { id name displayName email }
      }
    }
  }
}`

// Wire shapes. Priority arrives as a GraphQL Float even though the scale
// is small integers.
type issueNode struct {
	ID          string        `json:"id"`
	Identifier  string        `json:"identifier"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	Priority    float64       `json:"priority"`
	Estimate    *float64      `json:"estimate"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	State       WorkflowState `json:"state"`
	Assignee    *Member       `json:"assignee"`
	Labels      struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
	Project *Project `json:"project"`
}

type commentNode struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	User      *Member   `json:"user"`
}

func toIssue(n *issueNode) *Issue {
	return &Issue{
		ID:          n.ID,
		Identifier:  n.Identifier,
		Title:       n.Title,
		Description: n.Description,
		URL:         n.URL,
		State:       n.State,
		Priority:    int(n.Priority),
		Assignee:    n.Assignee,
		Labels:      n.Labels.Nodes,
		Project:     n.Project,
		Estimate:    n.Estimate,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func toComment(n *commentNode) Comment {
	c := Comment{
		ID:        n.ID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
	if n.User != nil {
		c.Author = *n.User
	}
	return c
}

// CreateIssue creates a new issue and returns the tracker's record of it.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (*Issue, error) {
	if in.TeamID == "" {
		return nil, fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	input := map[string]any{
		"teamId": in.TeamID,
		"title":  in.Title,
	}
	if in.Description != "" {
		input["description"] = in.Description
	}
	if in.AssigneeID != "" {
		input["assigneeId"] = in.AssigneeID
	}
	if in.StateID != "" {
		input["stateId"] = in.StateID
	}
	if in.ProjectID != "" {
		input["projectId"] = in.ProjectID
	}
	if len(in.LabelIDs) > 0 {
		input["labelIds"] = in.LabelIDs
	}
	if in.Priority != nil {
		input["priority"] = *in.Priority
	}
	if in.Estimate != nil {
		input["estimate"] = *in.Estimate
	}

	var result struct {
		IssueCreate struct {
			Success bool       `json:"success"`
			Issue   *issueNode `json:"issue"`
		} `json:"issueCreate"`
	}
	err := c.execute(ctx, "issueCreate", createIssueMutation, map[string]any{"input": input}, &result)
	if err != nil {
		return nil, err
	}
	if !result.IssueCreate.Success || result.IssueCreate.Issue == nil {
		return nil, boterr.NewRemote(fmt.Errorf("issueCreate reported failure"), "tracker rejected the new issue")
	}

	issue := toIssue(result.IssueCreate.Issue)
	c.logger.Info("Created issue %s: %s", issue.Identifier, issue.Title)
	return issue, nil
}

// SearchIssues finds issues whose title or description contains the term.
func (c *Client) SearchIssues(ctx context.Context, teamID, term string, limit int) ([]Issue, error) {
	var result struct {
		Issues struct {
			Nodes []issueNode `json:"nodes"`
		} `json:"issues"`
	}
	vars := map[string]any{"teamId": teamID, "term": term, "first": clampLimit(limit)}
	if err := c.execute(ctx, "searchIssues", searchIssuesQuery, vars, &result); err != nil {
		return nil, err
	}
	return toIssues(result.Issues.Nodes), nil
}

// IssueByIdentifier fetches one issue by its TEAM-123 reference. A missing
// issue is a typed not-found error, not a remote failure.
func (c *Client) IssueByIdentifier(ctx context.Context, id Identifier) (*Issue, error) {
	var result struct {
		Issue *issueNode `json:"issue"`
	}
	err := c.execute(ctx, "issue", issueQuery, map[string]any{"id": id.String()}, &result)
	if err != nil {
		if isEntityNotFound(err) {
			return nil, boterr.NewNotFound(id.String())
		}
		return nil, err
	}
	if result.Issue == nil {
		return nil, boterr.NewNotFound(id.String())
	}
	return toIssue(result.Issue), nil
}

// IssuesByState lists issues sitting in the named workflow state.
func (c *Client) IssuesByState(ctx context.Context, teamID, stateName string, limit int) ([]Issue, error) {
	var result struct {
		Issues struct {
			Nodes []issueNode `json:"nodes"`
		} `json:"issues"`
	}
	vars := map[string]any{"teamId": teamID, "state": stateName, "first": clampLimit(limit)}
	if err := c.execute(ctx, "issuesByState", issuesByStateQuery, vars, &result); err != nil {
		return nil, err
	}
	return toIssues(result.Issues.Nodes), nil
}

// UpdateIssue applies a partial update. Labels are additive: the current
// set is read first and the requested IDs are joined onto it, so a label
// mentioned is never a label removed.
func (c *Client) UpdateIssue(ctx context.Context, issueID string, in UpdateIssueInput) (*Issue, error) {
	input := map[string]any{}
	if in.Title != nil {
		input["title"] = *in.Title
	}
	if in.Description != nil {
		input["description"] = *in.Description
	}
	if in.StateID != nil {
		input["stateId"] = *in.StateID
	}
	if in.AssigneeID != nil {
		input["assigneeId"] = *in.AssigneeID
	}
	if in.ProjectID != nil {
		input["projectId"] = *in.ProjectID
	}
	if in.Priority != nil {
		input["priority"] = *in.Priority
	}
	if in.Estimate != nil {
		input["estimate"] = *in.Estimate
	}
	if len(in.AddLabelIDs) > 0 {
		current, err := c.currentLabelIDs(ctx, issueID)
		if err != nil {
			return nil, err
		}
		input["labelIds"] = unionIDs(current, in.AddLabelIDs)
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	var result struct {
		IssueUpdate struct {
			Success bool       `json:"success"`
			Issue   *issueNode `json:"issue"`
		} `json:"issueUpdate"`
	}
	vars := map[string]any{"id": issueID, "input": input}
	if err := c.execute(ctx, "issueUpdate", updateIssueMutation, vars, &result); err != nil {
		return nil, err
	}
	if !result.IssueUpdate.Success || result.IssueUpdate.Issue == nil {
		return nil, boterr.NewRemote(fmt.Errorf("issueUpdate reported failure"), "tracker rejected the update")
	}

	issue := toIssue(result.IssueUpdate.Issue)
	c.logger.Info("Updated issue %s", issue.Identifier)
	return issue, nil
}

// AddComment appends a comment to an issue's discussion.
func (c *Client) AddComment(ctx context.Context, issueID, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("comment body is required")
	}

	var result struct {
		CommentCreate struct {
			Success bool         `json:"success"`
			Comment *commentNode `json:"comment"`
		} `json:"commentCreate"`
	}
	input := map[string]any{"issueId": issueID, "body": body}
	if err := c.execute(ctx, "commentCreate", createCommentMutation, map[string]any{"input": input}, &result); err != nil {
		return nil, err
	}
	if !result.CommentCreate.Success || result.CommentCreate.Comment == nil {
		return nil, boterr.NewRemote(fmt.Errorf("commentCreate reported failure"), "tracker rejected the comment")
	}

	comment := toComment(result.CommentCreate.Comment)
	c.logger.Info("Added comment to issue %s", issueID)
	return &comment, nil
}

// Comments lists an issue's discussion, oldest first as the server returns
// them.
func (c *Client) Comments(ctx context.Context, issueID string, limit int) ([]Comment, error) {
	var result struct {
		Issue *struct {
			Comments struct {
				Nodes []commentNode `json:"nodes"`
			} `json:"comments"`
		} `json:"issue"`
	}
	vars := map[string]any{"id": issueID, "first": clampLimit(limit)}
	err := c.execute(ctx, "issueComments", issueCommentsQuery, vars, &result)
	if err != nil {
		if isEntityNotFound(err) {
			return nil, boterr.NewNotFound(issueID)
		}
		return nil, err
	}
	if result.Issue == nil {
		return nil, boterr.NewNotFound(issueID)
	}

	comments := make([]Comment, 0, len(result.Issue.Comments.Nodes))
	for i := range result.Issue.Comments.Nodes {
		comments = append(comments, toComment(&result.Issue.Comments.Nodes[i]))
	}
	return comments, nil
}

// currentLabelIDs reads the issue's label set for additive updates.
func (c *Client) currentLabelIDs(ctx context.Context, issueID string) ([]string, error) {
	var result struct {
		Issue *struct {
			Labels struct {
				Nodes []Label `json:"nodes"`
			} `json:"labels"`
		} `json:"issue"`
	}
	err := c.execute(ctx, "issueLabels", issueLabelsQuery, map[string]any{"id": issueID}, &result)
	if err != nil {
		if isEntityNotFound(err) {
			return nil, boterr.NewNotFound(issueID)
		}
		return nil, err
	}
	if result.Issue == nil {
		return nil, boterr.NewNotFound(issueID)
	}

	ids := make([]string, 0, len(result.Issue.Labels.Nodes))
	for _, l := range result.Issue.Labels.Nodes {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func toIssues(nodes []issueNode) []Issue {
	issues := make([]Issue, 0, len(nodes))
	for i := range nodes {
		issues = append(issues, *toIssue(&nodes[i]))
	}
	return issues
}

// unionIDs keeps current order and appends additions not already present.
func unionIDs(current, additions []string) []string {
	seen := make(map[string]bool, len(current))
	union := make([]string, 0, len(current)+len(additions))
	for _, id := range current {
		if !seen[id] {
			seen[id] = true
			union = append(union, id)
		}
	}
	for _, id := range additions {
		if !seen[id] {
			seen[id] = true
			union = append(union, id)
		}
	}
	return union
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 25
	case limit > 100:
		return 100
	default:
		return limit
	}
}

// isEntityNotFound recognizes the tracker's missing-entity error shape so
// lookups can answer with a typed not-found instead of a remote failure.
func isEntityNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "entity not found")
}
