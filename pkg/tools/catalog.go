package tools

import (
	"context"
	"fmt"

	"github.com/Koplal/tai-discord-bot/pkg/access"
	"github.com/Koplal/tai-discord-bot/pkg/resolver"
	"github.com/Koplal/tai-discord-bot/pkg/tracker"
)

// Tool name constants - use these instead of magic strings to prevent
// typos and enable compile-time checking.
const (
	// Read tools.
	ToolSearchIssues = "search_issues"
	ToolGetIssue     = "get_issue"
	ToolListIssues   = "list_issues"
	ToolListComments = "list_comments"
	ToolListStatuses = "list_statuses"
	ToolListMembers  = "list_members"
	ToolListLabels   = "list_labels"
	ToolListProjects = "list_projects"
	ToolListCycles   = "list_cycles"

	// Write tools.
	ToolCreateIssue = "create_issue"
	ToolUpdateIssue = "update_issue"
	ToolAddComment  = "add_comment"
)

// Feature-gated tool sets.
//
//nolint:gochecknoglobals // closed catalog lists, never mutated
var (
	// ReadTools are granted by the tracker_read feature.
	ReadTools = []string{
		ToolSearchIssues,
		ToolGetIssue,
		ToolListIssues,
		ToolListComments,
		ToolListStatuses,
		ToolListMembers,
		ToolListLabels,
		ToolListProjects,
		ToolListCycles,
	}

	// WriteTools are granted by the tracker_write feature.
	WriteTools = []string{
		ToolCreateIssue,
		ToolUpdateIssue,
		ToolAddComment,
	}
)

// AllowedTools computes the caller's tool allow-set from their features.
// A caller with basic chat only gets an empty catalog and the model runs
// in pure conversation.
func AllowedTools(features []access.Feature) []string {
	var names []string
	if access.Has(features, access.FeatureTrackerRead) {
		names = append(names, ReadTools...)
	}
	if access.Has(features, access.FeatureTrackerWrite) {
		names = append(names, WriteTools...)
	}
	return names
}

// TrackerAPI is the slice of the tracker client the tool catalog drives.
type TrackerAPI interface {
	CreateIssue(ctx context.Context, in tracker.CreateIssueInput) (*tracker.Issue, error)
	UpdateIssue(ctx context.Context, issueID string, in tracker.UpdateIssueInput) (*tracker.Issue, error)
	IssueByIdentifier(ctx context.Context, id tracker.Identifier) (*tracker.Issue, error)
	SearchIssues(ctx context.Context, teamID, term string, limit int) ([]tracker.Issue, error)
	IssuesByState(ctx context.Context, teamID, stateName string, limit int) ([]tracker.Issue, error)
	AddComment(ctx context.Context, issueID, body string) (*tracker.Comment, error)
	Comments(ctx context.Context, issueID string, limit int) ([]tracker.Comment, error)
	WorkflowStates(ctx context.Context, teamID string) ([]tracker.WorkflowState, error)
	Cycles(ctx context.Context, teamID string) ([]tracker.Cycle, error)
}

// EntityResolver resolves free-text names against the cached team
// entities. Satisfied by *resolver.Resolver.
type EntityResolver interface {
	Resolve(ctx context.Context, kind resolver.Kind, scopeID, query string) (resolver.Match, error)
	Members(ctx context.Context, scopeID string) ([]resolver.Entity, error)
	Labels(ctx context.Context, scopeID string) ([]resolver.Entity, error)
	Projects(ctx context.Context, scopeID string) ([]resolver.Entity, error)
}

// Deps carries the request-scoped dependencies tool factories bind to.
type Deps struct {
	Tracker  TrackerAPI
	Resolver EntityResolver
	TeamID   string
}

func (d Deps) requireTracker(tool string) error {
	if d.Tracker == nil {
		return fmt.Errorf("%s requires a tracker client", tool)
	}
	return nil
}

func (d Deps) requireResolver(tool string) error {
	if d.Resolver == nil {
		return fmt.Errorf("%s requires an entity resolver", tool)
	}
	return nil
}

// NewTrackerRegistry builds the full tracker tool catalog. The bot
// service creates one at startup; the first Provider seals it.
func NewTrackerRegistry() *Registry {
	r := NewRegistry()

	register := func(name string, factory ToolFactory, schemaOf func() ToolDefinition) {
		def := schemaOf()
		r.Register(factory, ToolMeta{
			Name:        name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	// Read tools.
	register(ToolSearchIssues, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolSearchIssues); err != nil {
			return nil, err
		}
		return NewSearchIssuesTool(d), nil
	}, func() ToolDefinition { return NewSearchIssuesTool(Deps{}).Definition() })

	register(ToolGetIssue, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolGetIssue); err != nil {
			return nil, err
		}
		return NewGetIssueTool(d), nil
	}, func() ToolDefinition { return NewGetIssueTool(Deps{}).Definition() })

	register(ToolListIssues, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolListIssues); err != nil {
			return nil, err
		}
		return NewListIssuesTool(d), nil
	}, func() ToolDefinition { return NewListIssuesTool(Deps{}).Definition() })

	register(ToolListComments, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolListComments); err != nil {
			return nil, err
		}
		return NewListCommentsTool(d), nil
	}, func() ToolDefinition { return NewListCommentsTool(Deps{}).Definition() })

	register(ToolListStatuses, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolListStatuses); err != nil {
			return nil, err
		}
		return NewListStatusesTool(d), nil
	}, func() ToolDefinition { return NewListStatusesTool(Deps{}).Definition() })

	register(ToolListMembers, func(d Deps) (Tool, error) {
		if err := d.requireResolver(ToolListMembers); err != nil {
			return nil, err
		}
		return NewListMembersTool(d), nil
	}, func() ToolDefinition { return NewListMembersTool(Deps{}).Definition() })

	register(ToolListLabels, func(d Deps) (Tool, error) {
		if err := d.requireResolver(ToolListLabels); err != nil {
			return nil, err
		}
		return NewListLabelsTool(d), nil
	}, func() ToolDefinition { return NewListLabelsTool(Deps{}).Definition() })

	register(ToolListProjects, func(d Deps) (Tool, error) {
		if err := d.requireResolver(ToolListProjects); err != nil {
			return nil, err
		}
		return NewListProjectsTool(d), nil
	}, func() ToolDefinition { return NewListProjectsTool(Deps{}).Definition() })

	register(ToolListCycles, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolListCycles); err != nil {
			return nil, err
		}
		return NewListCyclesTool(d), nil
	}, func() ToolDefinition { return NewListCyclesTool(Deps{}).Definition() })

	// Write tools.
	register(ToolCreateIssue, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolCreateIssue); err != nil {
			return nil, err
		}
		if err := d.requireResolver(ToolCreateIssue); err != nil {
			return nil, err
		}
		return NewCreateIssueTool(d), nil
	}, func() ToolDefinition { return NewCreateIssueTool(Deps{}).Definition() })

	register(ToolUpdateIssue, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolUpdateIssue); err != nil {
			return nil, err
		}
		if err := d.requireResolver(ToolUpdateIssue); err != nil {
			return nil, err
		}
		return NewUpdateIssueTool(d), nil
	}, func() ToolDefinition { return NewUpdateIssueTool(Deps{}).Definition() })

	register(ToolAddComment, func(d Deps) (Tool, error) {
		if err := d.requireTracker(ToolAddComment); err != nil {
			return nil, err
		}
		return NewAddCommentTool(d), nil
	}, func() ToolDefinition { return NewAddCommentTool(Deps{}).Definition() })

	return r
}
