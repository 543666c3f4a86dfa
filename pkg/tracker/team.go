package tracker

import (
	"context"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/boterr"
)

const workflowStatesQuery = `
query WorkflowStates($teamId: String!) {
  team(id: $teamId) {
    states { nodes { id name type } }
  }
}`

const teamMembersQuery = `
query TeamMembers($teamId: String!) {
  team(id: $teamId) {
    members { nodes { id name displayName email } }
  }
}`

const teamLabelsQuery = `
query TeamLabels($teamId: String!) {
  team(id: $teamId) {
    labels { nodes { id name } }
  }
}`

const projectsQuery = `
query TeamProjects($teamId: String!) {
  team(id: $teamId) {
    projects { nodes { id name } }
  }
}`

const cyclesQuery = `
query TeamCycles($teamId: String!) {
  team(id: $teamId) {
    cycles { nodes { id number name startsAt endsAt } }
  }
}`

type cycleNode struct {
	ID       string    `json:"id"`
	Number   float64   `json:"number"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// WorkflowStates lists the team's workflow columns.
func (c *Client) WorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	var result struct {
		Team *struct {
			States struct {
				Nodes []WorkflowState `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	if err := c.execute(ctx, "workflowStates", workflowStatesQuery, map[string]any{"teamId": teamID}, &result); err != nil {
		return nil, wrapTeamErr(err, teamID)
	}
	if result.Team == nil {
		return nil, boterr.NewNotFound(teamID)
	}
	return result.Team.States.Nodes, nil
}

// TeamMembers lists the team's users.
func (c *Client) TeamMembers(ctx context.Context, teamID string) ([]Member, error) {
	var result struct {
		Team *struct {
			Members struct {
				Nodes []Member `json:"nodes"`
			} `json:"members"`
		} `json:"team"`
	}
	if err := c.execute(ctx, "teamMembers", teamMembersQuery, map[string]any{"teamId": teamID}, &result); err != nil {
		return nil, wrapTeamErr(err, teamID)
	}
	if result.Team == nil {
		return nil, boterr.NewNotFound(teamID)
	}
	return result.Team.Members.Nodes, nil
}

// TeamLabels lists the team's labels.
func (c *Client) TeamLabels(ctx context.Context, teamID string) ([]Label, error) {
	var result struct {
		Team *struct {
			Labels struct {
				Nodes []Label `json:"nodes"`
			} `json:"labels"`
		} `json:"team"`
	}
	if err := c.execute(ctx, "teamLabels", teamLabelsQuery, map[string]any{"teamId": teamID}, &result); err != nil {
		return nil, wrapTeamErr(err, teamID)
	}
	if result.Team == nil {
		return nil, boterr.NewNotFound(teamID)
	}
	return result.Team.Labels.Nodes, nil
}

// Projects lists the team's projects.
func (c *Client) Projects(ctx context.Context, teamID string) ([]Project, error) {
	var result struct {
		Team *struct {
			Projects struct {
				Nodes []Project `json:"nodes"`
			} `json:"projects"`
		} `json:"team"`
	}
	if err := c.execute(ctx, "projects", projectsQuery, map[string]any{"teamId": teamID}, &result); err != nil {
		return nil, wrapTeamErr(err, teamID)
	}
	if result.Team == nil {
		return nil, boterr.NewNotFound(teamID)
	}
	return result.Team.Projects.Nodes, nil
}

// Cycles lists the team's iterations.
func (c *Client) Cycles(ctx context.Context, teamID string) ([]Cycle, error) {
	var result struct {
		Team *struct {
			Cycles struct {
				Nodes []cycleNode `json:"nodes"`
			} `json:"cycles"`
		} `json:"team"`
	}
	if err := c.execute(ctx, "cycles", cyclesQuery, map[string]any{"teamId": teamID}, &result); err != nil {
		return nil, wrapTeamErr(err, teamID)
	}
	if result.Team == nil {
		return nil, boterr.NewNotFound(teamID)
	}

	cycles := make([]Cycle, 0, len(result.Team.Cycles.Nodes))
	for _, n := range result.Team.Cycles.Nodes {
		cycles = append(cycles, Cycle{
			ID:       n.ID,
			Number:   int(n.Number),
			Name:     n.Name,
			StartsAt: n.StartsAt,
			EndsAt:   n.EndsAt,
		})
	}
	return cycles, nil
}

func wrapTeamErr(err error, teamID string) error {
	if isEntityNotFound(err) {
		return boterr.NewNotFound(teamID)
	}
	return err
}
