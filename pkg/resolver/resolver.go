// Package resolver turns free-text references ("assign to Jo", "label it
// infra") into tracker entity IDs, backed by a TTL cache so every
// resolution does not hit the tracker.
package resolver

import (
	"context"
	"fmt"

	"github.com/Koplal/tai-discord-bot/pkg/logx"
	"github.com/Koplal/tai-discord-bot/pkg/tracker"
)

// Kind selects which entity namespace a resolution runs against.
type Kind string

const (
	KindMembers  Kind = "members"
	KindLabels   Kind = "labels"
	KindProjects Kind = "projects"
)

// Entity is the one shape used for members, labels, and projects. Fields a
// namespace does not have stay empty.
type Entity struct {
	ID          string
	Name        string
	DisplayName string
	Email       string
}

// Display returns the name to show users: DisplayName when present, Name
// otherwise.
func (e Entity) Display() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

// Source is the tracker subset the resolver lists entities from.
type Source interface {
	TeamMembers(ctx context.Context, teamID string) ([]tracker.Member, error)
	TeamLabels(ctx context.Context, teamID string) ([]tracker.Label, error)
	Projects(ctx context.Context, teamID string) ([]tracker.Project, error)
}

// Resolver serves entity lists through the cache and resolves free-text
// references against them.
type Resolver struct {
	cache  *Cache
	source Source
	logger *logx.Logger
}

// New creates a resolver over the given source and cache.
func New(source Source, cache *Cache, logger *logx.Logger) *Resolver {
	if logger == nil {
		logger = logx.NewLogger("resolver")
	}
	return &Resolver{cache: cache, source: source, logger: logger}
}

// Members lists the scope's members, cached.
func (r *Resolver) Members(ctx context.Context, scopeID string) ([]Entity, error) {
	return r.entities(ctx, KindMembers, scopeID)
}

// Labels lists the scope's labels, cached.
func (r *Resolver) Labels(ctx context.Context, scopeID string) ([]Entity, error) {
	return r.entities(ctx, KindLabels, scopeID)
}

// Projects lists the scope's projects, cached.
func (r *Resolver) Projects(ctx context.Context, scopeID string) ([]Entity, error) {
	return r.entities(ctx, KindProjects, scopeID)
}

// Invalidate drops the cached list for one (kind, scope).
func (r *Resolver) Invalidate(kind Kind, scopeID string) {
	r.cache.Invalidate(kind, scopeID)
}

// Resolve lists the namespace through the cache and runs the two-phase
// name match against it.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, scopeID, query string) (Match, error) {
	entities, err := r.entities(ctx, kind, scopeID)
	if err != nil {
		return Match{}, err
	}

	match := MatchName(entities, query)
	r.logger.Debug("resolve %s %q: %s", kind, query, match.Outcome)
	return match, nil
}

func (r *Resolver) entities(ctx context.Context, kind Kind, scopeID string) ([]Entity, error) {
	if cached, ok := r.cache.Get(kind, scopeID); ok {
		return cached, nil
	}

	var (
		values []Entity
		err    error
	)
	switch kind {
	case KindMembers:
		var members []tracker.Member
		if members, err = r.source.TeamMembers(ctx, scopeID); err == nil {
			values = memberEntities(members)
		}
	case KindLabels:
		var labels []tracker.Label
		if labels, err = r.source.TeamLabels(ctx, scopeID); err == nil {
			values = labelEntities(labels)
		}
	case KindProjects:
		var projects []tracker.Project
		if projects, err = r.source.Projects(ctx, scopeID); err == nil {
			values = projectEntities(projects)
		}
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	r.cache.Put(kind, scopeID, values)
	r.logger.Debug("cached %d %s for scope %s", len(values), kind, scopeID)
	return values, nil
}

func memberEntities(members []tracker.Member) []Entity {
	out := make([]Entity, 0, len(members))
	for _, m := range members {
		out = append(out, Entity{ID: m.ID, Name: m.Name, DisplayName: m.DisplayName, Email: m.Email})
	}
	return out
}

func labelEntities(labels []tracker.Label) []Entity {
	out := make([]Entity, 0, len(labels))
	for _, l := range labels {
		out = append(out, Entity{ID: l.ID, Name: l.Name})
	}
	return out
}

func projectEntities(projects []tracker.Project) []Entity {
	out := make([]Entity, 0, len(projects))
	for _, p := range projects {
		out = append(out, Entity{ID: p.ID, Name: p.Name})
	}
	return out
}
