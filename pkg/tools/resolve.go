package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Koplal/tai-discord-bot/pkg/resolver"
	"github.com/Koplal/tai-discord-bot/pkg/tracker"
)

// Free-text field resolution for the write tools. Every field is resolved
// before anything mutates; failures are collected so the model sees all of
// them in one failed result instead of fixing one per retry.

// fieldResolution accumulates resolved IDs and failure lines for one
// mutation's free-text fields.
type fieldResolution struct {
	failures []string
}

func (f *fieldResolution) fail(format string, args ...any) {
	f.failures = append(f.failures, fmt.Sprintf(format, args...))
}

// Err returns the combined resolution error, or nil when every field
// resolved.
func (f *fieldResolution) Err() error {
	if len(f.failures) == 0 {
		return nil
	}
	return errors.New(strings.Join(f.failures, "; "))
}

// resolveOne resolves a single free-text reference of the given kind.
// The returned error is a remote failure (listing entities failed) and
// aborts the tool call; resolution misses are recorded on f instead.
func (f *fieldResolution) resolveOne(ctx context.Context, d Deps, kind resolver.Kind, noun, query string) (string, error) {
	match, err := d.Resolver.Resolve(ctx, kind, d.TeamID, query)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", kind, err)
	}

	switch match.Outcome {
	case resolver.Resolved:
		return match.Entity.ID, nil
	case resolver.Ambiguous:
		f.fail("%s %q is ambiguous: matches %s", noun, query, strings.Join(match.Candidates, ", "))
	default:
		f.fail("%s %q not found", noun, query)
	}
	return "", nil
}

func (f *fieldResolution) assignee(ctx context.Context, d Deps, query string) (string, error) {
	return f.resolveOne(ctx, d, resolver.KindMembers, "assignee", query)
}

func (f *fieldResolution) project(ctx context.Context, d Deps, query string) (string, error) {
	return f.resolveOne(ctx, d, resolver.KindProjects, "project", query)
}

// labels resolves each requested label name. Misses are recorded
// per name; the returned IDs cover only the names that resolved.
func (f *fieldResolution) labels(ctx context.Context, d Deps, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := f.resolveOne(ctx, d, resolver.KindLabels, "label", name)
		if err != nil {
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// status matches a free-text status token against the team's workflow
// states. A miss records a failure naming the known states.
func (f *fieldResolution) status(ctx context.Context, d Deps, token string) (string, error) {
	states, err := d.Tracker.WorkflowStates(ctx, d.TeamID)
	if err != nil {
		return "", fmt.Errorf("listing workflow states: %w", err)
	}
	state, ok := tracker.MatchState(states, token)
	if !ok {
		names := make([]string, 0, len(states))
		for _, s := range states {
			names = append(names, s.Name)
		}
		f.fail("status %q is not a workflow state (known: %s)", token, strings.Join(names, ", "))
		return "", nil
	}
	return state.ID, nil
}

// priority matches a priority token against the fixed table.
func (f *fieldResolution) priority(token string) (int, bool) {
	p, ok := tracker.ParsePriority(token)
	if !ok {
		f.fail("priority %q is not recognized (use urgent, high, medium, low, or none)", token)
		return 0, false
	}
	return p, true
}
