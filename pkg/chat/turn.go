// Package chat models normalized conversation turns and assembles the
// context window for a request: recent channel history, thread
// transcripts prefixed with a slice of the parent channel, and reply
// chains. Assembly is best-effort; a transport hiccup shrinks the
// context, it never fails the request.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Turn is one normalized transcript entry, whatever surface it came from.
type Turn struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Bot        bool
	Text       string
	Timestamp  time.Time
	ReplyToID  string
}

// History is the transport's view of past conversation. RecentTurns
// returns up to limit turns oldest first. Implementations own their
// per-call timeouts.
type History interface {
	RecentTurns(ctx context.Context, channelID string, limit int) ([]Turn, error)
	TurnByID(ctx context.Context, channelID, messageID string) (Turn, error)
	ParentChannel(ctx context.Context, channelID string) (string, error)
}

// FormatTurns renders turns as transcript lines for the model prompt.
func FormatTurns(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		name := t.AuthorName
		if name == "" {
			name = t.AuthorID
		}
		if t.Bot {
			name += " (bot)"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.Timestamp.UTC().Format("15:04"), name, t.Text)
	}
	return b.String()
}
