package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/Koplal/tai-discord-bot/pkg/chat"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// History reads conversation history through the gateway session.
// Implements chat.History.
type History struct {
	session *discordgo.Session
	logger  *logx.Logger
}

// NewHistory wraps a session for history access.
func NewHistory(session *discordgo.Session, logger *logx.Logger) *History {
	if logger == nil {
		logger = logx.NewLogger("discord")
	}
	return &History{session: session, logger: logger}
}

// RecentTurns returns up to limit turns from a channel, oldest first.
// The wire order is newest first, so the page is reversed.
func (h *History) RecentTurns(ctx context.Context, channelID string, limit int) ([]chat.Turn, error) {
	msgs, err := h.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching history for channel %s: %w", channelID, err)
	}

	turns := make([]chat.Turn, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		turns = append(turns, turnFrom(msgs[i], channelID))
	}
	return turns, nil
}

// TurnByID fetches a single message.
func (h *History) TurnByID(ctx context.Context, channelID, messageID string) (chat.Turn, error) {
	msg, err := h.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Turn{}, fmt.Errorf("fetching message %s in channel %s: %w", messageID, channelID, err)
	}
	return turnFrom(msg, channelID), nil
}

// ParentChannel returns the parent of a thread channel, or "" when the
// channel is not a thread.
func (h *History) ParentChannel(ctx context.Context, channelID string) (string, error) {
	if ch, err := h.session.State.Channel(channelID); err == nil {
		return parentOf(ch), nil
	}
	ch, err := h.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetching channel %s: %w", channelID, err)
	}
	return parentOf(ch), nil
}

func parentOf(ch *discordgo.Channel) string {
	if !ch.IsThread() {
		return ""
	}
	return ch.ParentID
}

// turnFrom maps a gateway message onto the pipeline's turn shape.
func turnFrom(m *discordgo.Message, channelID string) chat.Turn {
	turn := chat.Turn{
		ID:        m.ID,
		ChannelID: channelID,
		Text:      m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		turn.AuthorID = m.Author.ID
		turn.AuthorName = m.Author.Username
		turn.Bot = m.Author.Bot
	}
	if ref := m.MessageReference; ref != nil {
		turn.ReplyToID = ref.MessageID
	}
	return turn
}
