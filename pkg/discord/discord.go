// Package discord adapts the chat surface to the request pipeline:
// gateway session lifecycle, inbound message normalization, history
// access, and reply delivery.
package discord

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Koplal/tai-discord-bot/pkg/bot"
	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// requestTimeout bounds one request end to end, tool round-trips
// included.
const requestTimeout = 2 * time.Minute

// typingRefresh keeps the typing indicator alive; the surface expires it
// after about ten seconds.
const typingRefresh = 8 * time.Second

// drainGrace is how long Close waits for in-flight requests. Reply
// delivery goes over REST, so it keeps working after the gateway drops.
const drainGrace = 30 * time.Second

// Handler runs one normalized request and returns the reply text.
// Satisfied by *bot.Service.
type Handler interface {
	HandleMessage(ctx context.Context, in bot.Inbound) string
}

// Bot owns the gateway session and feeds addressed messages to the
// pipeline.
type Bot struct {
	session       *discordgo.Session
	handler       Handler
	cfg           config.DiscordConfig
	logger        *logx.Logger
	removeHandler func()
	inflight      sync.WaitGroup
}

// New creates the gateway session. Start connects it and binds the
// pipeline, so history access can be wired up in between.
func New(token string, cfg config.DiscordConfig, logger *logx.Logger) (*Bot, error) {
	if logger == nil {
		logger = logx.NewLogger("discord")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating gateway session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	return &Bot{
		session: session,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Session exposes the underlying gateway session for history access.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start connects to the gateway and begins feeding addressed messages
// to the handler.
func (b *Bot) Start(handler Handler) error {
	if handler == nil {
		return fmt.Errorf("discord bot requires a handler")
	}
	b.handler = handler
	b.removeHandler = b.session.AddHandler(b.onMessage)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening gateway session: %w", err)
	}

	if b.cfg.Status != "" {
		if err := b.session.UpdateCustomStatus(b.cfg.Status); err != nil {
			b.logger.Warn("status update failed: %v", err)
		}
	}

	if b.session.State.User != nil {
		b.logger.Info("connected as %s", b.session.State.User.Username)
	}
	return nil
}

// Close stops accepting messages, closes the gateway session, and waits
// up to drainGrace for in-flight requests to deliver their replies.
func (b *Bot) Close() error {
	if b.removeHandler != nil {
		b.removeHandler()
	}
	err := b.session.Close()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainGrace):
		b.logger.Warn("drain timed out; abandoning in-flight requests")
	}
	return err
}

// onMessage filters gateway traffic down to messages addressed to the
// bot and hands each one to the pipeline on its own goroutine.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	text, addressed := addressedText(s, m, b.cfg.CommandPrefix)
	if !addressed {
		return
	}

	b.inflight.Add(1)
	go b.respond(s, m, text)
}

func (b *Bot) respond(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	defer b.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stopTyping := b.keepTyping(ctx, m.ChannelID)
	defer stopTyping()

	reply := b.handler.HandleMessage(ctx, b.inboundFrom(s, m, text))
	if reply == "" {
		return
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		b.logger.Error("reply delivery failed in %s: %v", m.ChannelID, err)
	}
}

// keepTyping shows the typing indicator until the returned stop function
// runs.
func (b *Bot) keepTyping(ctx context.Context, channelID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(typingRefresh)
		defer ticker.Stop()
		for {
			if err := b.session.ChannelTyping(channelID); err != nil {
				b.logger.Debug("typing indicator failed in %s: %v", channelID, err)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

// inboundFrom normalizes a gateway message for the pipeline.
func (b *Bot) inboundFrom(s *discordgo.Session, m *discordgo.MessageCreate, text string) bot.Inbound {
	in := bot.Inbound{
		CallerID:   m.Author.ID,
		CallerName: m.Author.Username,
		Groups:     callerGroups(s, m),
		ChannelID:  m.ChannelID,
		MessageID:  m.ID,
		Text:       text,
	}
	if m.Member != nil && m.Member.Nick != "" {
		in.CallerName = m.Member.Nick
	}
	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		in.ReplyToID = ref.MessageID
	}
	if ch := b.channel(s, m.ChannelID); ch != nil && ch.IsThread() {
		in.IsThread = true
		in.ThreadParentID = ch.ParentID
	}
	return in
}

// channel reads from the gateway state cache, falling back to the API.
func (b *Bot) channel(s *discordgo.Session, id string) *discordgo.Channel {
	if ch, err := s.State.Channel(id); err == nil {
		return ch
	}
	ch, err := s.Channel(id)
	if err != nil {
		b.logger.Warn("channel lookup failed for %s: %v", id, err)
		return nil
	}
	return ch
}

// callerGroups maps the member's role IDs to role names, which is what
// the tier config matches on. Unresolvable roles are skipped.
func callerGroups(s *discordgo.Session, m *discordgo.MessageCreate) []string {
	if m.Member == nil || m.GuildID == "" {
		return nil
	}
	groups := make([]string, 0, len(m.Member.Roles))
	for _, roleID := range m.Member.Roles {
		role, err := s.State.Role(m.GuildID, roleID)
		if err != nil {
			continue
		}
		groups = append(groups, role.Name)
	}
	return groups
}

// addressedText reports whether the message addresses the bot and
// returns the text with the prefix or bot mention stripped. Direct
// messages are always addressed.
func addressedText(s *discordgo.Session, m *discordgo.MessageCreate, prefix string) (string, bool) {
	content := strings.TrimSpace(m.Content)

	if prefix != "" && len(content) >= len(prefix) && strings.EqualFold(content[:len(prefix)], prefix) {
		rest := content[len(prefix):]
		if rest == "" || rest[0] == ' ' {
			return strings.TrimSpace(rest), true
		}
	}

	if s.State != nil && s.State.User != nil {
		botID := s.State.User.ID
		for _, u := range m.Mentions {
			if u.ID == botID {
				return stripMention(content, botID), true
			}
		}
	}

	if m.GuildID == "" {
		return content, true
	}
	return "", false
}

var mentionToken = regexp.MustCompile(`<@!?(\d+)>`) //nolint:gochecknoglobals // compiled once

// stripMention removes the bot's own mention tokens, leaving other user
// mentions in place for command arguments.
func stripMention(content, botID string) string {
	cleaned := mentionToken.ReplaceAllStringFunc(content, func(token string) string {
		if m := mentionToken.FindStringSubmatch(token); m != nil && m[1] == botID {
			return ""
		}
		return token
	})
	return strings.TrimSpace(cleaned)
}
