package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

func sessionWithBotUser(t *testing.T, botID string) *discordgo.Session {
	t.Helper()
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: botID, Username: "Tai"}
	return &discordgo.Session{State: state}
}

func guildMessage(content string, mentions ...*discordgo.User) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-1",
		ChannelID: "chan-1",
		GuildID:   "guild-1",
		Content:   content,
		Author:    &discordgo.User{ID: "100", Username: "pat"},
		Mentions:  mentions,
	}}
}

func TestAddressedTextPrefix(t *testing.T) {
	s := sessionWithBotUser(t, "555")

	cases := []struct {
		name      string
		content   string
		wantText  string
		addressed bool
	}{
		{"exact prefix", "!tai what's up with COD-1?", "what's up with COD-1?", true},
		{"prefix is case insensitive", "!TAI help", "help", true},
		{"bare prefix", "!tai", "", true},
		{"prefix glued to a word", "!taint spreading", "", false},
		{"unaddressed guild message", "just chatting", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, addressed := addressedText(s, guildMessage(tc.content), "!tai")
			if addressed != tc.addressed {
				t.Fatalf("addressed = %v, want %v", addressed, tc.addressed)
			}
			if text != tc.wantText {
				t.Errorf("text = %q, want %q", text, tc.wantText)
			}
		})
	}
}

func TestAddressedTextMention(t *testing.T) {
	s := sessionWithBotUser(t, "555")
	bot := &discordgo.User{ID: "555"}

	m := guildMessage("<@555> what's the status of COD-379?", bot)
	text, addressed := addressedText(s, m, "!tai")
	if !addressed {
		t.Fatal("mention should address the bot")
	}
	if text != "what's the status of COD-379?" {
		t.Errorf("text = %q", text)
	}
}

func TestAddressedTextKeepsOtherMentions(t *testing.T) {
	s := sessionWithBotUser(t, "555")
	bot := &discordgo.User{ID: "555"}

	m := guildMessage("<@!555> usage <@42> 24h", bot)
	text, addressed := addressedText(s, m, "!tai")
	if !addressed {
		t.Fatal("nickname mention should address the bot")
	}
	if text != "usage <@42> 24h" {
		t.Errorf("text = %q, want the caller mention preserved", text)
	}
}

func TestAddressedTextDirectMessage(t *testing.T) {
	s := sessionWithBotUser(t, "555")
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-2",
		ChannelID: "dm-1",
		Content:   "hello there",
		Author:    &discordgo.User{ID: "100", Username: "pat"},
	}}

	text, addressed := addressedText(s, m, "!tai")
	if !addressed {
		t.Fatal("direct messages are always addressed")
	}
	if text != "hello there" {
		t.Errorf("text = %q", text)
	}
}

func TestStripMentionOnlyRemovesBot(t *testing.T) {
	got := stripMention("<@555> assign COD-3 to <@42>", "555")
	if got != "assign COD-3 to <@42>" {
		t.Errorf("got %q", got)
	}
}

func TestCallerGroupsResolvesRoleNames(t *testing.T) {
	s := sessionWithBotUser(t, "555")
	err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		Roles: []*discordgo.Role{
			{ID: "r1", Name: "premium"},
			{ID: "r2", Name: "moderators"},
		},
	})
	if err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}

	m := guildMessage("!tai help")
	m.Member = &discordgo.Member{Roles: []string{"r1", "r2", "r-unknown"}}

	groups := callerGroups(s, m)
	if len(groups) != 2 || groups[0] != "premium" || groups[1] != "moderators" {
		t.Errorf("groups = %v", groups)
	}
}

func TestCallerGroupsEmptyOutsideGuilds(t *testing.T) {
	s := sessionWithBotUser(t, "555")
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		Content: "hi",
		Author:  &discordgo.User{ID: "100"},
	}}
	if groups := callerGroups(s, m); len(groups) != 0 {
		t.Errorf("groups = %v, want none", groups)
	}
}

func TestTurnFromMapsMessageFields(t *testing.T) {
	ts := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	m := &discordgo.Message{
		ID:      "msg-7",
		Content: "the deploy finished",
		Author:  &discordgo.User{ID: "200", Username: "rae", Bot: true},
		MessageReference: &discordgo.MessageReference{
			MessageID: "msg-6",
			ChannelID: "chan-1",
		},
		Timestamp: ts,
	}

	turn := turnFrom(m, "chan-1")
	if turn.ID != "msg-7" || turn.ChannelID != "chan-1" {
		t.Errorf("identity = %q/%q", turn.ID, turn.ChannelID)
	}
	if turn.AuthorID != "200" || turn.AuthorName != "rae" || !turn.Bot {
		t.Errorf("author = %q/%q bot=%v", turn.AuthorID, turn.AuthorName, turn.Bot)
	}
	if turn.ReplyToID != "msg-6" {
		t.Errorf("ReplyToID = %q", turn.ReplyToID)
	}
	if !turn.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v", turn.Timestamp)
	}
}

func TestTurnFromToleratesMissingAuthor(t *testing.T) {
	turn := turnFrom(&discordgo.Message{ID: "msg-8", Content: "system notice"}, "chan-1")
	if turn.AuthorID != "" || turn.Bot {
		t.Errorf("author = %q bot=%v, want empty", turn.AuthorID, turn.Bot)
	}
}

func TestInboundFromBuildsRequest(t *testing.T) {
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: "555", Username: "Tai"}
	if err := state.ChannelAdd(&discordgo.Channel{
		ID:       "thread-9",
		GuildID:  "guild-1",
		Type:     discordgo.ChannelTypeGuildPublicThread,
		ParentID: "chan-1",
	}); err != nil {
		t.Fatalf("ChannelAdd: %v", err)
	}
	s := &discordgo.Session{State: state}

	b := &Bot{
		session: s,
		cfg:     config.DiscordConfig{CommandPrefix: "!tai"},
		logger:  logx.NewLogger("discord"),
	}

	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-10",
		ChannelID: "thread-9",
		GuildID:   "guild-1",
		Content:   "!tai summarize this thread",
		Author:    &discordgo.User{ID: "100", Username: "pat"},
		Member:    &discordgo.Member{Nick: "Pat H"},
		MessageReference: &discordgo.MessageReference{
			MessageID: "msg-9",
		},
	}}

	in := b.inboundFrom(s, m, "summarize this thread")
	if in.CallerID != "100" || in.CallerName != "Pat H" {
		t.Errorf("caller = %q/%q", in.CallerID, in.CallerName)
	}
	if in.ChannelID != "thread-9" || in.MessageID != "msg-10" {
		t.Errorf("message = %q/%q", in.ChannelID, in.MessageID)
	}
	if in.ReplyToID != "msg-9" {
		t.Errorf("ReplyToID = %q", in.ReplyToID)
	}
	if !in.IsThread || in.ThreadParentID != "chan-1" {
		t.Errorf("thread = %v parent=%q", in.IsThread, in.ThreadParentID)
	}
	if in.Text != "summarize this thread" {
		t.Errorf("text = %q", in.Text)
	}
}

func TestParentOfPlainChannelIsEmpty(t *testing.T) {
	ch := &discordgo.Channel{ID: "chan-1", Type: discordgo.ChannelTypeGuildText, ParentID: "category-1"}
	if got := parentOf(ch); got != "" {
		t.Errorf("parentOf = %q, want empty for a non-thread channel", got)
	}
}
