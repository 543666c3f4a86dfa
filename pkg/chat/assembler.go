package chat

import (
	"context"

	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// Context gathering is bounded so one request can never drag in an
// unbounded transcript, whatever the config says.
const (
	maxThreadParentWindow = 5
	maxReplyChainDepth    = 5
)

// Config bounds how much surrounding conversation each request gathers.
type Config struct {
	ChannelWindow      int
	ThreadParentWindow int
	ReplyChainDepth    int
}

// Assembler builds the conversational context for a request.
type Assembler struct {
	history History
	logger  *logx.Logger
	cfg     Config
}

// NewAssembler creates an assembler over the transport's history. Window
// sizes are clamped to their caps.
func NewAssembler(history History, cfg Config, logger *logx.Logger) *Assembler {
	if logger == nil {
		logger = logx.NewLogger("chat")
	}
	if cfg.ChannelWindow <= 0 {
		cfg.ChannelWindow = 20
	}
	if cfg.ThreadParentWindow < 0 {
		cfg.ThreadParentWindow = 0
	}
	if cfg.ThreadParentWindow > maxThreadParentWindow {
		cfg.ThreadParentWindow = maxThreadParentWindow
	}
	if cfg.ReplyChainDepth < 0 {
		cfg.ReplyChainDepth = 0
	}
	if cfg.ReplyChainDepth > maxReplyChainDepth {
		cfg.ReplyChainDepth = maxReplyChainDepth
	}
	return &Assembler{history: history, logger: logger, cfg: cfg}
}

// ChannelContext returns the channel's recent turns, oldest first. A fetch
// failure logs and returns whatever was gathered.
func (a *Assembler) ChannelContext(ctx context.Context, channelID string, limit int) []Turn {
	if limit <= 0 {
		limit = a.cfg.ChannelWindow
	}
	turns, err := a.history.RecentTurns(ctx, channelID, limit)
	if err != nil {
		a.logger.Warn("channel context fetch failed for %s: %v", channelID, err)
	}
	return turns
}

// ThreadContext returns the thread's turns oldest first, prefixed with up
// to ThreadParentWindow turns of the parent channel. A parent fetch
// failure degrades to thread-only context.
func (a *Assembler) ThreadContext(ctx context.Context, threadID, parentID string, limit int) []Turn {
	turns := a.ChannelContext(ctx, threadID, limit)

	if parentID == "" || a.cfg.ThreadParentWindow == 0 {
		return turns
	}
	parent, err := a.history.RecentTurns(ctx, parentID, a.cfg.ThreadParentWindow)
	if err != nil {
		a.logger.Warn("thread parent fetch failed for %s: %v", parentID, err)
		return turns
	}
	return append(parent, turns...)
}

// ReplyContext rebuilds the conversation behind a reply: the chain of
// replied-to turns oldest first, then recent channel turns not already in
// the chain. The triggering turn itself is the request and is not
// repeated here.
func (a *Assembler) ReplyContext(ctx context.Context, channelID string, tip Turn, limit int) []Turn {
	chain := a.walkReplies(ctx, channelID, tip)

	if limit <= 0 {
		limit = a.cfg.ChannelWindow
	}
	recent, err := a.history.RecentTurns(ctx, channelID, limit)
	if err != nil {
		a.logger.Warn("channel turns fetch failed for %s: %v", channelID, err)
	}

	seen := make(map[turnKey]bool, len(chain))
	for _, t := range chain {
		seen[keyOf(t)] = true
	}
	out := chain
	for _, t := range recent {
		if seen[keyOf(t)] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// walkReplies follows ReplyToID from the tip up to ReplyChainDepth hops.
// A failed lookup ends the walk with what was gathered.
func (a *Assembler) walkReplies(ctx context.Context, channelID string, tip Turn) []Turn {
	var chain []Turn
	replyTo := tip.ReplyToID
	for hop := 0; hop < a.cfg.ReplyChainDepth && replyTo != ""; hop++ {
		turn, err := a.history.TurnByID(ctx, channelID, replyTo)
		if err != nil {
			a.logger.Warn("reply chain walk stopped at %s: %v", replyTo, err)
			break
		}
		chain = append(chain, turn)
		replyTo = turn.ReplyToID
	}

	// Walked newest ancestor first; the context reads oldest first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Dedup identity for a turn. IDs differ between a fetched chain turn and
// the same turn in channel history on some surfaces, so identity is the
// (author, timestamp) pair.
type turnKey struct {
	author    string
	timestamp int64
}

func keyOf(t Turn) turnKey {
	return turnKey{author: t.AuthorID, timestamp: t.Timestamp.UnixNano()}
}
