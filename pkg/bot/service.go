// Package bot runs the request pipeline: classify the caller, admit or
// refuse the request, route explicit commands, assemble conversational
// context, drive the agent loop, and render the outcome for the chat
// surface.
package bot

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/Koplal/tai-discord-bot/pkg/access"
	"github.com/Koplal/tai-discord-bot/pkg/admission"
	"github.com/Koplal/tai-discord-bot/pkg/agent"
	"github.com/Koplal/tai-discord-bot/pkg/boterr"
	"github.com/Koplal/tai-discord-bot/pkg/chat"
	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/llm"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
	"github.com/Koplal/tai-discord-bot/pkg/metrics"
	"github.com/Koplal/tai-discord-bot/pkg/tools"
)

const botName = "Tai"

// Request outcomes recorded per tier.
const (
	outcomeOK        = "ok"
	outcomeDenied    = "denied"
	outcomeRefused   = "refused"
	outcomeFailed    = "failed"
	outcomeExhausted = "exhausted"
)

const defaultUsageWindow = 7 * 24 * time.Hour

// Inbound is one normalized request from the chat surface, already
// addressed to the bot with the mention or command prefix stripped.
type Inbound struct {
	CallerID       string
	CallerName     string
	Groups         []string
	ChannelID      string
	MessageID      string
	ThreadParentID string // parent channel when the message arrived in a thread
	ReplyToID      string // message this one replies to, when any
	Text           string
	IsThread       bool
}

// UsageReporter answers the usage command. Satisfied by
// *metrics.UsageService; nil disables usage reporting.
type UsageReporter interface {
	Report(ctx context.Context, callerID string, window time.Duration) (*metrics.CallerUsage, error)
}

// Deps carries the process-scoped collaborators the service owns.
type Deps struct {
	Config     *config.Config
	Classifier *access.Classifier
	Admission  *admission.Controller
	Registry   *tools.Registry
	Tracker    tools.TrackerAPI
	Resolver   tools.EntityResolver
	History    chat.History
	Model      llm.LLMClient
	Usage      UsageReporter
	Sink       metrics.Sink
	Logger     *logx.Logger
	Now        func() time.Time
}

// Service is the long-lived request pipeline. All process state hangs off
// the service instance; there are no package-level mutable globals.
type Service struct {
	cfg          *config.Config
	classifier   *access.Classifier
	admission    *admission.Controller
	registry     *tools.Registry
	toolDeps     tools.Deps
	assembler    *chat.Assembler
	loop         *agent.Loop
	usage        UsageReporter
	sink         metrics.Sink
	instructions *template.Template
	logger       *logx.Logger
	now          func() time.Time
}

// New wires the pipeline. Config, Classifier, Admission, Registry,
// Tracker, Resolver, History, and Model are required.
func New(d Deps) (*Service, error) {
	if d.Config == nil {
		return nil, fmt.Errorf("bot service requires config")
	}
	if d.Classifier == nil {
		return nil, fmt.Errorf("bot service requires a classifier")
	}
	if d.Admission == nil {
		return nil, fmt.Errorf("bot service requires an admission controller")
	}
	if d.Registry == nil {
		return nil, fmt.Errorf("bot service requires a tool registry")
	}
	if d.Tracker == nil {
		return nil, fmt.Errorf("bot service requires a tracker client")
	}
	if d.Resolver == nil {
		return nil, fmt.Errorf("bot service requires an entity resolver")
	}
	if d.History == nil {
		return nil, fmt.Errorf("bot service requires conversation history")
	}
	if d.Model == nil {
		return nil, fmt.Errorf("bot service requires a model client")
	}

	if d.Sink == nil {
		d.Sink = metrics.Nop()
	}
	if d.Logger == nil {
		d.Logger = logx.NewLogger("bot")
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	tmpl, err := template.New("instructions").Parse(instructionsText)
	if err != nil {
		return nil, fmt.Errorf("parsing instructions template: %w", err)
	}

	assembler := chat.NewAssembler(d.History, chat.Config{
		ChannelWindow:      d.Config.Context.ChannelWindow,
		ThreadParentWindow: d.Config.Context.ThreadParentWindow,
		ReplyChainDepth:    d.Config.Context.ReplyChainDepth,
	}, d.Logger)

	return &Service{
		cfg:        d.Config,
		classifier: d.Classifier,
		admission:  d.Admission,
		registry:   d.Registry,
		toolDeps: tools.Deps{
			Tracker:  d.Tracker,
			Resolver: d.Resolver,
			TeamID:   d.Config.Tracker.Team,
		},
		assembler:    assembler,
		loop:         agent.NewLoop(d.Model, nil),
		usage:        d.Usage,
		sink:         d.Sink,
		instructions: tmpl,
		logger:       d.Logger,
		now:          d.Now,
	}, nil
}

// HandleMessage runs one request through the pipeline and returns the
// reply to deliver. Every path produces user-safe text within the
// transport limit.
func (s *Service) HandleMessage(ctx context.Context, in Inbound) string {
	runID := uuid.New().String()[:8]
	tier, features := s.classifier.Classify(in.Groups)
	s.logger.Info("[%s] request from %s (%s): %d chars", runID, in.CallerID, tier, len(in.Text))

	decision := s.admission.Check(in.CallerID, tier)
	if !decision.Allowed {
		s.sink.IncAdmissionDenied(tier.String())
		s.sink.ObserveRequest(tier.String(), outcomeDenied)
		s.logger.Info("[%s] admission denied, retry after %s", runID, decision.RetryAfter)
		return s.finish(boterr.NewAdmissionDenied(decision.RetryAfter).UserMessage())
	}

	reply, outcome := s.dispatch(ctx, runID, in, tier, features)
	s.sink.ObserveRequest(tier.String(), outcome)
	return s.finish(reply)
}

// dispatch routes the request: explicit commands first, then the
// capability gate, then conversation through the agent loop.
func (s *Service) dispatch(ctx context.Context, runID string, in Inbound, tier access.Tier, features []access.Feature) (string, string) {
	req := parseRequest(in.Text)

	switch req.Kind {
	case requestHelp:
		return s.helpReply(features), outcomeOK

	case requestUsage:
		if err := access.Require(features, access.FeatureUsageReport); err != nil {
			s.logger.Info("[%s] usage refused for tier %s", runID, tier)
			return boterr.AsError(err).UserMessage(), outcomeRefused
		}
		return s.usageReply(ctx, runID, req, in)

	case requestWrite:
		// A write-form request from a caller without the capability is
		// refused before any model or tracker work happens.
		if err := access.Require(features, access.FeatureTrackerWrite); err != nil {
			s.logger.Info("[%s] write refused for tier %s", runID, tier)
			return boterr.AsError(err).UserMessage(), outcomeRefused
		}

	case requestConversation:
	}

	if err := access.Require(features, access.FeatureBasicChat); err != nil {
		s.logger.Info("[%s] conversation refused for tier %s", runID, tier)
		return boterr.AsError(err).UserMessage(), outcomeRefused
	}
	return s.converse(ctx, runID, in, tier, features)
}

// converse assembles context and runs the agent loop with the tier's
// tool catalog.
func (s *Service) converse(ctx context.Context, runID string, in Inbound, tier access.Tier, features []access.Feature) (string, string) {
	transcript := s.assembleTranscript(ctx, in)
	provider := s.registry.Provider(s.toolDeps, tools.AllowedTools(features))

	instructions, err := s.buildInstructions(provider, in, tier)
	if err != nil {
		s.logger.Error("[%s] instructions render failed: %v", runID, err)
		return boterr.AsError(err).UserMessage(), outcomeFailed
	}

	result, err := s.loop.Run(ctx, agent.Config{
		Provider:      provider,
		Instructions:  instructions,
		Transcript:    transcript,
		Request:       in.Text,
		MaxIterations: s.cfg.Agent.MaxIterations,
		MaxTokens:     s.cfg.LLM.MaxTokens,
		Temperature:   s.cfg.LLM.Temperature,
		FallbackReply: s.cfg.Agent.FallbackReply,
	})
	if err != nil {
		s.logger.Error("[%s] run failed: %v", runID, err)
		return boterr.AsError(err).UserMessage(), outcomeFailed
	}

	s.sink.AddRunTokens(in.CallerID, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	s.logger.Info("[%s] %s after %d iterations, %d tokens", runID, result.State, result.Iterations, result.Usage.Total())

	if result.Exhausted {
		return result.Reply, outcomeExhausted
	}
	return result.Reply, outcomeOK
}

// assembleTranscript gathers context for the triggering message's shape.
// The triggering message itself is the request and is filtered out.
func (s *Service) assembleTranscript(ctx context.Context, in Inbound) string {
	var turns []chat.Turn
	switch {
	case in.IsThread:
		turns = s.assembler.ThreadContext(ctx, in.ChannelID, in.ThreadParentID, 0)
	case in.ReplyToID != "":
		tip := chat.Turn{
			ID:         in.MessageID,
			ChannelID:  in.ChannelID,
			AuthorID:   in.CallerID,
			AuthorName: in.CallerName,
			Text:       in.Text,
			ReplyToID:  in.ReplyToID,
		}
		turns = s.assembler.ReplyContext(ctx, in.ChannelID, tip, 0)
	default:
		turns = s.assembler.ChannelContext(ctx, in.ChannelID, 0)
	}

	kept := turns[:0]
	for _, t := range turns {
		if t.ID == in.MessageID {
			continue
		}
		kept = append(kept, t)
	}
	return chat.FormatTurns(kept)
}

func (s *Service) usageReply(ctx context.Context, runID string, req request, in Inbound) (string, string) {
	if s.usage == nil {
		return "Usage reporting is not configured.", outcomeOK
	}

	target := req.Target
	if target == "" {
		target = in.CallerID
	}
	window := req.Window
	if window <= 0 {
		window = defaultUsageWindow
	}

	report, err := s.usage.Report(ctx, target, window)
	if err != nil {
		s.logger.Error("[%s] usage query failed: %v", runID, err)
		return boterr.NewRemote(err, "usage query failed").UserMessage(), outcomeFailed
	}
	return fmt.Sprintf("Usage for %s over the last %s: %d prompt + %d completion = %d tokens.",
		target, report.Window, report.PromptTokens, report.CompletionTokens, report.TotalTokens), outcomeOK
}

// helpReply lists what this caller's tier can do.
func (s *Service) helpReply(features []access.Feature) string {
	prefix := s.cfg.Discord.CommandPrefix
	var b strings.Builder
	fmt.Fprintf(&b, "I'm %s. Mention me or start a message with %s and ask in plain language.\n", botName, prefix)
	if access.Has(features, access.FeatureTrackerRead) {
		fmt.Fprintf(&b, "- Ask about the %s tracker: \"what's the status of %s-379?\"\n", s.cfg.Tracker.Team, s.cfg.Tracker.Team)
	}
	if access.Has(features, access.FeatureTrackerWrite) {
		fmt.Fprintf(&b, "- Change the tracker: \"assign %s-379 to Jordan\", \"create a bug ...\"\n", s.cfg.Tracker.Team)
	}
	if access.Has(features, access.FeatureUsageReport) {
		fmt.Fprintf(&b, "- %s usage [@caller] [window] shows model token usage.\n", prefix)
	}
	b.WriteString("- I keep the recent channel conversation in mind; reply to a message or ask in a thread for focused context.")
	return b.String()
}

// finish masks secret-looking content and enforces the transport limit.
func (s *Service) finish(reply string) string {
	if cleaned, hit := chat.Redact(reply); hit {
		s.logger.Warn("redacted secret-like content from a reply")
		reply = cleaned
	}
	return chat.Truncate(reply, s.cfg.Reply.TruncationMarker, s.cfg.Reply.MaxChars)
}
