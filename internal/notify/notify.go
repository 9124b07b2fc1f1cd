// Package notify decides, at the moment a new journal entry lands, whether to
// nudge the user toward reflection, writes the one-line nudge message, and
// scores the whole decision.
package notify

import (
	"context"
	"log/slog"
	"time"

	"reverie/internal/core"
	"reverie/internal/jsonblock"
	"reverie/internal/logger"
)

// DefaultMessage is the nudge sent when message writing fails.
const DefaultMessage = "How was your day?"

const timeLayout = "2006-01-02 15:04:05"

// TextGenerator is the generative text provider used by this package.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RawMessage is a verbatim user message considered as decision context.
type RawMessage struct {
	Content string `json:"content"`
	At      string `json:"datetime"` // "YYYY-MM-DD HH:MM:SS"
}

// Input is everything the decision considers: the entry that triggered it,
// prior analyzed entries, calendar events, and raw user messages.
type Input struct {
	NewEntry core.JournalEntry
	Entries  []core.JournalEntry
	Events   []core.CalendarEvent
	Messages []RawMessage
}

// Notifier runs the one-shot decide/write/evaluate notification pipeline.
type Notifier struct {
	gen TextGenerator
	log *slog.Logger
	now func() time.Time
}

// NewNotifier creates a notifier backed by the given text generator.
func NewNotifier(gen TextGenerator) *Notifier {
	return &Notifier{gen: gen, log: logger.Get(), now: time.Now}
}

// Decide runs the full pipeline and always returns a complete decision. A
// failed decision call degrades to not-send with tomorrow 09:00 as the
// nominal time; a failed message call falls back to the default nudge.
func (n *Notifier) Decide(ctx context.Context, input Input) core.NotificationDecision {
	now := n.now()

	decision := n.decide(ctx, input, now)
	if decision.ShouldSend {
		decision.Message = n.writeMessage(ctx)
	}
	decision.EvaluationScore = evaluate(decision)

	n.log.Info("notification decision complete",
		"should_send", decision.ShouldSend,
		"send_time", decision.SendTime,
		"score", decision.EvaluationScore)
	return decision
}

// decide makes the send/no-send call from the combined context.
func (n *Notifier) decide(ctx context.Context, input Input, now time.Time) core.NotificationDecision {
	fallback := core.NotificationDecision{
		ShouldSend: false,
		SendTime:   nextMorning(now).Format(timeLayout),
		Reason:     "decision unavailable, defaulting to no notification",
	}

	response, err := n.gen.Generate(ctx, buildDecisionPrompt(input, now))
	if err != nil {
		n.log.Warn("notification decision call failed, defaulting to no-send", "error", err)
		return fallback
	}

	var out struct {
		ShouldSend bool   `json:"should_send"`
		SendTime   string `json:"send_time"`
		Reason     string `json:"reason"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		n.log.Warn("notification decision returned malformed output, defaulting to no-send", "error", err)
		return fallback
	}

	sendTime := out.SendTime
	if sendTime == "" {
		sendTime = now.Format(timeLayout)
	}
	return core.NotificationDecision{
		ShouldSend: out.ShouldSend,
		SendTime:   sendTime,
		Reason:     out.Reason,
	}
}

// writeMessage produces the one-line nudge. The send decision is already
// made; this call only words it.
func (n *Notifier) writeMessage(ctx context.Context) string {
	response, err := n.gen.Generate(ctx, buildMessagePrompt())
	if err != nil {
		n.log.Warn("notification message call failed, using default message", "error", err)
		return DefaultMessage
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := jsonblock.Decode(response, &out); err != nil || out.Message == "" {
		n.log.Warn("notification message returned malformed output, using default message", "error", err)
		return DefaultMessage
	}
	return out.Message
}

// nextMorning returns 09:00 on the day after t, the nominal time attached to
// a degraded no-send decision.
func nextMorning(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 9, 0, 0, 0, t.Location())
}
