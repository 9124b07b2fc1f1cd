package notify

import (
	"fmt"
	"strings"
	"time"

	"reverie/internal/core"
)

const (
	recentMessageLimit = 10
	recentEntryLimit   = 5
)

// buildDecisionPrompt assembles the new entry, today's events, recent raw
// messages, and recent analyzed entries into one send/no-send question.
func buildDecisionPrompt(input Input, now time.Time) string {
	var prompt strings.Builder

	prompt.WriteString("The user just wrote a new journal entry. Weigh it against their past entries and messages and decide, as JSON, whether to send a reflection nudge.\n\n")

	prompt.WriteString("=== New entry (with analysis) ===\n")
	prompt.WriteString(fmt.Sprintf("Content: %s\n", input.NewEntry.Content))
	prompt.WriteString(fmt.Sprintf("Topic: %s\n", orNA(input.NewEntry.Topic)))
	prompt.WriteString(fmt.Sprintf("Emotion: %s\n", orNA(string(input.NewEntry.Emotion))))
	prompt.WriteString(fmt.Sprintf("Written: %s\n\n", orNA(input.NewEntry.Date)))

	today := now.Format("2006-01-02")
	var todayEvents []core.CalendarEvent
	for _, event := range input.Events {
		if event.StartDate.Format("2006-01-02") == today {
			todayEvents = append(todayEvents, event)
		}
	}
	prompt.WriteString("=== Current situation ===\n")
	prompt.WriteString(fmt.Sprintf("Current time: %s\n", now.Format(timeLayout)))
	prompt.WriteString(fmt.Sprintf("Calendar events today: %d\n", len(todayEvents)))
	for i, event := range todayEvents {
		if i == 3 {
			break
		}
		prompt.WriteString(fmt.Sprintf("  - %s [%s]\n", event.Title, event.Type))
	}
	prompt.WriteString("\n")

	messages := input.Messages
	if len(messages) > recentMessageLimit {
		messages = messages[len(messages)-recentMessageLimit:]
	}
	prompt.WriteString(fmt.Sprintf("=== Recent raw messages (%d) ===\n", len(messages)))
	if len(messages) == 0 {
		prompt.WriteString("none\n")
	}
	for _, msg := range messages {
		content := msg.Content
		if len(content) > 80 {
			content = content[:80]
		}
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", msg.At, content))
	}
	prompt.WriteString("\n")

	entries := input.Entries
	if len(entries) > recentEntryLimit {
		entries = entries[len(entries)-recentEntryLimit:]
	}
	prompt.WriteString(fmt.Sprintf("=== Recent analyzed entries (%d) ===\n", len(entries)))
	if len(entries) == 0 {
		prompt.WriteString("none\n")
	}
	for _, entry := range entries {
		content := entry.Content
		if len(content) > 50 {
			content = content[:50]
		}
		prompt.WriteString(fmt.Sprintf("- %s: [%s] [%s] %s\n", entry.Date, orNA(entry.Topic), orNA(string(entry.Emotion)), content))
	}
	prompt.WriteString("\n")

	prompt.WriteString("=== When a nudge helps ===\n")
	prompt.WriteString("- Right after a stressful event (meeting, presentation, interview) ended\n")
	prompt.WriteString("- When negative emotion has persisted and the user seems stuck\n")
	prompt.WriteString("- After an important calendar event has passed\n")
	prompt.WriteString("- When the same topic and emotion keep recurring across entries\n")
	prompt.WriteString("- At a large emotional swing, in either direction\n\n")

	prompt.WriteString("JSON format:\n")
	prompt.WriteString(`{
  "should_send": true,
  "send_time": "YYYY-MM-DD HH:MM:SS",
  "reason": "the synthesis across entries that justifies the decision"
}`)
	prompt.WriteString("\n")

	return prompt.String()
}

// buildMessagePrompt asks for the one-line nudge itself. The decision to send
// is already made.
func buildMessagePrompt() string {
	var prompt strings.Builder

	prompt.WriteString("Write a one-line notification asking the user to reflect on their day.\n\n")
	prompt.WriteString("=== Requirements ===\n")
	prompt.WriteString("1. Exactly one line, at most 20 characters or so\n")
	prompt.WriteString("2. A friendly, natural question\n")
	prompt.WriteString("3. Warm and brief\n\n")
	prompt.WriteString("Examples:\n")
	prompt.WriteString("- \"How was your day?\"\n")
	prompt.WriteString("- \"Was today rough?\"\n")
	prompt.WriteString("- \"Time to look back?\"\n\n")
	prompt.WriteString("JSON format:\n")
	prompt.WriteString(`{"message": "the notification text"}`)
	prompt.WriteString("\n")

	return prompt.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
