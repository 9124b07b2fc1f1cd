// Package calendar classifies calendar events by their psychological
// character so the notification pipeline can anticipate emotionally loaded
// days.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reverie/internal/core"
	"reverie/internal/jsonblock"
	"reverie/internal/logger"
)

// TextGenerator is the generative text provider used by this package.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier assigns an event type to a calendar event title with a single
// generative call. Classification is advisory: any failure degrades to the
// ROUTINE type rather than surfacing an error.
type Classifier struct {
	gen TextGenerator
	log *slog.Logger
}

// NewClassifier creates a classifier backed by the given text generator.
func NewClassifier(gen TextGenerator) *Classifier {
	return &Classifier{gen: gen, log: logger.Get()}
}

// Classify returns the event type for the given title. Blank titles, call
// failures, malformed replies, and unknown labels all classify as ROUTINE.
func (c *Classifier) Classify(ctx context.Context, title string) core.CalendarEventType {
	title = strings.TrimSpace(title)
	if title == "" {
		return core.EventRoutine
	}

	response, err := c.gen.Generate(ctx, buildClassificationPrompt(title))
	if err != nil {
		c.log.Warn("event classification call failed, defaulting to ROUTINE", "title", title, "error", err)
		return core.EventRoutine
	}

	var out struct {
		EventType string `json:"event_type"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		c.log.Warn("event classification returned malformed output, defaulting to ROUTINE", "title", title, "error", err)
		return core.EventRoutine
	}

	eventType := core.CalendarEventType(strings.ToUpper(strings.TrimSpace(out.EventType)))
	if !eventType.Valid() {
		c.log.Warn("event classification returned unknown label, defaulting to ROUTINE", "title", title, "label", out.EventType)
		return core.EventRoutine
	}
	return eventType
}

func buildClassificationPrompt(title string) string {
	var prompt strings.Builder

	prompt.WriteString("Classify this calendar event by its psychological character, not its literal subject.\n\n")
	prompt.WriteString(fmt.Sprintf("Event title: %s\n\n", title))

	prompt.WriteString("=== Types ===\n")
	prompt.WriteString("- PERFORMANCE: exams, interviews, presentations, deadlines (anticipatory pressure)\n")
	prompt.WriteString("- SOCIAL: gatherings, dinners, meetups (social energy expenditure)\n")
	prompt.WriteString("- CELEBRATION: birthdays, anniversaries, holidays\n")
	prompt.WriteString("- HEALTH: medical appointments, therapy, exercise\n")
	prompt.WriteString("- LEISURE: trips, concerts, time off\n")
	prompt.WriteString("- ROUTINE: errands and low-stakes scheduling; also the fallback when unsure\n\n")

	prompt.WriteString("JSON format:\n")
	prompt.WriteString(`{"event_type": "PERFORMANCE"}`)
	prompt.WriteString("\n")

	return prompt.String()
}
