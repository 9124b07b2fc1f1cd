// Package analyze tags a single journal entry with a topic and an emotion so
// entries carry structured metadata from the moment they are written.
package analyze

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

// Analyzer extracts a topic noun phrase and an emotion label from one entry
// with a single generative call. Analysis is advisory: any failure degrades to
// empty values rather than blocking the entry.
type Analyzer struct {
	gen TextGenerator
	log *slog.Logger
}

// NewAnalyzer creates an analyzer backed by the given text generator.
func NewAnalyzer(gen TextGenerator) *Analyzer {
	return &Analyzer{gen: gen, log: logger.Get()}
}

// Analyze returns the topic and emotion for the entry content. Blank content,
// call failures, malformed replies, and unknown emotion labels all come back
// empty on the failed field.
func (a *Analyzer) Analyze(ctx context.Context, content string) (string, core.Emotion) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ""
	}

	response, err := a.gen.Generate(ctx, buildAnalysisPrompt(content))
	if err != nil {
		a.log.Warn("entry analysis call failed", "error", err)
		return "", ""
	}

	var out struct {
		Topic   string `json:"topic"`
		Emotion string `json:"emotion"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		a.log.Warn("entry analysis returned malformed output", "error", err)
		return "", ""
	}

	topic := strings.TrimSpace(out.Topic)
	emotion := core.Emotion(strings.ToUpper(strings.TrimSpace(out.Emotion)))
	if !emotion.Valid() {
		if out.Emotion != "" {
			a.log.Warn("entry analysis returned unknown emotion label", "label", out.Emotion)
		}
		emotion = ""
	}
	return topic, emotion
}

func buildAnalysisPrompt(content string) string {
	var prompt strings.Builder

	prompt.WriteString("Read this journal entry and extract its main topic and dominant emotion.\n\n")
	prompt.WriteString(fmt.Sprintf("Entry:\n%s\n\n", content))

	prompt.WriteString("=== Rules ===\n")
	prompt.WriteString("- topic: one short noun phrase naming what the entry is about\n")
	prompt.WriteString("- emotion: exactly one of JOY, CALM, SADNESS, ANGER, ANXIETY, EXHAUSTED\n\n")

	prompt.WriteString("JSON format:\n")
	prompt.WriteString(`{"topic": "exam preparation", "emotion": "ANXIETY"}`)
	prompt.WriteString("\n")

	return prompt.String()
}
