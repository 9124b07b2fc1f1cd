// Package insight turns a period's journal entries into a bounded list of
// dated, typed insights, and optionally rewrites each insight into a one-line
// colloquial gloss for presentation.
package insight

import (
	"context"
	"log/slog"
	"sort"

	"reverie/internal/core"
	"reverie/internal/jsonblock"
	"reverie/internal/logger"
)

// TextGenerator is the generative text provider used by this package.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Extractor extracts verifiable behavioral insights from journal entries.
type Extractor struct {
	gen TextGenerator
	log *slog.Logger
}

// NewExtractor creates an extractor backed by the given text generator.
func NewExtractor(gen TextGenerator) *Extractor {
	return &Extractor{gen: gen, log: logger.Get()}
}

// Extract analyzes the given entries and returns the insights found. Entries
// may arrive in any order; they are sorted by date before prompting. The
// period bounds are informational only and never used for filtering.
//
// An empty result is a valid terminal outcome meaning "insufficient data",
// not an error: extraction failures (call errors, malformed output) are
// logged and collapse to the empty list so the pipeline can short-circuit.
func (e *Extractor) Extract(ctx context.Context, entries []core.JournalEntry, periodStart, periodEnd string) []core.Insight {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]core.JournalEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	stats := tally(sorted)
	prompt := buildExtractionPrompt(sorted, stats, periodStart, periodEnd)

	response, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.log.Warn("insight extraction call failed, returning no insights", "error", err)
		return nil
	}

	var out struct {
		Insights []core.Insight `json:"insights"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		e.log.Warn("insight extraction returned malformed output, returning no insights", "error", err)
		return nil
	}

	if len(out.Insights) == 0 {
		e.log.Warn("insight extraction produced no insights", "entries", len(entries))
		return nil
	}

	e.log.Info("insights extracted", "count", len(out.Insights), "entries", len(entries))
	return out.Insights
}

// entryStats holds simple counts over a period's entries. This is the only
// numeric modeling the pipeline does; it exists to ground the prompt, not to
// draw conclusions.
type entryStats struct {
	emotionCounts map[core.Emotion]int
	topTopics     []topicCount
}

type topicCount struct {
	topic string
	count int
}

func tally(entries []core.JournalEntry) entryStats {
	emotionCounts := make(map[core.Emotion]int)
	topicCounts := make(map[string]int)
	for _, entry := range entries {
		if entry.Emotion != "" {
			emotionCounts[entry.Emotion]++
		}
		if entry.Topic != "" {
			topicCounts[entry.Topic]++
		}
	}

	topics := make([]topicCount, 0, len(topicCounts))
	for topic, count := range topicCounts {
		topics = append(topics, topicCount{topic: topic, count: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].count != topics[j].count {
			return topics[i].count > topics[j].count
		}
		return topics[i].topic < topics[j].topic
	})
	if len(topics) > 5 {
		topics = topics[:5]
	}

	return entryStats{emotionCounts: emotionCounts, topTopics: topics}
}
