package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"reverie/internal/core"
)

const maxContentPreview = 100

// buildExtractionPrompt embeds the full sorted entry list plus emotion/topic
// tallies and asks for date-anchored insights only. Vague aggregate
// statements are explicitly disallowed: every insight must cite dates.
func buildExtractionPrompt(entries []core.JournalEntry, stats entryStats, periodStart, periodEnd string) string {
	var prompt strings.Builder

	prompt.WriteString("You are an expert at analyzing journal data and extracting only verifiable insights (patterns and relations).\n\n")
	prompt.WriteString("**Important**: Do not write prose. Extract insights only.\n\n")

	prompt.WriteString("=== Report period ===\n")
	prompt.WriteString(fmt.Sprintf("Start: %s\nEnd: %s\nEntry count: %d\n\n", periodStart, periodEnd, len(entries)))

	prompt.WriteString("=== Journal entries (sorted by date) ===\n")
	for _, entry := range entries {
		content := entry.Content
		if len(content) > maxContentPreview {
			content = content[:maxContentPreview]
		}
		prompt.WriteString(fmt.Sprintf("date: %s | topic: %s | emotion: %s | content: %s\n",
			orNA(entry.Date), orNA(entry.Topic), orNA(string(entry.Emotion)), content))
	}
	prompt.WriteString("\n")

	prompt.WriteString("=== Statistics ===\n")
	prompt.WriteString(fmt.Sprintf("Emotion counts: %s\n", formatEmotionCounts(stats.emotionCounts)))
	prompt.WriteString(fmt.Sprintf("Top topics: %s\n\n", formatTopTopics(stats.topTopics)))

	prompt.WriteString("=== Core principles ===\n")
	prompt.WriteString("1. Every insight MUST reference specific dates and actual entry content.\n")
	prompt.WriteString("2. Analyze the flow of time explicitly: emotional shifts before/after events, recurring patterns.\n")
	prompt.WriteString("3. Only verifiable observations: \"anxious the day before, calm the day after\" style.\n")
	prompt.WriteString("4. Vague aggregate statements are forbidden: not \"anxiety appeared often\" but \"anxious on 2025-12-14 before the exam, calm on 2025-12-16 after it\".\n\n")

	prompt.WriteString("=== What to look for ===\n")
	prompt.WriteString("1. Time-based contrasts: emotional change around a specific date or event\n")
	prompt.WriteString("2. Repetition: the same pattern recurring across dates\n")
	prompt.WriteString("3. Relations: causal or correlational links between events, dates, and emotions\n")
	prompt.WriteString("4. Concrete evidence: each insight cites the dates and entry keywords it rests on\n\n")

	prompt.WriteString("=== Output JSON format (strict) ===\n")
	prompt.WriteString(`{
  "insights": [
    {
      "type": "time_contrast" | "repetition" | "causal_relation",
      "description": "concrete pattern description naming dates and emotional changes",
      "date_references": ["YYYY-MM-DD", "YYYY-MM-DD"],
      "evidence": "key phrases from the referenced entries"
    }
  ]
}`)
	prompt.WriteString("\n\nEach insight must reference at least one date from the entries above.\n")

	return prompt.String()
}

// buildNarrationPrompt asks for a one-line colloquial gloss per insight,
// matched back by explicit index.
func buildNarrationPrompt(insights []core.Insight) string {
	var prompt strings.Builder

	prompt.WriteString("You are an expert at rewriting analytical insights as warm, natural one-liners.\n\n")

	prompt.WriteString("=== Insights ===\n")
	raw, err := json.MarshalIndent(insights, "", "  ")
	if err == nil {
		prompt.Write(raw)
	}
	prompt.WriteString("\n\n")

	prompt.WriteString("=== Rules ===\n")
	prompt.WriteString("1. One line per insight, at most 60 characters or so.\n")
	prompt.WriteString("2. Conversational tone: \"the worry turned into calm\", \"planning fell apart again\".\n")
	prompt.WriteString("3. Omit literal dates; the reader can look them up separately.\n")
	prompt.WriteString("4. Never use technical labels like \"time_contrast\" or \"repetition\".\n")
	prompt.WriteString("5. Say clearly what changed into what, or what kept happening.\n\n")

	prompt.WriteString("=== Output JSON format ===\n")
	prompt.WriteString(`{
  "insight_summaries": [
    {"index": 0, "summary": "The anxious days settled into calm ones."},
    {"index": 1, "summary": "Worry kept showing up the night before big plans."}
  ]
}`)
	prompt.WriteString("\n\nIndexes must match the input order exactly.\n")

	return prompt.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatEmotionCounts(counts map[core.Emotion]int) string {
	if len(counts) == 0 {
		return "none"
	}
	// Fixed order keeps prompts deterministic for a given entry set.
	order := []core.Emotion{core.EmotionJoy, core.EmotionCalm, core.EmotionSadness, core.EmotionAnger, core.EmotionAnxiety, core.EmotionExhausted}
	var parts []string
	for _, e := range order {
		if n, ok := counts[e]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", e, n))
		}
	}
	return strings.Join(parts, ", ")
}

func formatTopTopics(topics []topicCount) string {
	if len(topics) == 0 {
		return "none"
	}
	var parts []string
	for _, tc := range topics {
		parts = append(parts, fmt.Sprintf("%s=%d", tc.topic, tc.count))
	}
	return strings.Join(parts, ", ")
}
