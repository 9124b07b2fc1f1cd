package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"reverie/internal/core"
)

// buildCompositionPrompt asks for the three-part report structure: an
// impactful opening line, a body paragraph grounded in the insights, and a
// closing paragraph. Literal dates and raw emotion codes are banned from the
// output.
func buildCompositionPrompt(insights []core.Insight, periodStart, periodEnd string) string {
	var prompt strings.Builder

	prompt.WriteString("You are an expert at turning insights into a warm, readable reflective report.\n\n")

	prompt.WriteString("=== Report period ===\n")
	prompt.WriteString(fmt.Sprintf("Start: %s\nEnd: %s\n\n", periodStart, periodEnd))

	prompt.WriteString("=== Extracted insights ===\n")
	raw, err := json.MarshalIndent(insights, "", "  ")
	if err == nil {
		prompt.Write(raw)
	}
	prompt.WriteString("\n\n")

	prompt.WriteString("=== Required structure ===\n")
	prompt.WriteString("**1. Opening line** (one line, roughly 30-40 characters)\n")
	prompt.WriteString("   - Strong and evocative, never a plain recitation\n")
	prompt.WriteString("   - Good: \"Moments where joy and worry traded places\"\n")
	prompt.WriteString("   - Bad: \"This period showed a variety of emotions.\" (no impact)\n")
	prompt.WriteString("**2. Body** (one paragraph, 3-5 sentences)\n")
	prompt.WriteString("   - Concrete observations and patterns drawn from the insights\n")
	prompt.WriteString("**3. Conclusion** (one paragraph, 3-5 sentences)\n")
	prompt.WriteString("   - An interpretation or gentle closing in the overall context\n\n")

	prompt.WriteString("=== Writing rules ===\n")
	prompt.WriteString("1. Follow the structure exactly: \"[opening line]\\n\\n[body]\\n\\n[conclusion]\".\n")
	prompt.WriteString("2. Never mention literal dates. Use relative phrasing instead: \"the day before\", \"afterward\", \"around the exam\".\n")
	prompt.WriteString("3. Never use category codes or technical vocabulary: no \"JOY\", \"ANXIETY\", \"CALM\", no \"data\", \"analysis\", \"pattern extraction\", \"insight\".\n")
	prompt.WriteString("   Write naturally: \"felt at ease\", \"the worry came back\".\n")
	prompt.WriteString("4. Weave the insights into one flowing story; do not list them.\n")
	prompt.WriteString("5. Keep a personal, warm tone.\n\n")

	prompt.WriteString("=== Forbidden ===\n")
	prompt.WriteString("- Diagnostic claims (\"you have depression\", \"you need treatment\")\n")
	prompt.WriteString("- Dangerous directives (medication, self-harm, medical advice)\n")
	prompt.WriteString("- Excessive unsolicited advice\n")
	prompt.WriteString("- Disproportionate emphasis on negative emotion\n\n")

	prompt.WriteString("=== Output JSON format ===\n")
	prompt.WriteString(`{
  "report": "[opening line]\n\n[body paragraph]\n\n[conclusion paragraph]",
  "summary": "the opening line, identical to the report's first line"
}`)
	prompt.WriteString("\n\nEscape newlines inside JSON strings as \\n; no raw control characters.\n")

	return prompt.String()
}

const judgeEntryContext = 10

// buildQualityPrompt evaluates usefulness, clarity, and structural
// conformance against a sample of the source entries.
func buildQualityPrompt(report string, entries []core.JournalEntry) string {
	var prompt strings.Builder

	prompt.WriteString("Evaluate the usefulness and clarity of this generated report.\n\n")

	prompt.WriteString("=== Source journal entries (context) ===\n")
	tail := entries
	if len(tail) > judgeEntryContext {
		tail = tail[len(tail)-judgeEntryContext:]
	}
	if len(tail) == 0 {
		prompt.WriteString("none\n")
	}
	for _, entry := range tail {
		content := entry.Content
		if len(content) > 50 {
			content = content[:50]
		}
		prompt.WriteString(fmt.Sprintf("- %s: [%s] [%s] %s\n", entry.Date, orNA(entry.Topic), orNA(string(entry.Emotion)), content))
	}
	prompt.WriteString("\n=== Report under evaluation ===\n")
	prompt.WriteString(report)
	prompt.WriteString("\n\n=== Quality criteria ===\n")
	prompt.WriteString("1. Usefulness: does the report genuinely reflect the entries? Are observed changes and patterns traceable to them rather than generic?\n")
	prompt.WriteString("2. Structure: opening line, body paragraph, conclusion paragraph — all three present and readable?\n")
	prompt.WriteString("3. Completeness: is anything essential missing?\n")
	prompt.WriteString("4. Vocabulary: no leaked category codes (JOY, ANXIETY, ...) or technical terms?\n\n")

	prompt.WriteString("JSON format:\n")
	prompt.WriteString(`{
  "score": 0.0-1.0,
  "feedback": "evaluation feedback",
  "issues": ["problem 1", "problem 2"]
}`)
	prompt.WriteString("\n")

	return prompt.String()
}

// buildSafetyPrompt evaluates diagnostic claims, dangerous directives, and
// emotional balance.
func buildSafetyPrompt(report string) string {
	var prompt strings.Builder

	prompt.WriteString("Evaluate the safety of this generated report.\n\n")

	prompt.WriteString("=== Report under evaluation ===\n")
	prompt.WriteString(report)
	prompt.WriteString("\n\n=== Safety criteria ===\n")
	prompt.WriteString("1. Diagnostic claims: does it assert conditions it cannot know? (\"you seem depressed\", \"you clearly need psychiatric treatment\" are forbidden)\n")
	prompt.WriteString("2. Dangerous directives: any medical, legal, financial, or self-harm related advice? (\"you should take medication\" is forbidden)\n")
	prompt.WriteString("3. Over-advising: does it lecture beyond what was asked?\n")
	prompt.WriteString("4. Emotional balance: does it dwell disproportionately on negative emotion?\n\n")

	prompt.WriteString("JSON format:\n")
	prompt.WriteString(`{
  "score": 0.0-1.0,
  "feedback": "evaluation feedback",
  "issues": ["problem 1", "problem 2"]
}`)
	prompt.WriteString("\n")

	return prompt.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
