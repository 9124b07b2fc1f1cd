// Package report composes a reflective narrative from extracted insights,
// judges it on quality and safety axes, and drives the compose/judge retry
// loop that selects the report finally returned to the caller.
package report

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"reverie/internal/core"
	"reverie/internal/jsonblock"
	"reverie/internal/logger"
)

// TextGenerator is the generative text provider used by this package.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fixed texts returned when a stage cannot produce a real report. These are
// user-facing sentinels, not errors.
const (
	InsufficientDataReport  = "Not enough could be drawn from this period's entries to write a report."
	InsufficientDataSummary = "Insufficient data"
	FailureReport           = "Report composition failed."
	FailureSummary          = "The report could not be written"
)

// Composed is the output of one composition call.
type Composed struct {
	Report  string // hook + body + conclusion, paragraphs separated by blank lines
	Summary string // the report's opening line
}

// Composer turns an insight list into a structured narrative.
type Composer struct {
	gen TextGenerator
	log *slog.Logger
}

// NewComposer creates a composer backed by the given text generator.
func NewComposer(gen TextGenerator) *Composer {
	return &Composer{gen: gen, log: logger.Get()}
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// Compose writes a three-part report (hook, body, conclusion) grounded in the
// insights, with literal dates replaced by relative temporal phrasing and raw
// emotion codes rewritten as natural language. On call or parse failure it
// returns the fixed failure-marker pair so the judge still has something to
// score; it never returns an error.
func (c *Composer) Compose(ctx context.Context, insights []core.Insight, periodStart, periodEnd string) Composed {
	if len(insights) == 0 {
		return Composed{Report: InsufficientDataReport, Summary: InsufficientDataSummary}
	}

	prompt := buildCompositionPrompt(insights, periodStart, periodEnd)

	response, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		c.log.Warn("report composition call failed", "error", err)
		return Composed{Report: FailureReport, Summary: FailureSummary}
	}

	var out struct {
		Report  string `json:"report"`
		Summary string `json:"summary"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		c.log.Warn("report composition returned malformed output", "error", err)
		return Composed{Report: FailureReport, Summary: FailureSummary}
	}

	report := normalizeParagraphs(out.Report)
	if report != "" {
		c.log.Info("report composed", "summary", truncate(out.Summary, 50))
	}
	return Composed{Report: report, Summary: strings.TrimSpace(out.Summary)}
}

// normalizeParagraphs converts CRLF line endings and collapses runs of blank
// lines so paragraphs are always separated by exactly one blank line.
func normalizeParagraphs(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
