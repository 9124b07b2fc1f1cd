package insight

import (
	"context"
	"log/slog"

	"reverie/internal/core"
	"reverie/internal/jsonblock"
	"reverie/internal/logger"
)

// Narrator rewrites each insight into a one-line colloquial gloss. It is a
// presentation-only post-process: it never fails the pipeline and does not
// gate report acceptance.
type Narrator struct {
	gen TextGenerator
	log *slog.Logger
}

// NewNarrator creates a narrator backed by the given text generator.
func NewNarrator(gen TextGenerator) *Narrator {
	return &Narrator{gen: gen, log: logger.Get()}
}

// Narrate returns a copy of insights with Gloss filled in. Glosses come from
// one batch call, matched back by explicit index; any insight that doesn't
// get a usable gloss (missing index, malformed reply, whole-batch failure)
// falls back to its own description.
func (n *Narrator) Narrate(ctx context.Context, insights []core.Insight) []core.Insight {
	if len(insights) == 0 {
		return nil
	}

	narrated := make([]core.Insight, len(insights))
	copy(narrated, insights)

	prompt := buildNarrationPrompt(insights)
	response, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		n.log.Warn("insight narration call failed, using descriptions as glosses", "error", err)
		return fillMissingGlosses(narrated)
	}

	var out struct {
		Summaries []struct {
			Index   int    `json:"index"`
			Summary string `json:"summary"`
		} `json:"insight_summaries"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		n.log.Warn("insight narration returned malformed output, using descriptions as glosses", "error", err)
		return fillMissingGlosses(narrated)
	}

	matched := 0
	for _, s := range out.Summaries {
		if s.Index >= 0 && s.Index < len(narrated) && s.Summary != "" {
			narrated[s.Index].Gloss = s.Summary
			matched++
		}
	}

	narrated = fillMissingGlosses(narrated)
	n.log.Info("insight narration complete", "total", len(narrated), "matched", matched, "fallback", len(narrated)-matched)
	return narrated
}

func fillMissingGlosses(insights []core.Insight) []core.Insight {
	for i := range insights {
		if insights[i].Gloss == "" {
			insights[i].Gloss = insights[i].Description
		}
	}
	return insights
}
