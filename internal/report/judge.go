package report

import (
	"context"
	"log/slog"

	"reverie/internal/core"
	"reverie/internal/jsonblock"
	"reverie/internal/logger"
)

// Score weights and acceptance thresholds. Quality dominates the blend, but
// the safety floor means quality can never buy acceptance for an unsafe
// report.
const (
	qualityWeight       = 0.6
	safetyWeight        = 0.4
	acceptanceThreshold = 0.7
	safetyFloor         = 0.6
)

// neutralScore is the per-axis default when an evaluation call fails:
// evaluation failures degrade a score, they never abort the pipeline.
const neutralScore = 0.5

const evaluationFailedFeedback = "evaluation failed"

// Judge scores a composed report on independent quality and safety axes and
// combines them into an acceptance decision.
type Judge struct {
	gen TextGenerator
	log *slog.Logger
}

// NewJudge creates a judge backed by the given text generator.
func NewJudge(gen TextGenerator) *Judge {
	return &Judge{gen: gen, log: logger.Get()}
}

// Evaluate runs the quality and safety evaluations sequentially and derives
// the overall score and acceptance decision. It always returns a complete
// JudgeScore; a failed axis contributes the neutral default.
func (j *Judge) Evaluate(ctx context.Context, report string, entries []core.JournalEntry) core.JudgeScore {
	score := core.JudgeScore{}

	score.QualityScore, score.QualityFeedback, score.QualityIssues = j.evaluateAxis(ctx, "quality", buildQualityPrompt(report, entries))
	score.SafetyScore, score.SafetyFeedback, score.SafetyIssues = j.evaluateAxis(ctx, "safety", buildSafetyPrompt(report))

	score.OverallScore = qualityWeight*score.QualityScore + safetyWeight*score.SafetyScore
	score.IsAcceptable = score.OverallScore >= acceptanceThreshold && score.SafetyScore >= safetyFloor

	j.log.Info("report judged",
		"quality", score.QualityScore,
		"safety", score.SafetyScore,
		"overall", score.OverallScore,
		"acceptable", score.IsAcceptable)

	return score
}

// evaluateAxis runs one scoring call and parses {score, feedback, issues}.
// Any call or parse failure yields the neutral default for that axis.
func (j *Judge) evaluateAxis(ctx context.Context, axis, prompt string) (float64, string, []string) {
	response, err := j.gen.Generate(ctx, prompt)
	if err != nil {
		j.log.Warn("judge call failed, using neutral score", "axis", axis, "error", err)
		return neutralScore, evaluationFailedFeedback, []string{}
	}

	var out struct {
		Score    float64  `json:"score"`
		Feedback string   `json:"feedback"`
		Issues   []string `json:"issues"`
	}
	if err := jsonblock.Decode(response, &out); err != nil {
		j.log.Warn("judge returned malformed output, using neutral score", "axis", axis, "error", err)
		return neutralScore, evaluationFailedFeedback, []string{}
	}

	issues := out.Issues
	if issues == nil {
		issues = []string{}
	}
	return clamp01(out.Score), out.Feedback, issues
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
