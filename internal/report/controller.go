package report

import (
	"context"
	"log/slog"
	"time"

	"reverie/internal/core"
	"reverie/internal/insight"
	"reverie/internal/logger"
)

// DefaultMaxRetries gives up to three compose/judge cycles per request.
const DefaultMaxRetries = 2

// Stage identifies a state of the report generation state machine. The
// retry/acceptance logic lives entirely in the transition function so it can
// be audited and tested independently of prompt construction.
type Stage int

const (
	StageExtract Stage = iota
	StageCompose
	StageJudge
	StageDoneAccepted
	StageDoneBestEffort
	StageDoneEmpty
	StageDoneFailed
)

func (s Stage) String() string {
	switch s {
	case StageExtract:
		return "extract"
	case StageCompose:
		return "compose"
	case StageJudge:
		return "judge"
	case StageDoneAccepted:
		return "done-accepted"
	case StageDoneBestEffort:
		return "done-best-effort"
	case StageDoneEmpty:
		return "done-empty"
	case StageDoneFailed:
		return "done-failed"
	}
	return "unknown"
}

// Stage collaborators. The pipeline owns the control flow; the stages own the
// prompts. Tests substitute these to exercise transitions without a model.
type (
	extractorStage interface {
		Extract(ctx context.Context, entries []core.JournalEntry, periodStart, periodEnd string) []core.Insight
	}
	narratorStage interface {
		Narrate(ctx context.Context, insights []core.Insight) []core.Insight
	}
	composerStage interface {
		Compose(ctx context.Context, insights []core.Insight, periodStart, periodEnd string) Composed
	}
	judgeStage interface {
		Evaluate(ctx context.Context, report string, entries []core.JournalEntry) core.JudgeScore
	}
)

// Options configures the pipeline controller.
type Options struct {
	MaxRetries  int           // Retries after the first compose/judge cycle
	CallTimeout time.Duration // Per-generative-call deadline; 0 disables
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		MaxRetries:  DefaultMaxRetries,
		CallTimeout: 60 * time.Second,
	}
}

// Pipeline orchestrates extract → compose → judge with bounded retries and
// best-effort candidate selection. One Pipeline is safe for concurrent
// requests; each invocation keeps all of its state on the stack.
type Pipeline struct {
	extractor extractorStage
	narrator  narratorStage
	composer  composerStage
	judge     judgeStage
	opts      Options
	log       *slog.Logger
	now       func() time.Time
}

// NewPipeline wires the concrete stages around one shared text generator.
func NewPipeline(gen TextGenerator, opts Options) *Pipeline {
	g := gen
	if opts.CallTimeout > 0 {
		g = timeoutGenerator{gen: gen, timeout: opts.CallTimeout}
	}
	return &Pipeline{
		extractor: insight.NewExtractor(g),
		narrator:  insight.NewNarrator(g),
		composer:  NewComposer(g),
		judge:     NewJudge(g),
		opts:      opts,
		log:       logger.Get(),
		now:       time.Now,
	}
}

// GenerateWeekly produces a reflective report for the period. Period bounds
// default to the last seven days when empty. Every failure mode yields a
// defined degraded result; this function never returns an error.
//
// Extraction runs exactly once. Composition and judging run up to
// 1+MaxRetries times; the first acceptable candidate wins immediately, and
// otherwise the highest-scoring candidate is returned (earliest attempt on
// ties).
func (p *Pipeline) GenerateWeekly(ctx context.Context, entries []core.JournalEntry, periodStart, periodEnd string) core.PipelineResult {
	if periodEnd == "" {
		periodEnd = p.now().Format("2006-01-02")
	}
	if periodStart == "" {
		periodStart = p.now().AddDate(0, 0, -7).Format("2006-01-02")
	}

	maxAttempts := 1 + p.opts.MaxRetries

	var (
		insights   []core.Insight
		narrated   []core.Insight
		candidates []core.Candidate
		current    Composed
		attempt    int
	)

	stage := StageExtract
	for {
		switch stage {
		case StageExtract:
			p.log.Info("report pipeline started", "entries", len(entries), "period_start", periodStart, "period_end", periodEnd)
			insights = p.extractor.Extract(ctx, entries, periodStart, periodEnd)
			if len(insights) == 0 {
				stage = StageDoneEmpty
				continue
			}
			narrated = p.narrator.Narrate(ctx, insights)
			stage = StageCompose

		case StageCompose:
			attempt++
			p.log.Info("composing report", "attempt", attempt, "max_attempts", maxAttempts)
			// Composition always sees the original insights: the narrated
			// glosses are presentation-only and drop the date anchors the
			// composer needs.
			current = p.composer.Compose(ctx, insights, periodStart, periodEnd)
			if current.Report == "" {
				p.log.Warn("composition produced no report text, skipping judge", "attempt", attempt)
				stage = nextAttemptStage(attempt, maxAttempts, len(candidates))
				continue
			}
			stage = StageJudge

		case StageJudge:
			score := p.judge.Evaluate(ctx, current.Report, entries)
			candidates = append(candidates, core.Candidate{
				Report:  current.Report,
				Summary: current.Summary,
				Score:   score,
				Attempt: attempt,
			})
			if score.IsAcceptable {
				stage = StageDoneAccepted
				continue
			}
			p.log.Info("report below acceptance", "attempt", attempt, "overall", score.OverallScore, "safety", score.SafetyScore)
			stage = nextAttemptStage(attempt, maxAttempts, len(candidates))

		case StageDoneAccepted:
			accepted := candidates[len(candidates)-1]
			p.log.Info("acceptable report generated", "attempt", accepted.Attempt, "overall", accepted.Score.OverallScore)
			return p.result(accepted, narrated, periodStart, periodEnd)

		case StageDoneBestEffort:
			best := bestCandidate(candidates)
			p.log.Warn("no report met acceptance, returning best candidate", "attempt", best.Attempt, "overall", best.Score.OverallScore)
			return p.result(best, narrated, periodStart, periodEnd)

		case StageDoneEmpty:
			p.log.Warn("no insights extracted, returning insufficient-data report")
			return core.PipelineResult{
				Report:      InsufficientDataReport,
				Summary:     InsufficientDataSummary,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Insights:    []core.Insight{},
				EvalScore:   0,
				Attempt:     0,
			}

		case StageDoneFailed:
			p.log.Error("every composition attempt failed")
			return core.PipelineResult{
				Report:      FailureReport,
				Summary:     FailureSummary,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Insights:    narrated,
				EvalScore:   0,
				Attempt:     maxAttempts,
			}
		}
	}
}

// nextAttemptStage is the transition taken after a non-accepted or skipped
// attempt: retry while budget remains, otherwise settle on the best scored
// candidate, or report total failure when nothing was ever scored.
func nextAttemptStage(attempt, maxAttempts, scored int) Stage {
	if attempt < maxAttempts {
		return StageCompose
	}
	if scored > 0 {
		return StageDoneBestEffort
	}
	return StageDoneFailed
}

// bestCandidate picks the highest overall score. The strict comparison keeps
// the earliest attempt on ties.
func bestCandidate(candidates []core.Candidate) core.Candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score.OverallScore > best.Score.OverallScore {
			best = c
		}
	}
	return best
}

func (p *Pipeline) result(c core.Candidate, narrated []core.Insight, periodStart, periodEnd string) core.PipelineResult {
	return core.PipelineResult{
		Report:      c.Report,
		Summary:     c.Summary,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Insights:    narrated,
		EvalScore:   c.Score.OverallScore,
		Attempt:     c.Attempt,
	}
}

// timeoutGenerator applies a per-call deadline to every generative call. A
// timed-out call surfaces as an ordinary call failure and degrades like one.
type timeoutGenerator struct {
	gen     TextGenerator
	timeout time.Duration
}

func (t timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.gen.Generate(ctx, prompt)
}
