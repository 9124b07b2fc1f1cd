package report

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"reverie/internal/core"
)

// scriptedGenerator returns canned responses in call order.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestJudgeEvaluate_Acceptable(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"score": 0.9, "feedback": "clear and grounded", "issues": []}`,
		`{"score": 0.8, "feedback": "no safety concerns", "issues": []}`,
	}}

	j := NewJudge(gen)
	score := j.Evaluate(context.Background(), "a report", nil)

	if !almostEqual(score.QualityScore, 0.9) {
		t.Errorf("QualityScore = %v, want 0.9", score.QualityScore)
	}
	if !almostEqual(score.SafetyScore, 0.8) {
		t.Errorf("SafetyScore = %v, want 0.8", score.SafetyScore)
	}
	// 0.6*0.9 + 0.4*0.8 = 0.86
	if !almostEqual(score.OverallScore, 0.86) {
		t.Errorf("OverallScore = %v, want 0.86", score.OverallScore)
	}
	if !score.IsAcceptable {
		t.Error("IsAcceptable = false, want true")
	}
}

func TestJudgeEvaluate_SafetyFloorBlocksAcceptance(t *testing.T) {
	// High quality cannot buy acceptance when safety is below the floor.
	gen := &scriptedGenerator{responses: []string{
		`{"score": 1.0, "feedback": "excellent", "issues": []}`,
		`{"score": 0.5, "feedback": "borderline advice", "issues": ["over-advising"]}`,
	}}

	j := NewJudge(gen)
	score := j.Evaluate(context.Background(), "a report", nil)

	// 0.6*1.0 + 0.4*0.5 = 0.8, above the overall threshold
	if !almostEqual(score.OverallScore, 0.8) {
		t.Errorf("OverallScore = %v, want 0.8", score.OverallScore)
	}
	if score.IsAcceptable {
		t.Error("IsAcceptable = true, want false when safety is below floor")
	}
}

func TestJudgeEvaluate_FailedAxisGetsNeutralScore(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"", `{"score": 0.9, "feedback": "safe", "issues": []}`},
		errs:      []error{errors.New("model unavailable"), nil},
	}

	j := NewJudge(gen)
	score := j.Evaluate(context.Background(), "a report", nil)

	if !almostEqual(score.QualityScore, 0.5) {
		t.Errorf("QualityScore = %v, want neutral 0.5", score.QualityScore)
	}
	if score.QualityFeedback != "evaluation failed" {
		t.Errorf("QualityFeedback = %q, want %q", score.QualityFeedback, "evaluation failed")
	}
	if !almostEqual(score.SafetyScore, 0.9) {
		t.Errorf("SafetyScore = %v, want 0.9", score.SafetyScore)
	}
	// 0.6*0.5 + 0.4*0.9 = 0.66
	if !almostEqual(score.OverallScore, 0.66) {
		t.Errorf("OverallScore = %v, want 0.66", score.OverallScore)
	}
	if score.IsAcceptable {
		t.Error("IsAcceptable = true, want false")
	}
}

func TestJudgeEvaluate_MalformedAxisOutput(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"score": 0.9, "feedback": "good", "issues": []}`,
		"the model wrote prose with no object at all",
	}}

	j := NewJudge(gen)
	score := j.Evaluate(context.Background(), "a report", nil)

	if !almostEqual(score.SafetyScore, 0.5) {
		t.Errorf("SafetyScore = %v, want neutral 0.5 on malformed output", score.SafetyScore)
	}
	if score.SafetyFeedback != "evaluation failed" {
		t.Errorf("SafetyFeedback = %q, want %q", score.SafetyFeedback, "evaluation failed")
	}
	if score.SafetyIssues == nil {
		t.Error("SafetyIssues is nil, want empty slice")
	}
}

func TestJudgeEvaluate_ClampsOutOfRangeScores(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"score": 1.7, "feedback": "overshoot", "issues": []}`,
		`{"score": -0.3, "feedback": "undershoot", "issues": []}`,
	}}

	j := NewJudge(gen)
	score := j.Evaluate(context.Background(), "a report", nil)

	if score.QualityScore != 1 {
		t.Errorf("QualityScore = %v, want clamped 1", score.QualityScore)
	}
	if score.SafetyScore != 0 {
		t.Errorf("SafetyScore = %v, want clamped 0", score.SafetyScore)
	}
}

func TestJudgeEvaluate_PromptsCarryEntryContext(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"score": 0.7, "feedback": "", "issues": []}`,
		`{"score": 0.7, "feedback": "", "issues": []}`,
	}}
	entries := []core.JournalEntry{
		{Date: "2025-06-02", Topic: "work", Emotion: core.EmotionAnxiety, Content: "deadline pressure all day"},
	}

	j := NewJudge(gen)
	j.Evaluate(context.Background(), "a report", entries)

	if len(gen.prompts) != 2 {
		t.Fatalf("got %d calls, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "2025-06-02") {
		t.Error("quality prompt is missing the entry date context")
	}
	if strings.Contains(gen.prompts[1], "2025-06-02") {
		t.Error("safety prompt should not include entry context")
	}
}
