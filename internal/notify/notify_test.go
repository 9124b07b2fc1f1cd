package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reverie/internal/core"
	"reverie/internal/logger"
)

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

func testNotifier(gen TextGenerator) *Notifier {
	return &Notifier{
		gen: gen,
		log: logger.Get(),
		now: func() time.Time { return time.Date(2025, 6, 8, 14, 30, 0, 0, time.UTC) },
	}
}

func TestDecide_SendWithMessage(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"should_send": true, "send_time": "2025-06-08 20:00:00", "reason": "the presentation ended and anxiety has recurred on this topic all week"}`,
		`{"message": "How was your day?"}`,
	}}

	n := testNotifier(gen)
	decision := n.Decide(context.Background(), Input{
		NewEntry: core.JournalEntry{Content: "presentation finally over", Emotion: core.EmotionCalm},
	})

	if !decision.ShouldSend {
		t.Fatal("ShouldSend = false, want true")
	}
	if decision.Message != "How was your day?" {
		t.Errorf("Message = %q", decision.Message)
	}
	if decision.SendTime != "2025-06-08 20:00:00" {
		t.Errorf("SendTime = %q", decision.SendTime)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2 (decide + write)", gen.calls)
	}
	// message present, short, waking-hours time, substantial reason
	if decision.EvaluationScore != 1.0 {
		t.Errorf("EvaluationScore = %v, want 1.0", decision.EvaluationScore)
	}
}

func TestDecide_NoSendSkipsMessageCall(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"should_send": false, "send_time": "2025-06-09 09:00:00", "reason": "the new entry is neutral and nothing notable happened today"}`,
	}}

	n := testNotifier(gen)
	decision := n.Decide(context.Background(), Input{})

	if decision.ShouldSend {
		t.Fatal("ShouldSend = true, want false")
	}
	if decision.Message != "" {
		t.Errorf("Message = %q, want empty for no-send", decision.Message)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1 (no message call on no-send)", gen.calls)
	}
}

func TestDecide_DecisionFailureDefaultsToNoSend(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("model unavailable")}}

	n := testNotifier(gen)
	decision := n.Decide(context.Background(), Input{})

	if decision.ShouldSend {
		t.Fatal("ShouldSend = true after failed decision, want false")
	}
	if decision.SendTime != "2025-06-09 09:00:00" {
		t.Errorf("SendTime = %q, want next morning 09:00", decision.SendTime)
	}
	if decision.Reason == "" {
		t.Error("Reason is empty, want a degraded-decision reason")
	}
}

func TestDecide_MessageFailureUsesDefault(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{
			`{"should_send": true, "send_time": "2025-06-08 20:00:00", "reason": "repeated anxiety pattern around deadlines this week"}`,
			"not JSON at all",
		},
	}

	n := testNotifier(gen)
	decision := n.Decide(context.Background(), Input{})

	if decision.Message != DefaultMessage {
		t.Errorf("Message = %q, want default %q", decision.Message, DefaultMessage)
	}
}

func TestDecide_PromptCarriesContext(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"should_send": false, "send_time": "", "reason": "quiet day"}`,
	}}

	n := testNotifier(gen)
	n.Decide(context.Background(), Input{
		NewEntry: core.JournalEntry{Content: "wrapped up the interview", Topic: "career", Emotion: core.EmotionJoy},
		Events: []core.CalendarEvent{
			{Title: "final interview", StartDate: time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), Type: core.EventPerformance},
			{Title: "next week thing", StartDate: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), Type: core.EventRoutine},
		},
		Messages: []RawMessage{{Content: "so nervous about tomorrow", At: "2025-06-07 22:10:00"}},
		Entries:  []core.JournalEntry{{Date: "2025-06-07", Topic: "career", Emotion: core.EmotionAnxiety, Content: "prep ran long"}},
	})

	prompt := gen.prompts[0]
	for _, want := range []string{"wrapped up the interview", "final interview", "so nervous", "2025-06-07"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("decision prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "next week thing") {
		t.Error("decision prompt includes an event from another day")
	}
	if !strings.Contains(prompt, "Calendar events today: 1") {
		t.Error("decision prompt should count only today's events")
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		decision core.NotificationDecision
		want     float64
	}{
		{
			name: "complete send decision",
			decision: core.NotificationDecision{
				ShouldSend: true,
				SendTime:   "2025-06-08 20:00:00",
				Message:    "How was your day?",
				Reason:     "a substantial reason over ten characters",
			},
			want: 1.0,
		},
		{
			name: "clean no-send decision",
			decision: core.NotificationDecision{
				ShouldSend: false,
				SendTime:   "2025-06-09 09:00:00",
				Reason:     "nothing notable happened today at all",
			},
			want: 1.0,
		},
		{
			name: "send without message",
			decision: core.NotificationDecision{
				ShouldSend: true,
				SendTime:   "2025-06-08 20:00:00",
				Reason:     "a substantial reason over ten characters",
			},
			want: 0.4, // no presence credit, no length credit
		},
		{
			name: "overnight send time",
			decision: core.NotificationDecision{
				ShouldSend: true,
				SendTime:   "2025-06-09 03:00:00",
				Message:    "How was your day?",
				Reason:     "a substantial reason over ten characters",
			},
			want: 0.8,
		},
		{
			name: "shoulder-hour send time",
			decision: core.NotificationDecision{
				ShouldSend: true,
				SendTime:   "2025-06-09 08:00:00",
				Message:    "How was your day?",
				Reason:     "a substantial reason over ten characters",
			},
			want: 0.9,
		},
		{
			name: "unparsable send time",
			decision: core.NotificationDecision{
				ShouldSend: true,
				SendTime:   "sometime soon",
				Message:    "How was your day?",
				Reason:     "a substantial reason over ten characters",
			},
			want: 0.9,
		},
		{
			name: "short reason",
			decision: core.NotificationDecision{
				ShouldSend: true,
				SendTime:   "2025-06-08 20:00:00",
				Message:    "How was your day?",
				Reason:     "ok",
			},
			want: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate(tt.decision)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPassed(t *testing.T) {
	if !Passed(core.NotificationDecision{EvaluationScore: 0.6}) {
		t.Error("Passed(0.6) = false, want true")
	}
	if Passed(core.NotificationDecision{EvaluationScore: 0.59}) {
		t.Error("Passed(0.59) = true, want false")
	}
}
