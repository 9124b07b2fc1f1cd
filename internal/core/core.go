package core

import "time"

// Emotion is one of the six categorical emotion labels a journal entry may carry.
type Emotion string

const (
	EmotionJoy       Emotion = "JOY"
	EmotionCalm      Emotion = "CALM"
	EmotionSadness   Emotion = "SADNESS"
	EmotionAnger     Emotion = "ANGER"
	EmotionAnxiety   Emotion = "ANXIETY"
	EmotionExhausted Emotion = "EXHAUSTED"
)

// Valid reports whether e is one of the six known emotion labels.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionJoy, EmotionCalm, EmotionSadness, EmotionAnger, EmotionAnxiety, EmotionExhausted:
		return true
	}
	return false
}

// JournalEntry represents a single dated journal entry, the immutable input to
// the report pipeline. Topic and Emotion are optional enrichments.
type JournalEntry struct {
	ID        string    `json:"id"`         // Unique identifier for the entry
	UserID    string    `json:"user_id"`    // Owner of the entry
	Date      string    `json:"date"`       // Calendar date in ISO-8601 form (YYYY-MM-DD)
	Content   string    `json:"content"`    // Free-form entry text
	Topic     string    `json:"topic"`      // Optional short topic label
	Emotion   Emotion   `json:"emotion"`    // Optional categorical emotion label
	CreatedAt time.Time `json:"created_at"` // Timestamp when the entry was stored
}

// InsightType classifies the kind of pattern an insight describes.
type InsightType string

const (
	InsightTimeContrast   InsightType = "time_contrast"  // Emotional contrast around a specific date
	InsightRepetition     InsightType = "repetition"     // Recurring pattern across dates
	InsightCausalRelation InsightType = "causal_relation" // Inferred relation between events and emotions
)

// Insight is a dated, typed, evidence-backed observation extracted from a set
// of journal entries. Every insight references at least one date present in
// the entries it was derived from. Gloss is filled in by the narrator as a
// one-line colloquial rendering; it falls back to Description.
type Insight struct {
	Type           InsightType `json:"type"`
	Description    string      `json:"description"`
	DateReferences []string    `json:"date_references"`
	Evidence       string      `json:"evidence"`
	Gloss          string      `json:"gloss,omitempty"`
}

// JudgeScore is the two-axis evaluation of a composed report. OverallScore and
// IsAcceptable are derived from the quality and safety scores when the score
// is finalized and never change afterwards.
type JudgeScore struct {
	QualityScore    float64  `json:"quality_score"`    // Usefulness/clarity score in [0,1]
	QualityFeedback string   `json:"quality_feedback"` // Free-text quality feedback
	QualityIssues   []string `json:"quality_issues"`   // Specific quality problems found
	SafetyScore     float64  `json:"safety_score"`     // Safety score in [0,1]
	SafetyFeedback  string   `json:"safety_feedback"`  // Free-text safety feedback
	SafetyIssues    []string `json:"safety_issues"`    // Specific safety problems found
	OverallScore    float64  `json:"overall_score"`    // 0.6*quality + 0.4*safety
	IsAcceptable    bool     `json:"is_acceptable"`    // overall >= 0.7 && safety >= 0.6
}

// Candidate is one composed-and-judged report produced during a single
// controller attempt. Candidates are ephemeral; only the selected one
// survives as part of the pipeline result.
type Candidate struct {
	Report  string     `json:"report"`
	Summary string     `json:"summary"`
	Score   JudgeScore `json:"score"`
	Attempt int        `json:"attempt"` // 1-based attempt ordinal
}

// PipelineResult is the externally visible outcome of one report generation
// request.
type PipelineResult struct {
	Report      string    `json:"report"`
	Summary     string    `json:"summary"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	Insights    []Insight `json:"insights"`
	EvalScore   float64   `json:"eval_score"`
	Attempt     int       `json:"attempt"`
}

// Report is a stored report record.
type Report struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Report      string    `json:"report"`
	Summary     string    `json:"summary"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	Insights    []Insight `json:"insights"`
	EvalScore   float64   `json:"eval_score"`
	Attempt     int       `json:"attempt"`
	CreatedAt   time.Time `json:"created_at"`
}

// CalendarEventType classifies a calendar event by its psychological
// character rather than its literal subject.
type CalendarEventType string

const (
	EventPerformance CalendarEventType = "PERFORMANCE" // Exams, interviews, deadlines
	EventSocial      CalendarEventType = "SOCIAL"      // Gatherings that spend social energy
	EventCelebration CalendarEventType = "CELEBRATION" // Birthdays, anniversaries, holidays
	EventHealth      CalendarEventType = "HEALTH"      // Medical appointments, therapy, exercise
	EventLeisure     CalendarEventType = "LEISURE"     // Trips, concerts, time off
	EventRoutine     CalendarEventType = "ROUTINE"     // Errands and low-stakes scheduling
)

// Valid reports whether t is one of the known event types.
func (t CalendarEventType) Valid() bool {
	switch t {
	case EventPerformance, EventSocial, EventCelebration, EventHealth, EventLeisure, EventRoutine:
		return true
	}
	return false
}

// CalendarEvent represents a calendar event attached to a user.
type CalendarEvent struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Title         string            `json:"title"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	Type          CalendarEventType `json:"type"`
	SourceEventID string            `json:"source_event_id"` // Device-calendar origin ID, used to dedupe imports
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NotificationDecision is the outcome of the one-shot notification pipeline.
type NotificationDecision struct {
	ShouldSend      bool    `json:"should_send"`
	SendTime        string  `json:"send_time"` // "YYYY-MM-DD HH:MM:SS"
	Message         string  `json:"message"`
	Reason          string  `json:"reason"`
	EvaluationScore float64 `json:"evaluation_score"`
}
