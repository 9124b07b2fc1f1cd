package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reverie/internal/config"
	"reverie/internal/core"
	"reverie/internal/notify"
	"reverie/internal/store"
)

type stubPipeline struct {
	result core.PipelineResult
	calls  int
}

func (p *stubPipeline) GenerateWeekly(ctx context.Context, entries []core.JournalEntry, periodStart, periodEnd string) core.PipelineResult {
	p.calls++
	r := p.result
	r.PeriodStart = periodStart
	r.PeriodEnd = periodEnd
	return r
}

type stubClassifier struct {
	eventType core.CalendarEventType
	calls     int
}

func (c *stubClassifier) Classify(ctx context.Context, title string) core.CalendarEventType {
	c.calls++
	return c.eventType
}

type stubAnalyzer struct {
	topic   string
	emotion core.Emotion
	calls   int
}

func (a *stubAnalyzer) Analyze(ctx context.Context, content string) (string, core.Emotion) {
	a.calls++
	return a.topic, a.emotion
}

type stubNotifier struct {
	decision core.NotificationDecision
}

func (n *stubNotifier) Decide(ctx context.Context, input notify.Input) core.NotificationDecision {
	return n.decision
}

type testStubs struct {
	store      *store.Store
	pipeline   *stubPipeline
	classifier *stubClassifier
	analyzer   *stubAnalyzer
}

func newTestServer(t *testing.T) (*Server, *testStubs) {
	t.Helper()
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	stubs := &testStubs{
		store: st,
		pipeline: &stubPipeline{result: core.PipelineResult{
			Report:    "An opening\n\nBody.\n\nClose.",
			Summary:   "An opening",
			Insights:  []core.Insight{},
			EvalScore: 0.8,
			Attempt:   1,
		}},
		classifier: &stubClassifier{eventType: core.EventPerformance},
		analyzer:   &stubAnalyzer{topic: "exams", emotion: core.EmotionAnxiety},
	}
	notifier := &stubNotifier{decision: core.NotificationDecision{ShouldSend: true, Message: "How was your day?", EvaluationScore: 1}}

	cfg := config.Server{Host: "127.0.0.1", Port: 0}
	return New(st, stubs.pipeline, stubs.classifier, stubs.analyzer, notifier, cfg), stubs
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, s, http.MethodPost, path, body)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateAndListEntries(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postJSON(t, s, "/api/entries", core.JournalEntry{
		UserID: "u1", Date: "2025-06-02", Content: "exam nerves", Emotion: core.EmotionAnxiety,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created core.JournalEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" {
		t.Error("created entry has no ID")
	}

	rec = get(t, s, "/api/entries?user_id=u1&start=2025-06-01&end=2025-06-08")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []core.JournalEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 || entries[0].Content != "exam nerves" {
		t.Errorf("entries = %+v, want the created entry", entries)
	}
}

func TestCreateEntry_AnalyzesUntaggedEntry(t *testing.T) {
	s, stubs := newTestServer(t)

	rec := postJSON(t, s, "/api/entries", core.JournalEntry{
		UserID: "u1", Date: "2025-06-02", Content: "The exam is in three days.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if stubs.analyzer.calls != 1 {
		t.Errorf("analyzer called %d times, want 1", stubs.analyzer.calls)
	}

	var created core.JournalEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Topic != "exams" || created.Emotion != core.EmotionAnxiety {
		t.Errorf("entry = %+v, want analyzer's topic and emotion", created)
	}
}

func TestCreateEntry_KeepsProvidedTags(t *testing.T) {
	s, stubs := newTestServer(t)

	rec := postJSON(t, s, "/api/entries", core.JournalEntry{
		UserID: "u1", Date: "2025-06-02", Content: "quiet evening", Emotion: core.EmotionCalm,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if stubs.analyzer.calls != 0 {
		t.Errorf("analyzer called %d times for tagged entry, want 0", stubs.analyzer.calls)
	}
}

func TestCreateEntry_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postJSON(t, s, "/api/entries", core.JournalEntry{UserID: "u1", Date: "2025-06-02"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing content: status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, s, "/api/entries", core.JournalEntry{
		UserID: "u1", Date: "2025-06-02", Content: "x", Emotion: "ECSTATIC",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown emotion: status = %d, want 400", rec.Code)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	s, stubs := newTestServer(t)

	saved, err := stubs.store.SaveEntry(core.JournalEntry{
		UserID: "u1", Date: "2025-06-02", Content: "exam nerves", Topic: "exams", Emotion: core.EmotionAnxiety,
	})
	if err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	rec := doJSON(t, s, http.MethodPut, "/api/entries/"+saved.ID, map[string]any{
		"content": "exam nerves, but it went fine", "emotion": "CALM",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var updated core.JournalEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Emotion != core.EmotionCalm || updated.Topic != "exams" {
		t.Errorf("updated entry = %+v, want CALM with topic unchanged", updated)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/entries/"+saved.ID, map[string]any{"emotion": "ECSTATIC"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown emotion: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/entries/missing", map[string]any{"content": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entry: status = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/entries/"+saved.ID, nil)
	del := httptest.NewRecorder()
	s.Router().ServeHTTP(del, req)
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/entries/"+saved.ID, nil)
	del = httptest.NewRecorder()
	s.Router().ServeHTTP(del, req)
	if del.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", del.Code)
	}
}

func TestStats(t *testing.T) {
	s, stubs := newTestServer(t)

	// Entry dates must fall inside the trailing window the handler computes
	// from the current day.
	today := time.Now().Format("2006-01-02")
	entries := []core.JournalEntry{
		{UserID: "u1", Date: today, Content: "a", Topic: "exams", Emotion: core.EmotionAnxiety},
		{UserID: "u1", Date: today, Content: "b", Topic: "exams", Emotion: core.EmotionAnxiety},
		{UserID: "u1", Date: today, Content: "c", Topic: "rest", Emotion: core.EmotionCalm},
	}
	for _, entry := range entries {
		if _, err := stubs.store.SaveEntry(entry); err != nil {
			t.Fatalf("SaveEntry: %v", err)
		}
	}

	rec := get(t, s, "/api/stats?user_id=u1&period=week")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var stats StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", stats.TotalCount)
	}
	if len(stats.EmotionStats) != 2 || stats.EmotionStats[0].Emotion != core.EmotionAnxiety || stats.EmotionStats[0].Count != 2 {
		t.Errorf("EmotionStats = %+v, want ANXIETY x2 first", stats.EmotionStats)
	}
	if len(stats.TopicStats) != 2 || stats.TopicStats[0].Topic != "exams" || stats.TopicStats[0].Count != 2 {
		t.Errorf("TopicStats = %+v, want exams x2 first", stats.TopicStats)
	}

	rec = get(t, s, "/api/stats?user_id=u1&period=year")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown period: status = %d, want 400", rec.Code)
	}

	rec = get(t, s, "/api/stats?user_id=nobody")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for user without entries", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.TotalCount != 0 || len(stats.EmotionStats) != 0 || len(stats.TopicStats) != 0 {
		t.Errorf("stats for empty user = %+v, want zero counts", stats)
	}
}

func TestCreateEvent_ClassifiesMissingType(t *testing.T) {
	s, stubs := newTestServer(t)

	rec := postJSON(t, s, "/api/events", map[string]any{
		"user_id": "u1", "title": "final exam", "source_event_id": "dev-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if stubs.classifier.calls != 1 {
		t.Errorf("classifier called %d times, want 1", stubs.classifier.calls)
	}

	var created core.CalendarEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Type != core.EventPerformance {
		t.Errorf("Type = %q, want PERFORMANCE from classifier", created.Type)
	}
}

func TestCreateEvent_KeepsProvidedType(t *testing.T) {
	s, stubs := newTestServer(t)

	rec := postJSON(t, s, "/api/events", map[string]any{
		"user_id": "u1", "title": "dinner", "type": "SOCIAL", "source_event_id": "dev-2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if stubs.classifier.calls != 0 {
		t.Errorf("classifier called %d times for typed event, want 0", stubs.classifier.calls)
	}
}

func TestGenerateAndFetchReport(t *testing.T) {
	s, stubs := newTestServer(t)

	rec := postJSON(t, s, "/api/reports/generate", GenerateReportRequest{
		UserID: "u1", PeriodStart: "2025-06-01", PeriodEnd: "2025-06-08",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if stubs.pipeline.calls != 1 {
		t.Errorf("pipeline called %d times, want 1", stubs.pipeline.calls)
	}

	var report core.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.ID == "" || report.Summary != "An opening" {
		t.Errorf("report = %+v, want a persisted report", report)
	}

	rec = get(t, s, "/api/reports/latest?user_id=u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = get(t, s, "/api/reports/latest?user_id=nobody")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for user without reports", rec.Code)
	}
}

func TestPreviousReport(t *testing.T) {
	s, stubs := newTestServer(t)

	rec := get(t, s, "/api/reports/previous?user_id=u1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 with no reports", rec.Code)
	}

	result := core.PipelineResult{Report: "first", Summary: "first", Insights: []core.Insight{}}
	if _, err := stubs.store.CreateReport("u1", result); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	time.Sleep(10 * time.Millisecond) // distinct created_at ordering
	result.Report = "second"
	if _, err := stubs.store.CreateReport("u1", result); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	latest, err := stubs.store.LatestReportByUser("u1")
	if err != nil || latest == nil {
		t.Fatalf("LatestReportByUser: (%v, %v)", latest, err)
	}

	rec = get(t, s, "/api/reports/previous?user_id=u1&before="+latest.CreatedAt.Format(time.RFC3339Nano))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var previous core.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &previous); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if previous.Report != "first" {
		t.Errorf("Report = %q, want the report before the latest", previous.Report)
	}

	rec = get(t, s, "/api/reports/previous?user_id=u1&before=not-a-timestamp")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a bad timestamp", rec.Code)
	}
}

func TestNotificationDecision(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postJSON(t, s, "/api/notifications/decide", NotificationRequest{
		UserID:   "u1",
		NewEntry: core.JournalEntry{Content: "long day"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var decision core.NotificationDecision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decision.ShouldSend || decision.Message != "How was your day?" {
		t.Errorf("decision = %+v", decision)
	}
}
