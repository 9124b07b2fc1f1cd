package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"reverie/internal/core"
	"reverie/internal/notify"
	"reverie/internal/store"
)

// HealthResponse is the /health payload
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleCreateEntry handles POST /api/entries. Entries arriving without topic
// and emotion are analyzed before storage.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var entry core.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if entry.UserID == "" || entry.Date == "" || entry.Content == "" {
		s.respondError(w, http.StatusBadRequest, "user_id, date, and content are required")
		return
	}
	if entry.Emotion != "" && !entry.Emotion.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown emotion label")
		return
	}

	if entry.Topic == "" && entry.Emotion == "" {
		entry.Topic, entry.Emotion = s.analyzer.Analyze(r.Context(), entry.Content)
	}

	saved, err := s.store.SaveEntry(entry)
	if err != nil {
		s.log.Error("failed to save entry", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save entry")
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

// handleListEntries handles GET /api/entries?user_id=&start=&end=
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		start = "0000-01-01"
	}
	if end == "" {
		end = "9999-12-31"
	}

	entries, err := s.store.EntriesForPeriod(userID, start, end)
	if err != nil {
		s.log.Error("failed to list entries", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []core.JournalEntry{}
	}
	s.respondJSON(w, http.StatusOK, entries)
}

// UpdateEntryRequest is the PUT /api/entries/{id} payload. Omitted fields are
// left unchanged.
type UpdateEntryRequest struct {
	Content *string       `json:"content"`
	Topic   *string       `json:"topic"`
	Emotion *core.Emotion `json:"emotion"`
}

// handleUpdateEntry handles PUT /api/entries/{id}
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content != nil && *req.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content cannot be empty")
		return
	}
	if req.Emotion != nil && *req.Emotion != "" && !req.Emotion.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown emotion label")
		return
	}

	entry, err := s.store.UpdateEntry(id, store.EntryUpdate{
		Content: req.Content,
		Topic:   req.Topic,
		Emotion: req.Emotion,
	})
	if err != nil {
		s.log.Error("failed to update entry", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	if entry == nil {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

// handleDeleteEntry handles DELETE /api/entries/{id}
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.store.DeleteEntry(id)
	if err != nil {
		s.log.Error("failed to delete entry", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	if !deleted {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmotionCount is one emotion's tally in the stats response
type EmotionCount struct {
	Emotion core.Emotion `json:"emotion"`
	Count   int          `json:"count"`
}

// TopicCount is one topic's tally in the stats response
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// StatsResponse is the GET /api/stats payload
type StatsResponse struct {
	EmotionStats []EmotionCount `json:"emotion_stats"`
	TopicStats   []TopicCount   `json:"topic_stats"`
	TotalCount   int            `json:"total_count"`
}

// handleStats handles GET /api/stats?user_id=&period=week|month. The window
// is the last 7 days for week and the last 30 for month.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}
	var days int
	switch period {
	case "week":
		days = 7
	case "month":
		days = 30
	default:
		s.respondError(w, http.StatusBadRequest, "period must be week or month")
		return
	}

	now := time.Now()
	entries, err := s.store.EntriesForPeriod(userID, now.AddDate(0, 0, -days).Format("2006-01-02"), now.Format("2006-01-02"))
	if err != nil {
		s.log.Error("failed to load entries for stats", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load entries")
		return
	}

	emotionCounts := map[core.Emotion]int{}
	topicCounts := map[string]int{}
	for _, entry := range entries {
		if entry.Emotion.Valid() {
			emotionCounts[entry.Emotion]++
		}
		if entry.Topic != "" {
			topicCounts[entry.Topic]++
		}
	}

	resp := StatsResponse{
		EmotionStats: make([]EmotionCount, 0, len(emotionCounts)),
		TopicStats:   make([]TopicCount, 0, len(topicCounts)),
		TotalCount:   len(entries),
	}
	for emotion, count := range emotionCounts {
		resp.EmotionStats = append(resp.EmotionStats, EmotionCount{Emotion: emotion, Count: count})
	}
	for topic, count := range topicCounts {
		resp.TopicStats = append(resp.TopicStats, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(resp.EmotionStats, func(i, j int) bool {
		if resp.EmotionStats[i].Count != resp.EmotionStats[j].Count {
			return resp.EmotionStats[i].Count > resp.EmotionStats[j].Count
		}
		return resp.EmotionStats[i].Emotion < resp.EmotionStats[j].Emotion
	})
	sort.Slice(resp.TopicStats, func(i, j int) bool {
		if resp.TopicStats[i].Count != resp.TopicStats[j].Count {
			return resp.TopicStats[i].Count > resp.TopicStats[j].Count
		}
		return resp.TopicStats[i].Topic < resp.TopicStats[j].Topic
	})
	s.respondJSON(w, http.StatusOK, resp)
}

// handleCreateEvent handles POST /api/events. Events arriving without a type
// are classified before storage.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event core.CalendarEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if event.UserID == "" || event.Title == "" {
		s.respondError(w, http.StatusBadRequest, "user_id and title are required")
		return
	}

	if !event.Type.Valid() {
		event.Type = s.classifier.Classify(r.Context(), event.Title)
	}

	saved, err := s.store.UpsertEvent(event)
	if err != nil {
		s.log.Error("failed to save event", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save event")
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

// handleListEvents handles GET /api/events?user_id=&from=&to=
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	from, to, err := parseEventWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "from/to must be RFC 3339 timestamps")
		return
	}

	events, err := s.store.EventsBetween(userID, from, to)
	if err != nil {
		s.log.Error("failed to list events", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []core.CalendarEvent{}
	}
	s.respondJSON(w, http.StatusOK, events)
}

func parseEventWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}

// GenerateReportRequest is the POST /api/reports/generate payload
type GenerateReportRequest struct {
	UserID      string `json:"user_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// handleGenerateReport handles POST /api/reports/generate: it loads the
// user's entries for the period, runs the pipeline, persists the result, and
// returns the stored report.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	periodEnd := req.PeriodEnd
	if periodEnd == "" {
		periodEnd = time.Now().Format("2006-01-02")
	}
	periodStart := req.PeriodStart
	if periodStart == "" {
		periodStart = time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	}

	entries, err := s.store.EntriesForPeriod(req.UserID, periodStart, periodEnd)
	if err != nil {
		s.log.Error("failed to load entries for report", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load entries")
		return
	}

	result := s.pipeline.GenerateWeekly(r.Context(), entries, periodStart, periodEnd)

	report, err := s.store.CreateReport(req.UserID, result)
	if err != nil {
		s.log.Error("failed to persist report", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to persist report")
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

// handleLatestReport handles GET /api/reports/latest?user_id=
func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	report, err := s.store.LatestReportByUser(userID)
	if err != nil {
		s.log.Error("failed to load latest report", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if report == nil {
		s.respondError(w, http.StatusNotFound, "no report for user")
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

// handlePreviousReport handles GET /api/reports/previous?user_id=&before=.
// It returns the most recent report created strictly before the given RFC 3339
// timestamp, defaulting to now.
func (s *Server) handlePreviousReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	before := time.Now().UTC()
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		parsed, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
			return
		}
		before = parsed
	}

	report, err := s.store.ReportOlderThan(userID, before)
	if err != nil {
		s.log.Error("failed to load previous report", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if report == nil {
		s.respondError(w, http.StatusNotFound, "no previous report for user")
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

// NotificationRequest is the POST /api/notifications/decide payload
type NotificationRequest struct {
	UserID   string              `json:"user_id"`
	NewEntry core.JournalEntry   `json:"new_entry"`
	Messages []notify.RawMessage `json:"messages"`
}

// handleNotificationDecision handles POST /api/notifications/decide: recent
// entries and events come from the store, raw messages from the request.
func (s *Server) handleNotificationDecision(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	now := time.Now()
	entries, err := s.store.EntriesForPeriod(req.UserID, now.AddDate(0, 0, -14).Format("2006-01-02"), now.Format("2006-01-02"))
	if err != nil {
		s.log.Error("failed to load entries for notification", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load entries")
		return
	}
	events, err := s.store.EventsBetween(req.UserID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if err != nil {
		s.log.Error("failed to load events for notification", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	decision := s.notifier.Decide(r.Context(), notify.Input{
		NewEntry: req.NewEntry,
		Entries:  entries,
		Events:   events,
		Messages: req.Messages,
	})
	s.respondJSON(w, http.StatusOK, decision)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
