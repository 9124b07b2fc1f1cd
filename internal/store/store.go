// Package store persists journal entries, calendar events, and generated
// reports in a local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"reverie/internal/core"
)

// Store represents the SQLite-backed persistence layer
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new store instance with SQLite database
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "reverie.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	entriesTable := `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		content TEXT NOT NULL,
		topic TEXT,
		emotion TEXT,
		created_at DATETIME
	);`

	eventsTable := `
	CREATE TABLE IF NOT EXISTS calendar_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		start_date DATETIME,
		end_date DATETIME,
		event_type TEXT,
		source_event_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (user_id, source_event_id)
	);`

	reportsTable := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		report TEXT,
		summary TEXT,
		period_start TEXT,
		period_end TEXT,
		insights TEXT,
		eval_score REAL,
		attempt INTEGER,
		created_at DATETIME
	);`

	tables := []string{entriesTable, eventsTable, reportsTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveEntry stores a journal entry, assigning an ID and creation time when
// missing, and returns the stored record.
func (s *Store) SaveEntry(entry core.JournalEntry) (core.JournalEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT OR REPLACE INTO journal_entries
	(id, user_id, date, content, topic, emotion, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		entry.ID,
		entry.UserID,
		entry.Date,
		entry.Content,
		entry.Topic,
		string(entry.Emotion),
		entry.CreatedAt,
	)
	if err != nil {
		return core.JournalEntry{}, fmt.Errorf("failed to save entry: %w", err)
	}

	return entry, nil
}

// EntriesForPeriod returns a user's entries with dates inside [start, end],
// ordered by date.
func (s *Store) EntriesForPeriod(userID, start, end string) ([]core.JournalEntry, error) {
	query := `
	SELECT id, user_id, date, content, topic, emotion, created_at
	FROM journal_entries
	WHERE user_id = ? AND date >= ? AND date <= ?
	ORDER BY date, created_at`

	rows, err := s.db.Query(query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.JournalEntry
	for rows.Next() {
		var entry core.JournalEntry
		var emotion string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Date, &entry.Content, &entry.Topic, &emotion, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Emotion = core.Emotion(emotion)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetEntry returns a journal entry by ID, or nil when it does not exist.
func (s *Store) GetEntry(id string) (*core.JournalEntry, error) {
	query := `
	SELECT id, user_id, date, content, topic, emotion, created_at
	FROM journal_entries
	WHERE id = ?`

	var entry core.JournalEntry
	var emotion string
	err := s.db.QueryRow(query, id).Scan(
		&entry.ID, &entry.UserID, &entry.Date, &entry.Content, &entry.Topic, &emotion, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	entry.Emotion = core.Emotion(emotion)
	return &entry, nil
}

// EntryUpdate describes a partial update to a journal entry. Nil fields are
// left unchanged.
type EntryUpdate struct {
	Content *string
	Topic   *string
	Emotion *core.Emotion
}

// UpdateEntry applies a partial update and returns the updated entry, or nil
// when the entry does not exist.
func (s *Store) UpdateEntry(id string, update EntryUpdate) (*core.JournalEntry, error) {
	entry, err := s.GetEntry(id)
	if err != nil || entry == nil {
		return entry, err
	}

	if update.Content != nil {
		entry.Content = *update.Content
	}
	if update.Topic != nil {
		entry.Topic = *update.Topic
	}
	if update.Emotion != nil {
		entry.Emotion = *update.Emotion
	}

	query := `
	UPDATE journal_entries SET content = ?, topic = ?, emotion = ?
	WHERE id = ?`

	if _, err := s.db.Exec(query, entry.Content, entry.Topic, string(entry.Emotion), id); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	return entry, nil
}

// DeleteEntry removes a journal entry by ID and reports whether it existed.
func (s *Store) DeleteEntry(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return n > 0, nil
}

// UpsertEvent stores a calendar event. Events sharing a user and source event
// ID replace the previous import of the same device event, keeping the
// original row's ID and creation time. Events without a source event ID are
// always stored as new rows; the empty string is persisted as NULL so manual
// events never collide with each other.
func (s *Store) UpsertEvent(event core.CalendarEvent) (core.CalendarEvent, error) {
	now := time.Now().UTC()

	if event.SourceEventID != "" {
		var existingID string
		var createdAt time.Time
		err := s.db.QueryRow(
			`SELECT id, created_at FROM calendar_events WHERE user_id = ? AND source_event_id = ?`,
			event.UserID, event.SourceEventID,
		).Scan(&existingID, &createdAt)
		switch {
		case err == nil:
			event.ID = existingID
			event.CreatedAt = createdAt
		case err != sql.ErrNoRows:
			return core.CalendarEvent{}, fmt.Errorf("failed to look up event: %w", err)
		}
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	query := `
	INSERT OR REPLACE INTO calendar_events
	(id, user_id, title, start_date, end_date, event_type, source_event_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		event.ID,
		event.UserID,
		event.Title,
		event.StartDate,
		event.EndDate,
		string(event.Type),
		nullableString(event.SourceEventID),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("failed to upsert event: %w", err)
	}

	return event, nil
}

// nullableString maps the empty string to NULL so unique indexes treat absent
// values as distinct.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// EventsBetween returns a user's events starting inside [from, to), ordered by
// start time.
func (s *Store) EventsBetween(userID string, from, to time.Time) ([]core.CalendarEvent, error) {
	query := `
	SELECT id, user_id, title, start_date, end_date, event_type, source_event_id, created_at, updated_at
	FROM calendar_events
	WHERE user_id = ? AND start_date >= ? AND start_date < ?
	ORDER BY start_date`

	rows, err := s.db.Query(query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []core.CalendarEvent
	for rows.Next() {
		var event core.CalendarEvent
		var eventType string
		var sourceEventID sql.NullString
		if err := rows.Scan(&event.ID, &event.UserID, &event.Title, &event.StartDate, &event.EndDate,
			&eventType, &sourceEventID, &event.CreatedAt, &event.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Type = core.CalendarEventType(eventType)
		event.SourceEventID = sourceEventID.String
		events = append(events, event)
	}
	return events, rows.Err()
}

// CreateReport persists a pipeline result for a user and returns the stored
// report record. Insights are serialized as a JSON column.
func (s *Store) CreateReport(userID string, result core.PipelineResult) (core.Report, error) {
	report := core.Report{
		ID:          uuid.NewString(),
		UserID:      userID,
		Report:      result.Report,
		Summary:     result.Summary,
		PeriodStart: result.PeriodStart,
		PeriodEnd:   result.PeriodEnd,
		Insights:    result.Insights,
		EvalScore:   result.EvalScore,
		Attempt:     result.Attempt,
		CreatedAt:   time.Now().UTC(),
	}

	insights, err := json.Marshal(report.Insights)
	if err != nil {
		return core.Report{}, fmt.Errorf("failed to marshal insights: %w", err)
	}

	query := `
	INSERT INTO reports
	(id, user_id, report, summary, period_start, period_end, insights, eval_score, attempt, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		report.ID,
		report.UserID,
		report.Report,
		report.Summary,
		report.PeriodStart,
		report.PeriodEnd,
		string(insights),
		report.EvalScore,
		report.Attempt,
		report.CreatedAt,
	)
	if err != nil {
		return core.Report{}, fmt.Errorf("failed to create report: %w", err)
	}

	return report, nil
}

// LatestReportByUser returns a user's most recently created report, or nil
// when the user has none.
func (s *Store) LatestReportByUser(userID string) (*core.Report, error) {
	query := `
	SELECT id, user_id, report, summary, period_start, period_end, insights, eval_score, attempt, created_at
	FROM reports
	WHERE user_id = ?
	ORDER BY created_at DESC
	LIMIT 1`

	report, err := scanReport(s.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ReportOlderThan returns the user's most recent report created strictly
// before createdAt, or nil when none exists. Callers use it to fetch the
// report immediately preceding a known one.
func (s *Store) ReportOlderThan(userID string, createdAt time.Time) (*core.Report, error) {
	query := `
	SELECT id, user_id, report, summary, period_start, period_end, insights, eval_score, attempt, created_at
	FROM reports
	WHERE user_id = ? AND created_at < ?
	ORDER BY created_at DESC
	LIMIT 1`

	report, err := scanReport(s.db.QueryRow(query, userID, createdAt))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteReport removes a report by ID.
func (s *Store) DeleteReport(id string) error {
	if _, err := s.db.Exec(`DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*core.Report, error) {
	var report core.Report
	var insights string

	err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.Report,
		&report.Summary,
		&report.PeriodStart,
		&report.PeriodEnd,
		&insights,
		&report.EvalScore,
		&report.Attempt,
		&report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	if insights != "" {
		if err := json.Unmarshal([]byte(insights), &report.Insights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal insights: %w", err)
		}
	}
	return &report, nil
}
