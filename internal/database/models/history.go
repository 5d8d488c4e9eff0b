package models

import (
	"database/sql"
	"fmt"
	"time"

	"releasewatch/internal/core"
)

// ChangeEvent is one persisted row of the change history. Timestamps are
// stored as RFC 3339 text.
type ChangeEvent struct {
	ID        int    `json:"id"`
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	EntityID  int    `json:"entity_id"`
	Title     string `json:"title"`
	Subject   string `json:"subject"`
	OpCount   int    `json:"op_count"`
	Notified  bool   `json:"notified"`
	CreatedAt string `json:"created_at"`
}

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordChange implements the monitor's history hook.
func (r *HistoryRepository) RecordChange(event core.ChangeEvent) error {
	query := `
        INSERT INTO change_events (run_id, kind, entity_id, title, subject, op_count, notified, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.Exec(query, event.RunID, string(event.Kind), event.EntityID,
		event.Title, event.Subject, event.OpCount, event.Notified,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert change event: %w", err)
	}
	return nil
}

// Recent returns the newest change events, newest first.
func (r *HistoryRepository) Recent(limit int) ([]ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, run_id, kind, entity_id, title, subject, op_count, notified, created_at
        FROM change_events ORDER BY created_at DESC, id DESC LIMIT ?
    `
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query change events: %w", err)
	}
	defer rows.Close()

	var events []ChangeEvent
	for rows.Next() {
		var e ChangeEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &e.EntityID, &e.Title,
			&e.Subject, &e.OpCount, &e.Notified, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
