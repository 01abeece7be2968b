// Package audit appends lifecycle transitions to the event_log table. Once
// submitted, a lecturer cannot unilaterally alter scores; the log is the
// record of who moved which assignment's results, and when.
package audit

import (
	"context"
	"database/sql"
	"time"
)

type Event struct {
	Offset    int64
	Type      string // e.g. ResultsSubmitted, ResultsApproved, ResultsPublished
	Key       string // natural key: assignment ID
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Append satisfies result.EventSink.
func (r *EventRepo) Append(ctx context.Context, typ, key, dataJSON string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, dataJSON, time.Now().Unix())
	return err
}

// Recent returns the newest events for an assignment, latest first.
func (r *EventRepo) Recent(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT offset_id, typ, key, data, created_at FROM event_log
		  WHERE key=$1 ORDER BY offset_id DESC LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
