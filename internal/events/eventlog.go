package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Log appends audit events to the event_log table: one row per graded
// turn, completion, or reset, keyed by learner.
type Log struct{ db *sql.DB }

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Append(ctx context.Context, typ, key string, data any) error {
	payload := "{}"
	if data != nil {
		buf, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = string(buf)
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, payload, time.Now().Unix())
	return err
}
