// Package audit is the append-only activity trail the admin panel reads:
// who did what, when. Token balance changes have their own ledger in the
// tokens package; everything else lands here.
package audit

import (
	"context"
	"database/sql"
	"time"
)

type Entry struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Append(ctx context.Context, actor, action, detail string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activity_log (actor, action, detail, created_at) VALUES ($1,$2,$3,$4)`,
		actor, action, detail, time.Now().Unix())
	return err
}

// Recent returns the newest entries first, at most limit of them.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `SELECT id, actor, action, detail, created_at
		FROM activity_log ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
