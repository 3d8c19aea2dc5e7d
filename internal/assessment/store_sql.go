package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrResultNotFound = errors.New("result not found")

type SQLResultStore struct {
	db *sql.DB
}

func NewSQLResultStore(db *sql.DB) *SQLResultStore { return &SQLResultStore{db: db} }

func (s *SQLResultStore) PutResult(ctx context.Context, r Result) error {
	rj, err := json.Marshal(r.Responses)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO results
		(session_id, username, skill, difficulty, score, total, responses_json, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.SessionID, r.Username, r.Skill, r.Difficulty, r.Score, r.Total, string(rj), r.SubmittedAt.Unix())
	if err != nil {
		return fmt.Errorf("put result: %w", err)
	}
	return nil
}

func (s *SQLResultStore) GetResult(ctx context.Context, sessionID string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT session_id, username, skill, difficulty, score, total, responses_json, submitted_at
		FROM results WHERE session_id=$1`, sessionID)
	return scanResult(row)
}

// ListByUser returns a student's results, newest first.
func (s *SQLResultStore) ListByUser(ctx context.Context, username string, limit int) ([]Result, error) {
	q := `SELECT session_id, username, skill, difficulty, score, total, responses_json, submitted_at
		FROM results WHERE username=$1 ORDER BY submitted_at DESC`
	args := []any{username}
	if limit > 0 {
		args = append(args, limit)
		q += " LIMIT $2"
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (Result, error) {
	var r Result
	var rjson string
	var ts int64
	err := row.Scan(&r.SessionID, &r.Username, &r.Skill, &r.Difficulty, &r.Score, &r.Total, &rjson, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, ErrResultNotFound
	}
	if err != nil {
		return Result{}, err
	}
	if err := json.Unmarshal([]byte(rjson), &r.Responses); err != nil {
		return Result{}, fmt.Errorf("result %s: bad responses: %w", r.SessionID, err)
	}
	r.SubmittedAt = time.Unix(ts, 0).UTC()
	return r, nil
}
