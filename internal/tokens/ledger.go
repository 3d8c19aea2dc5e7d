// Package tokens keeps per-student token balances and their audit trail.
// Every balance mutation writes exactly one ledger row in the same
// transaction; there is no way to move a balance without a trace.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UsageModule labels assessment-start deductions in the usage log.
const UsageModule = "AI Assessment"

// ActorSelf marks automated deductions, as opposed to an instructor username.
const ActorSelf = "self"

var (
	ErrUnknownStudent     = errors.New("unknown student")
	ErrInsufficientTokens = errors.New("insufficient tokens")
)

// Entry is one immutable audit record.
type Entry struct {
	ID        int64     `json:"id"`
	Student   string    `json:"student"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Delta     int       `json:"tokens_changed"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageEntry records one assessment-start deduction.
type UsageEntry struct {
	Username   string    `json:"username"`
	Module     string    `json:"module"`
	Skill      string    `json:"skill"`
	Difficulty string    `json:"difficulty"`
	UsedOn     time.Time `json:"used_on"`
}

// LogFilter bounds Ledger.Log. Zero values mean "no filter".
type LogFilter struct {
	Student string
	Actor   string
	Limit   int
}

type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger { return &Ledger{db: db} }

// Balance returns the student's current token count.
func (l *Ledger) Balance(ctx context.Context, student string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT tokens FROM users WHERE username=$1`, student).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownStudent
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// HasSufficient reports whether the student can start one assessment.
func (l *Ledger) HasSufficient(ctx context.Context, student string) (bool, error) {
	n, err := l.Balance(ctx, student)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Adjust applies an additive change and appends the audit entry. No floor or
// ceiling is enforced here; callers pre-validate (e.g. refuse decrement below
// zero) before calling.
func (l *Ledger) Adjust(ctx context.Context, student string, delta int, actor, action string) (int, error) {
	var balance int
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET tokens = tokens + $1 WHERE username=$2`, delta, student)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUnknownStudent
		}
		if err := appendEntry(ctx, tx, student, actor, action, delta); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT tokens FROM users WHERE username=$1`, student).Scan(&balance)
	})
	return balance, err
}

// Reset sets the balance to exactly `to` and bumps the exam-attempt counter —
// a fresh batch of tokens always also consumes an attempt slot. One audit
// entry, recording the new value, covers the whole operation.
func (l *Ledger) Reset(ctx context.Context, student string, to int, actor string) (int, error) {
	return l.resetWithAction(ctx, student, to, actor, fmt.Sprintf("Reset to %d", to))
}

// BulkReset resets every listed student, logging each under a bulk action label.
func (l *Ledger) BulkReset(ctx context.Context, students []string, to int, actor string) error {
	action := fmt.Sprintf("Bulk Reset to %d", to)
	for _, s := range students {
		if _, err := l.resetWithAction(ctx, s, to, actor, action); err != nil {
			return fmt.Errorf("reset %s: %w", s, err)
		}
	}
	return nil
}

func (l *Ledger) resetWithAction(ctx context.Context, student string, to int, actor, action string) (int, error) {
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET tokens = $1, exam_attempts = exam_attempts + 1 WHERE username=$2`, to, student)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUnknownStudent
		}
		return appendEntry(ctx, tx, student, actor, action, to)
	})
	if err != nil {
		return 0, err
	}
	return to, nil
}

// Spend deducts one token for an assessment start. The decrement is
// conditional on a positive balance inside a single UPDATE, so two
// concurrent starts cannot drive the balance negative. On success it also
// writes the ledger entry and the usage-log record.
func (l *Ledger) Spend(ctx context.Context, student, skill, difficulty string) error {
	return l.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET tokens = tokens - 1 WHERE username=$1 AND tokens > 0`, student)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, student).Scan(&exists); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrUnknownStudent
				}
				return err
			}
			return ErrInsufficientTokens
		}
		if err := appendEntry(ctx, tx, student, ActorSelf, "Assessment Start", -1); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO token_usage_log (username, module, skill, difficulty, used_on)
			VALUES ($1,$2,$3,$4,$5)`, student, UsageModule, skill, difficulty, time.Now().Unix())
		return err
	})
}

// Log returns audit entries, most recent first, optionally bounded to top-N.
func (l *Ledger) Log(ctx context.Context, f LogFilter) ([]Entry, error) {
	q := `SELECT id, student, actor, action, delta, created_at FROM token_ledger WHERE 1=1`
	args := []any{}
	if f.Student != "" {
		args = append(args, f.Student)
		q += fmt.Sprintf(" AND student=$%d", len(args))
	}
	if f.Actor != "" {
		args = append(args, f.Actor)
		q += fmt.Sprintf(" AND actor=$%d", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Student, &e.Actor, &e.Action, &e.Delta, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// UsageLog returns assessment-start deductions for one student, newest first.
func (l *Ledger) UsageLog(ctx context.Context, username string, limit int) ([]UsageEntry, error) {
	q := `SELECT username, module, skill, difficulty, used_on FROM token_usage_log
		WHERE username=$1 ORDER BY used_on DESC, id DESC`
	args := []any{username}
	if limit > 0 {
		args = append(args, limit)
		q += " LIMIT $2"
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []UsageEntry{}
	for rows.Next() {
		var u UsageEntry
		var ts int64
		if err := rows.Scan(&u.Username, &u.Module, &u.Skill, &u.Difficulty, &ts); err != nil {
			return nil, err
		}
		u.UsedOn = time.Unix(ts, 0).UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func appendEntry(ctx context.Context, tx *sql.Tx, student, actor, action string, delta int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO token_ledger (student, actor, action, delta, created_at)
		VALUES ($1,$2,$3,$4,$5)`, student, actor, action, delta, time.Now().Unix())
	return err
}
