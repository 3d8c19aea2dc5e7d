// Package analytics computes the instructor dashboard summaries straight in
// SQL: token balances, score rankings and per-skill breakdowns over the
// results table.
package analytics

import (
	"context"
	"database/sql"
	"time"
)

type StudentTokens struct {
	Username   string `json:"username"`
	TokensLeft int    `json:"tokens_left"`
}

type StudentStats struct {
	Username string  `json:"username"`
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avg_score"`
	MaxScore int     `json:"max_score"`
}

type SkillAverage struct {
	Skill    string  `json:"skill"`
	AvgScore float64 `json:"avg_score"`
}

type ScorePoint struct {
	Username    string    `json:"username"`
	Skill       string    `json:"skill"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// TokensPerStudent lists every student's remaining balance.
func (s *Store) TokensPerStudent(ctx context.Context) ([]StudentTokens, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, tokens FROM users WHERE role='student' ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StudentTokens{}
	for rows.Next() {
		var t StudentTokens
		if err := rows.Scan(&t.Username, &t.TokensLeft); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ranking orders students by average assessment score, best first.
func (s *Store) Ranking(ctx context.Context) ([]StudentStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, COUNT(1), AVG(score), MAX(score)
		FROM results GROUP BY username ORDER BY AVG(score) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StudentStats{}
	for rows.Next() {
		var st StudentStats
		if err := rows.Scan(&st.Username, &st.Attempts, &st.AvgScore, &st.MaxScore); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SkillBreakdown averages one student's scores per skill.
func (s *Store) SkillBreakdown(ctx context.Context, username string) ([]SkillAverage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT skill, AVG(score) FROM results
		WHERE username=$1 GROUP BY skill ORDER BY skill`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SkillAverage{}
	for rows.Next() {
		var a SkillAverage
		if err := rows.Scan(&a.Skill, &a.AvgScore); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ScoresOverTime returns every scored submission in chronological order.
func (s *Store) ScoresOverTime(ctx context.Context) ([]ScorePoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, skill, score, submitted_at
		FROM results ORDER BY submitted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ScorePoint{}
	for rows.Next() {
		var p ScorePoint
		var ts int64
		if err := rows.Scan(&p.Username, &p.Skill, &p.Score, &ts); err != nil {
			return nil, err
		}
		p.SubmittedAt = time.Unix(ts, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Compare returns per-skill averages for two students side by side.
func (s *Store) Compare(ctx context.Context, a, b string) (map[string][]SkillAverage, error) {
	out := map[string][]SkillAverage{}
	for _, u := range []string{a, b} {
		avgs, err := s.SkillBreakdown(ctx, u)
		if err != nil {
			return nil, err
		}
		out[u] = avgs
	}
	return out, nil
}
