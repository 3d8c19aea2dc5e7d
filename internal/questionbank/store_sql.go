package questionbank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	var meta CodingMeta
	if q.Coding != nil {
		meta = *q.Coding
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions
		(id, skill, difficulty, qtype, prompt, options_json, answer, constraints, input, output, explanation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		q.ID, q.Skill, string(q.Difficulty), string(q.Type), q.Prompt, string(oj), q.Answer,
		meta.Constraints, meta.Input, meta.Output, meta.Explanation)
	if err != nil {
		return fmt.Errorf("put question: %w", err)
	}
	return nil
}

func (s *SQLStore) PoolByType(ctx context.Context, skill string, difficulty Difficulty) (map[Type][]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, skill, difficulty, qtype, prompt, options_json, answer, constraints, input, output, explanation
		FROM questions WHERE skill=$1 AND difficulty=$2`, skill, string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("query pool: %w", err)
	}
	defer rows.Close()

	pool := map[Type][]Question{}
	for rows.Next() {
		var q Question
		var ojson string
		var meta CodingMeta
		if err := rows.Scan(&q.ID, &q.Skill, &q.Difficulty, &q.Type, &q.Prompt, &ojson, &q.Answer,
			&meta.Constraints, &meta.Input, &meta.Output, &meta.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ojson), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s: bad options: %w", q.ID, err)
		}
		if q.Type == TypeCoding && meta != (CodingMeta{}) {
			q.Coding = &meta
		}
		pool[q.Type] = append(pool[q.Type], q)
	}
	return pool, rows.Err()
}
