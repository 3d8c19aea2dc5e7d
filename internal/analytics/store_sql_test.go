package analytics

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/skillcourse/skillcourse-platform/internal/db"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "analytics.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewStore(dbh), dbh
}

func insertStudent(t *testing.T, dbh *sql.DB, username string, tokens int) {
	t.Helper()
	_, err := dbh.Exec(`INSERT INTO users (id, username, password_hash, role, tokens, created_at)
		VALUES ($1,$2,'x','student',$3,0)`, username+"-id", username, tokens)
	if err != nil {
		t.Fatalf("insert student: %v", err)
	}
}

func insertResult(t *testing.T, dbh *sql.DB, session, username, skill string, score int, submittedAt int64) {
	t.Helper()
	_, err := dbh.Exec(`INSERT INTO results (session_id, username, skill, difficulty, score, total, responses_json, submitted_at)
		VALUES ($1,$2,$3,'easy',$4,15,'[]',$5)`, session, username, skill, score, submittedAt)
	if err != nil {
		t.Fatalf("insert result: %v", err)
	}
}

func TestTokensPerStudent(t *testing.T) {
	s, dbh := newTestStore(t)
	insertStudent(t, dbh, "alice", 7)
	insertStudent(t, dbh, "bob", 0)
	_, err := dbh.Exec(`INSERT INTO users (id, username, password_hash, role, tokens, created_at)
		VALUES ('t-id','teach','x','instructor',0,0)`)
	if err != nil {
		t.Fatalf("insert instructor: %v", err)
	}

	out, err := s.TokensPerStudent(context.Background())
	if err != nil {
		t.Fatalf("tokens per student: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 students, got %d", len(out))
	}
	if out[0].Username != "alice" || out[0].TokensLeft != 7 {
		t.Errorf("unexpected first row: %+v", out[0])
	}
}

func TestRankingOrdersByAverage(t *testing.T) {
	s, dbh := newTestStore(t)
	insertResult(t, dbh, "s1", "alice", "python", 10, 100)
	insertResult(t, dbh, "s2", "alice", "python", 14, 200)
	insertResult(t, dbh, "s3", "bob", "python", 5, 300)

	out, err := s.Ranking(context.Background())
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].Username != "alice" {
		t.Errorf("expected alice first, got %q", out[0].Username)
	}
	if out[0].Attempts != 2 || out[0].MaxScore != 14 {
		t.Errorf("unexpected stats: %+v", out[0])
	}
	if out[0].AvgScore != 12 {
		t.Errorf("expected avg 12, got %v", out[0].AvgScore)
	}
}

func TestSkillBreakdownAndCompare(t *testing.T) {
	s, dbh := newTestStore(t)
	insertResult(t, dbh, "s1", "alice", "python", 10, 100)
	insertResult(t, dbh, "s2", "alice", "sql", 6, 200)
	insertResult(t, dbh, "s3", "bob", "sql", 8, 300)
	ctx := context.Background()

	breakdown, err := s.SkillBreakdown(ctx, "alice")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(breakdown))
	}

	cmp, err := s.Compare(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp["alice"]) != 2 || len(cmp["bob"]) != 1 {
		t.Fatalf("unexpected compare: %+v", cmp)
	}
}

func TestScoresOverTimeChronological(t *testing.T) {
	s, dbh := newTestStore(t)
	insertResult(t, dbh, "s2", "alice", "python", 14, 200)
	insertResult(t, dbh, "s1", "alice", "python", 10, 100)

	out, err := s.ScoresOverTime(context.Background())
	if err != nil {
		t.Fatalf("scores over time: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 points, got %d", len(out))
	}
	if out[0].Score != 10 {
		t.Errorf("expected oldest first, got %+v", out[0])
	}
}
