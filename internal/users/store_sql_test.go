package users

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/skillcourse/skillcourse-platform/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "users.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewStore(dbh)
}

func registerAlice(t *testing.T, s *Store) Registration {
	t.Helper()
	r, err := s.Register(context.Background(), Registration{
		Name:     "Alice A",
		Email:    "alice@example.com",
		Phone:    "555-0100",
		Username: "alice",
	}, "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func TestRegisterFilesPendingApplication(t *testing.T) {
	s := newTestStore(t)
	r := registerAlice(t, s)

	if r.Status != RegistrationPending {
		t.Fatalf("expected pending, got %q", r.Status)
	}
	pending, err := s.RegistrationsByStatus(context.Background(), RegistrationPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].Username != "alice" {
		t.Fatalf("unexpected pending list: %+v", pending)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	ctx := context.Background()

	_, err := s.Register(ctx, Registration{
		Name: "Other", Email: "other@example.com", Username: "alice",
	}, "pw")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	_, err = s.Register(ctx, Registration{
		Name: "Other", Email: "alice@example.com", Username: "other",
	}, "pw")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestApproveCreatesStudentWithStartingTokens(t *testing.T) {
	s := newTestStore(t)
	r := registerAlice(t, s)
	ctx := context.Background()

	a, err := s.Approve(ctx, r.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if a.Role != RoleStudent {
		t.Errorf("expected student role, got %q", a.Role)
	}
	if a.Tokens != StartingTokens {
		t.Errorf("expected %d tokens, got %d", StartingTokens, a.Tokens)
	}

	// The original password works on the new account.
	got, err := s.Authenticate(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.LastLogin == nil {
		t.Error("expected last_login to be stamped")
	}

	// A decided registration cannot be approved again.
	if _, err := s.Approve(ctx, r.ID); !errors.Is(err, ErrRegistrationGone) {
		t.Fatalf("expected ErrRegistrationGone, got %v", err)
	}
}

func TestRejectClosesRegistration(t *testing.T) {
	s := newTestStore(t)
	r := registerAlice(t, s)
	ctx := context.Background()

	if err := s.Reject(ctx, r.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := s.GetByUsername(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no account, got %v", err)
	}
	if err := s.Reject(ctx, r.ID); !errors.Is(err, ErrRegistrationGone) {
		t.Fatalf("expected ErrRegistrationGone, got %v", err)
	}
}

func TestUpdateRegistrationWhilePending(t *testing.T) {
	s := newTestStore(t)
	r := registerAlice(t, s)
	ctx := context.Background()

	if err := s.UpdateRegistration(ctx, r.ID, "Alice B", "aliceb@example.com", "555-0101", "aliceb"); err != nil {
		t.Fatalf("update: %v", err)
	}
	a, err := s.Approve(ctx, r.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if a.Username != "aliceb" || a.Email != "aliceb@example.com" {
		t.Fatalf("update not applied: %+v", a)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	s := newTestStore(t)
	r := registerAlice(t, s)
	ctx := context.Background()
	if _, err := s.Approve(ctx, r.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := s.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	s := newTestStore(t)
	r := registerAlice(t, s)
	ctx := context.Background()
	if _, err := s.Approve(ctx, r.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := s.ResetPassword(ctx, "alice", "newpass99"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := s.Authenticate(ctx, "alice", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still works")
	}
	if _, err := s.Authenticate(ctx, "alice", "newpass99"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	if err := s.ResetPassword(ctx, "nobody", "pw"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListStudentsFiltersByRoleAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := registerAlice(t, s)
	if _, err := s.Approve(ctx, r.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := s.CreateAccount(ctx, Account{Username: "teach", Name: "Teach", Role: RoleInstructor}, "pw"); err != nil {
		t.Fatalf("create instructor: %v", err)
	}

	all, err := s.ListStudents(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Username != "alice" {
		t.Fatalf("expected only alice, got %+v", all)
	}

	none, err := s.ListStudents(ctx, "zzz")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty, got %+v", none)
	}

	match, err := s.ListStudents(ctx, "ALI")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(match) != 1 {
		t.Fatalf("case-insensitive search failed: %+v", match)
	}
}
