package enrollment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/skillcourse/skillcourse-platform/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "courses.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewStore(dbh)
}

func approvedCourse(t *testing.T, s *Store, title string, priceCents int) Course {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCourse(ctx, Course{Title: title, Instructor: "teach", PriceCents: priceCents})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if err := s.SetCourseStatus(ctx, c.ID, StatusApproved); err != nil {
		t.Fatalf("approve course: %v", err)
	}
	c.Status = StatusApproved
	return c
}

func TestCourseLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCourse(ctx, Course{Title: "Go Basics", Instructor: "teach"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != StatusPending {
		t.Fatalf("new courses start pending, got %q", c.Status)
	}

	pending, err := s.CoursesByStatus(ctx, StatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}

	if err := s.SetCourseStatus(ctx, c.ID, StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := s.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %q", got.Status)
	}

	if err := s.SetCourseStatus(ctx, "missing", StatusApproved); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestEnrollFreeCourseApprovesInstantly(t *testing.T) {
	s := newTestStore(t)
	c := approvedCourse(t, s, "Free Course", 0)

	e, err := s.Enroll(context.Background(), c.ID, "alice")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if e.Status != StatusApproved {
		t.Fatalf("free enrollments approve instantly, got %q", e.Status)
	}
}

func TestEnrollPaidCourseWaitsForDecision(t *testing.T) {
	s := newTestStore(t)
	c := approvedCourse(t, s, "Paid Course", 4999)
	ctx := context.Background()

	e, err := s.Enroll(ctx, c.ID, "alice")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if e.Status != StatusPending {
		t.Fatalf("paid enrollments start pending, got %q", e.Status)
	}

	if err := s.SetEnrollmentStatus(ctx, c.ID, "alice", StatusApproved); err != nil {
		t.Fatalf("decide: %v", err)
	}
	got, err := s.EnrollmentFor(ctx, c.ID, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %q", got.Status)
	}
}

func TestEnrollGuards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Enroll(ctx, "missing", "alice"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}

	c, err := s.CreateCourse(ctx, Course{Title: "Unreviewed", Instructor: "teach"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Enroll(ctx, c.ID, "alice"); !errors.Is(err, ErrCourseUnapproved) {
		t.Fatalf("expected ErrCourseUnapproved, got %v", err)
	}

	free := approvedCourse(t, s, "Free", 0)
	if _, err := s.Enroll(ctx, free.ID, "alice"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := s.Enroll(ctx, free.ID, "alice"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
}

func TestEnrollmentsByUserStatusFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	free := approvedCourse(t, s, "Free", 0)
	paid := approvedCourse(t, s, "Paid", 1000)

	if _, err := s.Enroll(ctx, free.ID, "alice"); err != nil {
		t.Fatalf("enroll free: %v", err)
	}
	if _, err := s.Enroll(ctx, paid.ID, "alice"); err != nil {
		t.Fatalf("enroll paid: %v", err)
	}

	all, err := s.EnrollmentsByUser(ctx, "alice", "")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2, got %d", len(all))
	}

	approved, err := s.EnrollmentsByUser(ctx, "alice", StatusApproved)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if len(approved) != 1 || approved[0].CourseID != free.ID {
		t.Fatalf("unexpected approved list: %+v", approved)
	}
}

func TestContentAndPurchases(t *testing.T) {
	s := newTestStore(t)
	c := approvedCourse(t, s, "Course", 0)
	ctx := context.Background()

	ct, err := s.AddContent(ctx, Content{CourseID: c.ID, Title: "Lesson 1", Access: AccessPaid, FileURL: "s3://x"})
	if err != nil {
		t.Fatalf("add content: %v", err)
	}
	contents, err := s.ContentsByCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("list contents: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	ok, err := s.HasPurchased(ctx, "alice", ct.ID)
	if err != nil {
		t.Fatalf("has purchased: %v", err)
	}
	if ok {
		t.Fatal("purchase recorded before buying")
	}

	if err := s.PurchaseContent(ctx, "alice", ct.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	// Buying again is a no-op, not an error.
	if err := s.PurchaseContent(ctx, "alice", ct.ID); err != nil {
		t.Fatalf("repeat purchase: %v", err)
	}
	ok, err = s.HasPurchased(ctx, "alice", ct.ID)
	if err != nil {
		t.Fatalf("has purchased: %v", err)
	}
	if !ok {
		t.Fatal("purchase not recorded")
	}

	if err := s.PurchaseContent(ctx, "alice", "missing"); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}

	if _, err := s.AddContent(ctx, Content{CourseID: c.ID, Title: "Bad", Access: "vip"}); err == nil {
		t.Fatal("expected bad access to fail")
	}
}
