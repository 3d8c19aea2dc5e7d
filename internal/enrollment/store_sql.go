package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// CreateCourse files a course for admin approval.
func (s *Store) CreateCourse(ctx context.Context, c Course) (Course, error) {
	c.ID = uuid.NewString()
	c.Status = StatusPending
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses (id, title, instructor, description, price_cents, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Title, c.Instructor, c.Description, c.PriceCents, string(c.Status), c.CreatedAt.Unix())
	if err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

func (s *Store) SetCourseStatus(ctx context.Context, courseID string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE courses SET status=$1 WHERE id=$2`, string(status), courseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCourseNotFound
	}
	return nil
}

func (s *Store) GetCourse(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, instructor, description, price_cents, status, created_at
		FROM courses WHERE id=$1`, id)
	var c Course
	var created int64
	err := row.Scan(&c.ID, &c.Title, &c.Instructor, &c.Description, &c.PriceCents, &c.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	}
	if err != nil {
		return Course{}, err
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

func (s *Store) CoursesByStatus(ctx context.Context, status Status) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, instructor, description, price_cents, status, created_at
		FROM courses WHERE status=$1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Course{}
	for rows.Next() {
		var c Course
		var created int64
		if err := rows.Scan(&c.ID, &c.Title, &c.Instructor, &c.Description, &c.PriceCents, &c.Status, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// Enroll signs a student up for an approved course. Free courses are approved
// on the spot; paid courses wait for the instructor's decision.
func (s *Store) Enroll(ctx context.Context, courseID, username string) (Enrollment, error) {
	c, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if c.Status != StatusApproved {
		return Enrollment{}, ErrCourseUnapproved
	}
	if _, err := s.EnrollmentFor(ctx, courseID, username); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	}

	e := Enrollment{CourseID: courseID, Username: username, Status: StatusApproved, EnrolledOn: time.Now().UTC()}
	if c.Paid() {
		e.Status = StatusPending
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO enrollments (course_id, username, status, enrolled_on)
		VALUES ($1,$2,$3,$4)`, e.CourseID, e.Username, string(e.Status), e.EnrolledOn.Unix())
	if err != nil {
		return Enrollment{}, fmt.Errorf("enroll: %w", err)
	}
	return e, nil
}

func (s *Store) SetEnrollmentStatus(ctx context.Context, courseID, username string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE enrollments SET status=$1 WHERE course_id=$2 AND username=$3`,
		string(status), courseID, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("enrollment not found")
	}
	return nil
}

func (s *Store) EnrollmentFor(ctx context.Context, courseID, username string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT course_id, username, status, enrolled_on
		FROM enrollments WHERE course_id=$1 AND username=$2`, courseID, username)
	var e Enrollment
	var ts int64
	err := row.Scan(&e.CourseID, &e.Username, &e.Status, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, sql.ErrNoRows
	}
	if err != nil {
		return Enrollment{}, err
	}
	e.EnrolledOn = time.Unix(ts, 0).UTC()
	return e, nil
}

// EnrollmentsByUser lists a student's enrollments, newest first. An empty
// status returns them all.
func (s *Store) EnrollmentsByUser(ctx context.Context, username string, status Status) ([]Enrollment, error) {
	q := `SELECT course_id, username, status, enrolled_on
		FROM enrollments WHERE username=$1 ORDER BY enrolled_on DESC`
	args := []any{username}
	if status != "" {
		q = `SELECT course_id, username, status, enrolled_on
		FROM enrollments WHERE username=$1 AND status=$2 ORDER BY enrolled_on DESC`
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Enrollment{}
	for rows.Next() {
		var e Enrollment
		var ts int64
		if err := rows.Scan(&e.CourseID, &e.Username, &e.Status, &ts); err != nil {
			return nil, err
		}
		e.EnrolledOn = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AddContent(ctx context.Context, c Content) (Content, error) {
	if c.Access != AccessFree && c.Access != AccessPaid {
		return Content{}, fmt.Errorf("bad access: %q", c.Access)
	}
	c.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO course_content (id, course_id, title, access, file_url)
		VALUES ($1,$2,$3,$4,$5)`, c.ID, c.CourseID, c.Title, string(c.Access), c.FileURL)
	if err != nil {
		return Content{}, fmt.Errorf("add content: %w", err)
	}
	return c, nil
}

func (s *Store) SetContentFileURL(ctx context.Context, id, fileURL string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE course_content SET file_url=$1 WHERE id=$2`, fileURL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (s *Store) GetContent(ctx context.Context, id string) (Content, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, course_id, title, access, file_url
		FROM course_content WHERE id=$1`, id)
	var c Content
	err := row.Scan(&c.ID, &c.CourseID, &c.Title, &c.Access, &c.FileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, ErrContentNotFound
	}
	if err != nil {
		return Content{}, err
	}
	return c, nil
}

func (s *Store) ContentsByCourse(ctx context.Context, courseID string) ([]Content, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, course_id, title, access, file_url
		FROM course_content WHERE course_id=$1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Content{}
	for rows.Next() {
		var c Content
		if err := rows.Scan(&c.ID, &c.CourseID, &c.Title, &c.Access, &c.FileURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PurchaseContent marks a paid item as bought. Idempotent.
func (s *Store) PurchaseContent(ctx context.Context, username, contentID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM course_content WHERE id=$1`, contentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrContentNotFound
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO purchases (username, content_id, purchased_on)
		VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`, username, contentID, time.Now().Unix())
	return err
}

func (s *Store) HasPurchased(ctx context.Context, username, contentID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM purchases WHERE username=$1 AND content_id=$2)`,
		username, contentID).Scan(&ok)
	return ok, err
}
