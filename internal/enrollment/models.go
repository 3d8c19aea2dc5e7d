package enrollment

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Access string

const (
	AccessFree Access = "free"
	AccessPaid Access = "paid"
)

var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrContentNotFound  = errors.New("content not found")
	ErrAlreadyEnrolled  = errors.New("already enrolled")
	ErrCourseUnapproved = errors.New("course is not approved")
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Instructor  string    `json:"instructor"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c Course) Paid() bool { return c.PriceCents > 0 }

type Enrollment struct {
	CourseID   string    `json:"course_id"`
	Username   string    `json:"username"`
	Status     Status    `json:"status"`
	EnrolledOn time.Time `json:"enrolled_on"`
}

type Content struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Access   Access `json:"access"`
	FileURL  string `json:"file_url"`
}

type Purchase struct {
	Username    string    `json:"username"`
	ContentID   string    `json:"content_id"`
	PurchasedOn time.Time `json:"purchased_on"`
}
