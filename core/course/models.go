package course

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Course belongs to exactly one scope: an Organization, or a solo teacher's
// personal namespace.
type Course struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject,omitempty"`
	Description string     `json:"description,omitempty"`
	Scope       core.Scope `json:"scope"`
	CreatedBy   string     `json:"created_by"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string     `json:"title" validate:"required"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Scope       core.Scope `json:"scope"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Subject = core.CleanString(nc.Subject)
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	if nc.Scope.IsZero() || !nc.Scope.Valid() {
		return core.NewValidationError(errBadScope, core.FieldError{Field: "scope", Error: errBadScope.Error()})
	}
	return nil
}

// Enrollment statuses.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDropped:
		return true
	}
	return false
}

// Terminal enrollments can only become active again through Enroll.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusDropped }

// Enrollment sources.
type Source string

const (
	SourceAdmin   Source = "admin"
	SourceTeacher Source = "teacher"
	SourceSelf    Source = "self"
)

func (s Source) Valid() bool {
	switch s {
	case SourceAdmin, SourceTeacher, SourceSelf:
		return true
	}
	return false
}

// Enrollment is a student's membership record in a course.
// At most one active Enrollment exists per (student, course) pair.
type Enrollment struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"student_id"`
	CourseID    string      `json:"course_id"`
	Status      Status      `json:"status"`
	Source      Source      `json:"source"`
	Grade       null.String `json:"grade,omitempty"`
	Progress    float64     `json:"progress"`
	EnrolledAt  time.Time   `json:"enrolled_at"` // UTC
	CompletedAt null.Time   `json:"completed_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}
