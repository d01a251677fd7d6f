package course

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("course not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrAlreadyEnrolled    = core.NewConflictError("student already actively enrolled in course")
	ErrEnrollmentClosed   = core.NewInvalidStateError("enrollment is no longer active")

	errBadScope     = errors.New("course must belong to an organization or a solo teacher")
	errBadStatus    = errors.New("unknown enrollment status")
	errReactivation = core.NewInvalidStateError("cannot reactivate through a status update; enroll again instead")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		ListCoursesByScope(ctx context.Context, scope core.Scope) ([]Course, error)
	}

	// EnrollmentRepository owns the "at most one active enrollment per
	// (student, course)" invariant.
	EnrollmentRepository interface {
		// UpsertActiveEnrollment atomically checks-and-sets: an existing
		// active enrollment for the pair fails with ErrAlreadyEnrolled, a
		// terminal one is reactivated in place, otherwise a new record is
		// inserted.
		UpsertActiveEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		GetActiveEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]Enrollment, error)
	}

	Service struct {
		repo    Repository
		enrRepo EnrollmentRepository
		sink    core.IntentSink
	}
)

func NewService(repo Repository, enrRepo EnrollmentRepository, sink core.IntentSink) *Service {
	return &Service{repo: repo, enrRepo: enrRepo, sink: sink}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse, creatorID string) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	c := Course{
		ID:          uuid.New().String(),
		Title:       nc.Title,
		Subject:     nc.Subject,
		Description: nc.Description,
		Scope:       nc.Scope,
		CreatedBy:   creatorID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) ListByScope(ctx context.Context, scope core.Scope) ([]Course, error) {
	return svc.repo.ListCoursesByScope(ctx, scope)
}

// Enroll makes the student an active member of the course. An existing active
// enrollment conflicts; a dropped/completed one is reactivated.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID string, source Source) (Enrollment, error) {
	if !source.Valid() {
		source = SourceAdmin
	}
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	e := Enrollment{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     StatusActive,
		Source:     source,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	e, err := svc.enrRepo.UpsertActiveEnrollment(ctx, e)
	if err != nil {
		return Enrollment{}, err
	}
	svc.sink.Emit(core.NewIntent(core.IntentStudentEnrolled, map[string]interface{}{
		"student_id": studentID,
		"course_id":  courseID,
		"source":     string(source),
	}))
	return e, nil
}

// SetStatus transitions an active enrollment to completed or dropped.
// Terminal enrollments cannot be transitioned here; use Enroll to reactivate.
func (svc *Service) SetStatus(ctx context.Context, enrollmentID string, status Status) (Enrollment, error) {
	if !status.Valid() {
		return Enrollment{}, core.NewValidationError(errBadStatus, core.FieldError{Field: "status", Error: errBadStatus.Error()})
	}
	e, err := svc.enrRepo.GetEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	if status == StatusActive {
		return Enrollment{}, errReactivation
	}
	if e.Status.Terminal() {
		return Enrollment{}, ErrEnrollmentClosed
	}

	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	if status == StatusCompleted {
		e.CompletedAt = null.TimeFrom(e.UpdatedAt)
	}
	return svc.enrRepo.UpdateEnrollment(ctx, e)
}

func (svc *Service) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	return svc.enrRepo.GetEnrollmentByID(ctx, id)
}

func (svc *Service) IsActivelyEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	if _, err := svc.enrRepo.GetActiveEnrollment(ctx, studentID, courseID); err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.enrRepo.ListEnrollmentsByStudent(ctx, studentID)
}

func (svc *Service) ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.enrRepo.ListEnrollmentsByCourse(ctx, courseID)
}
