package sqlxrepos

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
)

type courseRow struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Subject       string    `db:"subject"`
	Description   string    `db:"description"`
	OrgID         string    `db:"org_id"`
	SoloTeacherID string    `db:"solo_teacher_id"`
	CreatedBy     string    `db:"created_by"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Subject:     r.Subject,
		Description: r.Description,
		Scope:       core.Scope{Org: r.OrgID, SoloTeacher: r.SoloTeacherID},
		CreatedBy:   r.CreatedBy,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type enrollmentRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	CourseID    string      `db:"course_id"`
	Status      string      `db:"status"`
	Source      string      `db:"source"`
	Grade       null.String `db:"grade"`
	Progress    float64     `db:"progress"`
	EnrolledAt  time.Time   `db:"enrolled_at"`
	CompletedAt null.Time   `db:"completed_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r enrollmentRow) toEnrollment() course.Enrollment {
	return course.Enrollment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		CourseID:    r.CourseID,
		Status:      course.Status(r.Status),
		Source:      course.Source(r.Source),
		Grade:       r.Grade,
		Progress:    r.Progress,
		EnrolledAt:  r.EnrolledAt,
		CompletedAt: r.CompletedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `
INSERT INTO course (id, title, subject, description, org_id, solo_teacher_id, created_by, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		c.ID, c.Title, c.Subject, c.Description, c.Scope.Org, c.Scope.SoloTeacher,
		c.CreatedBy, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `
UPDATE course SET title = $2, subject = $3, description = $4, is_active = $5, updated_at = $6
WHERE id = $1
RETURNING *`
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, q, c.ID, c.Title, c.Subject, c.Description, c.IsActive, c.UpdatedAt); err != nil {
		if isNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) ListCoursesByScope(ctx context.Context, scope core.Scope) ([]course.Course, error) {
	var rows []courseRow
	q := `SELECT * FROM course WHERE org_id = $1 AND solo_teacher_id = $2 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, scope.Org, scope.SoloTeacher); err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) course.EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) UpsertActiveEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	// Reactivate a terminal record in place first; the second writer of a
	// concurrent pair falls through to the insert and trips the partial
	// unique index.
	q := `
UPDATE enrollment SET status = 'active', source = $3, grade = NULL, progress = 0, completed_at = NULL, updated_at = $4
WHERE student_id = $1 AND course_id = $2 AND status <> 'active'
RETURNING *`
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, q, e.StudentID, e.CourseID, string(e.Source), e.UpdatedAt)
	if err == nil {
		return row.toEnrollment(), nil
	}
	if !isNoRows(err) {
		if isUniqueViolation(err, "enrollment_active_key") {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "reactivating enrollment")
	}

	ins := `
INSERT INTO enrollment (id, student_id, course_id, status, source, progress, enrolled_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = repo.db.ExecContext(ctx, ins,
		e.ID, e.StudentID, e.CourseID, string(e.Status), string(e.Source), e.Progress, e.EnrolledAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "enrollment_active_key") {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (course.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetActiveEnrollment(ctx context.Context, studentID, courseID string) (course.Enrollment, error) {
	q := `SELECT * FROM enrollment WHERE student_id = $1 AND course_id = $2 AND status = 'active'`
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, q, studentID, courseID); err != nil {
		if isNoRows(err) {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "getting active enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	q := `
UPDATE enrollment SET status = $2, grade = $3, progress = $4, completed_at = $5, updated_at = $6
WHERE id = $1
RETURNING *`
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, q, e.ID, string(e.Status), e.Grade, e.Progress, e.CompletedAt, e.UpdatedAt); err != nil {
		if isNoRows(err) {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	q := `SELECT * FROM enrollment WHERE student_id = $1 ORDER BY enrolled_at`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	enrs := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toEnrollment())
	}
	return enrs, nil
}

func (repo *enrollmentRepository) ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	q := `SELECT * FROM enrollment WHERE course_id = $1 ORDER BY enrolled_at`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	enrs := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toEnrollment())
	}
	return enrs, nil
}
