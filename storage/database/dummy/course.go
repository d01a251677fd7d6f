package dummydb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = c.Title
	orig.Subject = c.Subject
	orig.Description = c.Description
	orig.IsActive = c.IsActive
	orig.UpdatedAt = c.UpdatedAt
	repo.db.table[c.ID] = orig
	return *orig, nil
}

func (repo *courseRepository) ListCoursesByScope(ctx context.Context, scope core.Scope) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.table {
		if c.Scope.Equal(scope) {
			courses = append(courses, *c)
		}
	}
	return courses, nil
}

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) course.EnrollmentRepository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) UpsertActiveEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the "one active per (student, course)" check and the write happen
	// under the same lock
	for _, other := range repo.db.table {
		if other.StudentID != e.StudentID || other.CourseID != e.CourseID {
			continue
		}
		if other.Status == course.StatusActive {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		// reactivate the terminal record in place
		other.Status = course.StatusActive
		other.Source = e.Source
		other.Grade = e.Grade
		other.Progress = 0
		other.CompletedAt = e.CompletedAt
		other.UpdatedAt = e.UpdatedAt
		return *other, nil
	}
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return *e, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) GetActiveEnrollment(ctx context.Context, studentID, courseID string) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.table {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == course.StatusActive {
			return *e, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[e.ID]
	if !ok {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	orig.Status = e.Status
	orig.Grade = e.Grade
	orig.Progress = e.Progress
	orig.CompletedAt = e.CompletedAt
	orig.UpdatedAt = e.UpdatedAt
	repo.db.table[e.ID] = orig
	return *orig, nil
}

func (repo *enrollmentRepository) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, e := range repo.db.table {
		if e.StudentID == studentID {
			enrs = append(enrs, *e)
		}
	}
	return enrs, nil
}

func (repo *enrollmentRepository) ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, e := range repo.db.table {
		if e.CourseID == courseID {
			enrs = append(enrs, *e)
		}
	}
	return enrs, nil
}
