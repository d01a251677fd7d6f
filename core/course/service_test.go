package course_test

import (
	"context"
	"sync"
	"testing"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	notifsvc "github.com/trezcool/shule/services/notification"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

func newServiceT(t *testing.T) (*course.Service, *notifsvc.CaptureSink) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	sink := notifsvc.NewCaptureSink()
	svc := course.NewService(dummydb.NewCourseRepository(db), dummydb.NewEnrollmentRepository(db), sink)
	return svc, sink
}

func createCourse(t *testing.T, svc *course.Service, scope core.Scope) course.Course {
	t.Helper()
	c, err := svc.Create(context.Background(), course.NewCourse{Title: "Algebra I", Subject: "math", Scope: scope}, "teacher1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return c
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)

	c := createCourse(t, svc, core.OrgScope("org1"))
	if !c.IsActive || c.CreatedBy != "teacher1" {
		t.Errorf("Create() course = %+v", c)
	}

	got, err := svc.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Title != "Algebra I" {
		t.Errorf("GetByID() title = %s", got.Title)
	}

	tests := []struct {
		name string
		nc   course.NewCourse
	}{
		{name: "missing title", nc: course.NewCourse{Scope: core.OrgScope("org1")}},
		{name: "zero scope", nc: course.NewCourse{Title: "T"}},
		{name: "ambiguous scope", nc: course.NewCourse{Title: "T", Scope: core.Scope{Org: "org1", SoloTeacher: "t1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.nc, "teacher1"); err == nil {
				t.Error("Create() expected an error")
			}
		})
	}
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	svc, sink := newServiceT(t)
	c := createCourse(t, svc, core.OrgScope("org1"))

	if _, err := svc.Enroll(ctx, "s1", "nope", course.SourceTeacher); !core.IsNotFound(err) {
		t.Errorf("Enroll() error = %v, want not found", err)
	}

	e, err := svc.Enroll(ctx, "s1", c.ID, course.SourceTeacher)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if e.Status != course.StatusActive {
		t.Errorf("Enroll() status = %s, want %s", e.Status, course.StatusActive)
	}
	if got := sink.Intents(); len(got) != 1 || got[0].Type != core.IntentStudentEnrolled {
		t.Errorf("Enroll() intents = %v, want one %s", got, core.IntentStudentEnrolled)
	}

	// second active enrollment for the pair conflicts
	if _, err = svc.Enroll(ctx, "s1", c.ID, course.SourceSelf); !core.IsConflict(err) {
		t.Errorf("Enroll() error = %v, want conflict", err)
	}

	enrolled, err := svc.IsActivelyEnrolled(ctx, "s1", c.ID)
	if err != nil {
		t.Fatalf("IsActivelyEnrolled() failed: %v", err)
	}
	if !enrolled {
		t.Error("IsActivelyEnrolled() = false, want true")
	}
}

func TestService_Enroll_concurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)
	c := createCourse(t, svc, core.OrgScope("org1"))

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Enroll(ctx, "s1", c.ID, course.SourceSelf); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("Enroll() concurrent successes = %d, want 1", succeeded)
	}
}

func TestService_Enroll_reactivation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)
	c := createCourse(t, svc, core.SoloScope("t1"))

	e, err := svc.Enroll(ctx, "s1", c.ID, course.SourceSelf)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if _, err = svc.SetStatus(ctx, e.ID, course.StatusDropped); err != nil {
		t.Fatalf("SetStatus() failed: %v", err)
	}

	// re-enrolling reactivates the same record
	e2, err := svc.Enroll(ctx, "s1", c.ID, course.SourceTeacher)
	if err != nil {
		t.Fatalf("Enroll() after drop failed: %v", err)
	}
	if e2.ID != e.ID {
		t.Errorf("Enroll() created a new record %s, want reactivated %s", e2.ID, e.ID)
	}
	if e2.Status != course.StatusActive || e2.Progress != 0 {
		t.Errorf("Enroll() reactivated = %+v, want active with progress reset", e2)
	}
	if e2.Source != course.SourceTeacher {
		t.Errorf("Enroll() source = %s, want %s", e2.Source, course.SourceTeacher)
	}
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)
	c := createCourse(t, svc, core.OrgScope("org1"))

	e, err := svc.Enroll(ctx, "s1", c.ID, course.SourceAdmin)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	if _, err = svc.SetStatus(ctx, e.ID, course.Status("paused")); !core.IsValidationError(err) {
		t.Errorf("SetStatus() error = %v, want validation error", err)
	}
	if _, err = svc.SetStatus(ctx, e.ID, course.StatusActive); !core.IsInvalidState(err) {
		t.Errorf("SetStatus(active) error = %v, want invalid state", err)
	}
	if _, err = svc.SetStatus(ctx, "nope", course.StatusDropped); !core.IsNotFound(err) {
		t.Errorf("SetStatus() error = %v, want not found", err)
	}

	e, err = svc.SetStatus(ctx, e.ID, course.StatusCompleted)
	if err != nil {
		t.Fatalf("SetStatus() failed: %v", err)
	}
	if e.Status != course.StatusCompleted || !e.CompletedAt.Valid {
		t.Errorf("SetStatus() enrollment = %+v, want completed with CompletedAt", e)
	}

	// terminal enrollments cannot transition again
	if _, err = svc.SetStatus(ctx, e.ID, course.StatusDropped); !core.IsInvalidState(err) {
		t.Errorf("SetStatus() on terminal error = %v, want invalid state", err)
	}

	enrolled, err := svc.IsActivelyEnrolled(ctx, "s1", c.ID)
	if err != nil {
		t.Fatalf("IsActivelyEnrolled() failed: %v", err)
	}
	if enrolled {
		t.Error("IsActivelyEnrolled() = true after completion")
	}
}
