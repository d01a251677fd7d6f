package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/guardian"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/quiz"
	"github.com/trezcool/shule/core/role"
	notifsvc "github.com/trezcool/shule/services/notification"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

type fixture struct {
	authSvc     *auth.Service
	orgSvc      *org.Service
	courseSvc   *course.Service
	quizSvc     *quiz.Service
	roleSvc     *role.Service
	guardianSvc *guardian.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	sink := notifsvc.NewCaptureSink()
	orgSvc := org.NewService(dummydb.NewOrgRepository(db))
	roleSvc := role.NewService(dummydb.NewRoleRepository(db), sink)
	guardianSvc := guardian.NewService(dummydb.NewGuardianRepository(db), sink)
	enrRepo := dummydb.NewEnrollmentRepository(db)
	courseSvc := course.NewService(dummydb.NewCourseRepository(db), enrRepo, sink)
	quizSvc := quiz.NewService(dummydb.NewQuizRepository(db), courseSvc, sink)

	return &fixture{
		authSvc:     auth.NewService(orgSvc, courseSvc, enrRepo, quizSvc, roleSvc, guardianSvc),
		orgSvc:      orgSvc,
		courseSvc:   courseSvc,
		quizSvc:     quizSvc,
		roleSvc:     roleSvc,
		guardianSvc: guardianSvc,
	}
}

func (f *fixture) grant(t *testing.T, userID string, r role.Role, scope core.Scope) {
	t.Helper()
	_, err := f.roleSvc.Grant(context.Background(), userID, r, scope)
	require.NoError(t, err)
}

func (f *fixture) createCourse(t *testing.T, scope core.Scope) course.Course {
	t.Helper()
	c, err := f.courseSvc.Create(context.Background(), course.NewCourse{Title: "History", Scope: scope}, "creator")
	require.NoError(t, err)
	return c
}

func TestService_Authorize_roleInScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	o, err := f.orgSvc.Create(ctx, org.NewOrganization{Name: "Green Hills", OwnerUserID: "owner1"})
	require.NoError(t, err)
	c := f.createCourse(t, o.Scope())

	f.grant(t, "teacher1", role.OrgTeacher, o.Scope())
	f.grant(t, "teacher2", role.OrgTeacher, core.OrgScope("other-org"))

	res := auth.NewResource(auth.KindCourse, c.ID)

	dec, err := f.authSvc.Authorize(ctx, "teacher1", auth.ActionCreateQuiz, res)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// a role in another org never leaks across scopes
	dec, err = f.authSvc.Authorize(ctx, "teacher2", auth.ActionCreateQuiz, res)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, core.DenyNoRoleInScope, dec.Reason)

	// teachers hold no admin actions
	dec, err = f.authSvc.Authorize(ctx, "teacher1", auth.ActionGrantRole, auth.NewResource(auth.KindOrganization, o.ID))
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	f.grant(t, "admin1", role.OrgAdmin, o.Scope())
	dec, err = f.authSvc.Authorize(ctx, "admin1", auth.ActionGrantRole, auth.NewResource(auth.KindOrganization, o.ID))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// rename is owner-only
	dec, err = f.authSvc.Authorize(ctx, "admin1", auth.ActionRenameOrganization, auth.NewResource(auth.KindOrganization, o.ID))
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	f.grant(t, "owner1", role.OrgOwner, o.Scope())
	dec, err = f.authSvc.Authorize(ctx, "owner1", auth.ActionRenameOrganization, auth.NewResource(auth.KindOrganization, o.ID))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestService_Authorize_failClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.grant(t, "teacher1", role.OrgTeacher, core.OrgScope("org1"))

	// a broken ownership chain denies instead of erroring
	dec, err := f.authSvc.Authorize(ctx, "teacher1", auth.ActionViewCourse, auth.NewResource(auth.KindCourse, "nope"))
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, core.DenyResourceNotFound, dec.Reason)

	// unknown actions are denied outright
	c := f.createCourse(t, core.OrgScope("org1"))
	dec, err = f.authSvc.Authorize(ctx, "teacher1", auth.Action("fly"), auth.NewResource(auth.KindCourse, c.ID))
	assert.Error(t, err)
	assert.False(t, dec.Allowed)

	// unknown resource kinds too
	dec, err = f.authSvc.Authorize(ctx, "teacher1", auth.ActionViewCourse, auth.NewResource(auth.ResourceKind("planet"), "x"))
	assert.Error(t, err)
	assert.False(t, dec.Allowed)
}

func TestService_Authorize_scopeResolution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	scope := core.OrgScope("org1")
	c := f.createCourse(t, scope)
	q, err := f.quizSvc.CreateQuiz(ctx, quiz.NewQuiz{CourseID: c.ID, Title: "Quiz"}, "creator")
	require.NoError(t, err)

	// quiz resolves through its course to the owning scope
	got, err := f.authSvc.ResolveScope(ctx, auth.NewResource(auth.KindQuiz, q.ID))
	require.NoError(t, err)
	assert.True(t, got.Equal(scope))

	f.grant(t, "teacher1", role.OrgTeacher, scope)
	dec, err := f.authSvc.Authorize(ctx, "teacher1", auth.ActionPublishQuiz, auth.NewResource(auth.KindQuiz, q.ID))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestService_Authorize_selfAndGuardian(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	scope := core.OrgScope("org1")
	c := f.createCourse(t, scope)
	e, err := f.courseSvc.Enroll(ctx, "s1", c.ID, course.SourceTeacher)
	require.NoError(t, err)

	q, err := f.quizSvc.CreateQuiz(ctx, quiz.NewQuiz{CourseID: c.ID, Title: "Quiz"}, "creator")
	require.NoError(t, err)
	_, err = f.quizSvc.Publish(ctx, q.ID)
	require.NoError(t, err)
	a, err := f.quizSvc.Start(ctx, "s1", q.ID)
	require.NoError(t, err)

	attemptRes := auth.NewResource(auth.KindAttempt, a.ID)

	// the owning student reads their own attempt
	dec, err := f.authSvc.Authorize(ctx, "s1", auth.ActionReadAttempts, attemptRes)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// another student does not
	dec, err = f.authSvc.Authorize(ctx, "s2", auth.ActionReadAttempts, attemptRes)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, core.DenyNotLinkedGuardian, dec.Reason)

	// an unlinked guardian is denied; an accepted link flips the decision
	dec, err = f.authSvc.Authorize(ctx, "g1", auth.ActionReadStudentGrades, auth.NewResource(auth.KindEnrollment, e.ID))
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, core.DenyNotLinkedGuardian, dec.Reason)

	l, err := f.guardianSvc.RequestLink(ctx, guardian.NewLink{GuardianID: "g1", StudentID: "s1", Kind: guardian.KindParent})
	require.NoError(t, err)
	_, err = f.guardianSvc.RespondToLink(ctx, l.ID, "s1", true)
	require.NoError(t, err)

	dec, err = f.authSvc.Authorize(ctx, "g1", auth.ActionReadStudentGrades, auth.NewResource(auth.KindEnrollment, e.ID))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// student profiles are tenant-independent: self and linked guardian only
	dec, err = f.authSvc.Authorize(ctx, "s1", auth.ActionReadStudentProfile, auth.NewResource(auth.KindStudent, "s1"))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	dec, err = f.authSvc.Authorize(ctx, "g1", auth.ActionReadStudentProfile, auth.NewResource(auth.KindStudent, "s1"))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	dec, err = f.authSvc.Authorize(ctx, "s2", auth.ActionReadStudentProfile, auth.NewResource(auth.KindStudent, "s1"))
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
}

func TestService_Authorize_soloTeacherShortcut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// the owner of a solo scope needs no registry row to act within it
	c := f.createCourse(t, core.SoloScope("t1"))
	res := auth.NewResource(auth.KindCourse, c.ID)

	dec, err := f.authSvc.Authorize(ctx, "t1", auth.ActionCreateQuiz, res)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// nobody else inherits the shortcut
	dec, err = f.authSvc.Authorize(ctx, "t2", auth.ActionCreateQuiz, res)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, core.DenyNoRoleInScope, dec.Reason)

	// admin-only actions stay out of the shortcut's reach
	dec, err = f.authSvc.Authorize(ctx, "t1", auth.ActionGrantRole, res)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
}
