package auth

import (
	"context"
	"errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/quiz"
	"github.com/trezcool/shule/core/role"
)

var (
	errUnknownAction   = errors.New("unknown action")
	errUnknownResource = errors.New("unknown resource kind")
)

// Resource kinds the facade can resolve an owning scope for.
type ResourceKind string

const (
	KindOrganization ResourceKind = "organization"
	KindCourse       ResourceKind = "course"
	KindQuiz         ResourceKind = "quiz"
	KindQuestion     ResourceKind = "question"
	KindEnrollment   ResourceKind = "enrollment"
	KindAttempt      ResourceKind = "attempt"
	KindStudent      ResourceKind = "student"
)

// Resource identifies the entity an action targets.
type Resource struct {
	Kind ResourceKind
	ID   string
}

func NewResource(kind ResourceKind, id string) Resource { return Resource{Kind: kind, ID: id} }

// Decision is the outcome of an authorization check. Reason is set on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

type (
	OrgGetter interface {
		GetByID(ctx context.Context, id string) (org.Organization, error)
	}
	CourseGetter interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
	}
	EnrollmentGetter interface {
		GetEnrollmentByID(ctx context.Context, id string) (course.Enrollment, error)
	}
	QuizGetter interface {
		GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error)
		GetQuestionByID(ctx context.Context, id string) (quiz.QuestionBankItem, error)
		GetAttemptByID(ctx context.Context, id string) (quiz.Attempt, error)
	}
	RoleChecker interface {
		HasAnyRole(ctx context.Context, userID string, roles []role.Role, scope core.Scope) (bool, error)
	}
	GuardianChecker interface {
		CanView(ctx context.Context, guardianID, studentID string) (bool, error)
	}

	// Service is the single authorization entry point. It only reads registry
	// and graph state; it never mutates anything, so it is safe to call on
	// every read and write path.
	Service struct {
		orgs      OrgGetter
		courses   CourseGetter
		enrs      EnrollmentGetter
		quizzes   QuizGetter
		roles     RoleChecker
		guardians GuardianChecker
	}
)

func NewService(orgs OrgGetter, courses CourseGetter, enrs EnrollmentGetter, quizzes QuizGetter, roles RoleChecker, guardians GuardianChecker) *Service {
	return &Service{
		orgs:      orgs,
		courses:   courses,
		enrs:      enrs,
		quizzes:   quizzes,
		roles:     roles,
		guardians: guardians,
	}
}

// resolution is the owning scope plus, for student-owned resources, the
// owning student's id.
type resolution struct {
	scope     core.Scope
	studentID string
}

// ResolveScope walks the ownership chain of a resource down to its owning
// scope (QuizQuestion -> Quiz -> Course -> scope). A missing link anywhere in
// the chain surfaces as a not-found error.
func (svc *Service) ResolveScope(ctx context.Context, res Resource) (core.Scope, error) {
	r, err := svc.resolve(ctx, res)
	if err != nil {
		return core.Scope{}, err
	}
	return r.scope, nil
}

func (svc *Service) resolve(ctx context.Context, res Resource) (resolution, error) {
	switch res.Kind {
	case KindOrganization:
		o, err := svc.orgs.GetByID(ctx, res.ID)
		if err != nil {
			return resolution{}, err
		}
		return resolution{scope: o.Scope()}, nil

	case KindCourse:
		c, err := svc.courses.GetByID(ctx, res.ID)
		if err != nil {
			return resolution{}, err
		}
		return resolution{scope: c.Scope}, nil

	case KindQuiz:
		q, err := svc.quizzes.GetQuizByID(ctx, res.ID)
		if err != nil {
			return resolution{}, err
		}
		return svc.resolve(ctx, Resource{Kind: KindCourse, ID: q.CourseID})

	case KindQuestion:
		item, err := svc.quizzes.GetQuestionByID(ctx, res.ID)
		if err != nil {
			return resolution{}, err
		}
		return resolution{scope: item.Scope}, nil

	case KindEnrollment:
		e, err := svc.enrs.GetEnrollmentByID(ctx, res.ID)
		if err != nil {
			return resolution{}, err
		}
		r, err := svc.resolve(ctx, Resource{Kind: KindCourse, ID: e.CourseID})
		if err != nil {
			return resolution{}, err
		}
		r.studentID = e.StudentID
		return r, nil

	case KindAttempt:
		a, err := svc.quizzes.GetAttemptByID(ctx, res.ID)
		if err != nil {
			return resolution{}, err
		}
		r, err := svc.resolve(ctx, Resource{Kind: KindQuiz, ID: a.QuizID})
		if err != nil {
			return resolution{}, err
		}
		r.studentID = a.StudentID
		return r, nil

	case KindStudent:
		// Students are tenant-independent; only self and guardian paths apply.
		return resolution{studentID: res.ID}, nil
	}
	return resolution{}, core.NewValidationError(errUnknownResource, core.FieldError{Field: "kind", Error: errUnknownResource.Error()})
}

// Authorize decides whether actor may perform action on resource.
// It fails closed: a broken ownership chain denies with resource_not_found,
// and an action absent from the permission table denies outright.
func (svc *Service) Authorize(ctx context.Context, actorID string, action Action, res Resource) (Decision, error) {
	rl, ok := actionRules[action]
	if !ok {
		return deny(core.DenyNoRoleInScope), core.NewValidationError(errUnknownAction, core.FieldError{Field: "action", Error: errUnknownAction.Error()})
	}

	r, err := svc.resolve(ctx, res)
	if err != nil {
		if core.IsNotFound(err) {
			return deny(core.DenyResourceNotFound), nil
		}
		if core.IsValidationError(err) {
			return deny(core.DenyResourceNotFound), err
		}
		return Decision{}, err
	}

	// Student-self bypass.
	if rl.AllowSelf && r.studentID != "" && actorID == r.studentID {
		return allow(), nil
	}

	// Guardian bypass, gated on an accepted link.
	if rl.AllowGuardian && r.studentID != "" {
		ok, err := svc.guardians.CanView(ctx, actorID, r.studentID)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return allow(), nil
		}
	}

	// Solo-teacher self-ownership shortcut: the owner of a solo scope needs no
	// registry row to act within it.
	if r.scope.IsSolo() && actorID == r.scope.SoloTeacher && containsRole(rl.Roles, role.SoloTeacher) {
		return allow(), nil
	}

	if len(rl.Roles) > 0 && !r.scope.IsZero() {
		ok, err := svc.roles.HasAnyRole(ctx, actorID, rl.Roles, r.scope)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return allow(), nil
		}
	}

	return deny(denyReason(rl, r)), nil
}

// denyReason picks the most specific reason for the paths that applied.
func denyReason(rl rule, r resolution) string {
	if r.studentID != "" {
		if rl.AllowGuardian {
			return core.DenyNotLinkedGuardian
		}
		if rl.AllowSelf {
			return core.DenyNotSelf
		}
	}
	return core.DenyNoRoleInScope
}

func containsRole(roles []role.Role, want role.Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
