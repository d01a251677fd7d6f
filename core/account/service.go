package account

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/role"
	"github.com/trezcool/shule/core/user"
)

// Service orchestrates multi-step signups: user creation, tenancy setup and
// the initial role grant, plus the welcome email.
type Service struct {
	userSvc *user.Service
	orgSvc  *org.Service
	roleSvc *role.Service
	mailSvc core.EmailService
	sink    core.IntentSink
	conf    *core.Config
}

func NewService(userSvc *user.Service, orgSvc *org.Service, roleSvc *role.Service, mailSvc core.EmailService, sink core.IntentSink, conf *core.Config) *Service {
	return &Service{
		userSvc: userSvc,
		orgSvc:  orgSvc,
		roleSvc: roleSvc,
		mailSvc: mailSvc,
		sink:    sink,
		conf:    conf,
	}
}

// OrgSignup contains information needed to open a new organization account.
type OrgSignup struct {
	OrgName string       `json:"org_name" validate:"required"`
	Owner   user.NewUser `json:"owner"`
}

func (os *OrgSignup) Validate(userSvc *user.Service) error {
	os.OrgName = core.CleanString(os.OrgName)
	if err := core.Validate.Struct(os); err != nil {
		return err
	}
	return os.Owner.Validate(userSvc)
}

// SignupOrganization creates the owner account, the organization and the
// org_owner grant in one go.
func (svc *Service) SignupOrganization(ctx context.Context, signup OrgSignup) (org.Organization, user.User, error) {
	if err := signup.Validate(svc.userSvc); err != nil {
		return org.Organization{}, user.User{}, err
	}

	owner, err := svc.userSvc.Create(ctx, signup.Owner)
	if err != nil {
		return org.Organization{}, user.User{}, err
	}
	o, err := svc.orgSvc.Create(ctx, org.NewOrganization{Name: signup.OrgName, OwnerUserID: owner.ID})
	if err != nil {
		return org.Organization{}, user.User{}, err
	}
	if _, err = svc.roleSvc.Grant(ctx, owner.ID, role.OrgOwner, o.Scope()); err != nil {
		return org.Organization{}, user.User{}, err
	}

	svc.sink.Emit(core.NewIntent(core.IntentOrganizationCreated, map[string]interface{}{
		"org_id":   o.ID,
		"owner_id": owner.ID,
	}))
	svc.sendWelcome(owner, fmt.Sprintf("Your organization %q is ready.", o.Name))
	return o, owner, nil
}

// SignupSoloTeacher creates an independent teacher account whose personal
// namespace doubles as the tenancy scope.
func (svc *Service) SignupSoloTeacher(ctx context.Context, nu user.NewUser) (user.User, error) {
	if err := nu.Validate(svc.userSvc); err != nil {
		return user.User{}, err
	}
	usr, err := svc.userSvc.Create(ctx, nu)
	if err != nil {
		return user.User{}, err
	}
	if _, err = svc.roleSvc.Grant(ctx, usr.ID, role.SoloTeacher, core.SoloScope(usr.ID)); err != nil {
		return user.User{}, err
	}
	svc.sendWelcome(usr, "Your teaching space is ready.")
	return usr, nil
}

// RegisterStudent creates a student account with a tenant-independent grant.
func (svc *Service) RegisterStudent(ctx context.Context, nu user.NewUser) (user.User, error) {
	return svc.register(ctx, nu, role.Student)
}

// RegisterGuardian creates a guardian account with a tenant-independent grant.
func (svc *Service) RegisterGuardian(ctx context.Context, nu user.NewUser) (user.User, error) {
	return svc.register(ctx, nu, role.Guardian)
}

func (svc *Service) register(ctx context.Context, nu user.NewUser, r role.Role) (user.User, error) {
	if err := nu.Validate(svc.userSvc); err != nil {
		return user.User{}, err
	}
	usr, err := svc.userSvc.Create(ctx, nu)
	if err != nil {
		return user.User{}, err
	}
	if _, err = svc.roleSvc.Grant(ctx, usr.ID, r, core.Scope{}); err != nil {
		return user.User{}, err
	}
	svc.sendWelcome(usr, "Your account is ready.")
	return usr, nil
}

func (svc *Service) sendWelcome(usr user.User, body string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: fmt.Sprintf("Welcome to %s", svc.conf.AppName),
		BodyStr: fmt.Sprintf("Hi %s,\n\n%s\n\nSign in at %s", usr.FirstName, body, svc.conf.FrontendBaseURL),
	})
}
