package account_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/role"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	notifsvc "github.com/trezcool/shule/services/notification"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

type fixture struct {
	svc     *account.Service
	roleSvc *role.Service
	sink    *notifsvc.CaptureSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	conf := &core.Config{
		AppName:                   "Shule",
		SecretKey:                 []byte("secret"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	sink := notifsvc.NewCaptureSink()

	userSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, conf)
	orgSvc := org.NewService(dummydb.NewOrgRepository(db))
	roleSvc := role.NewService(dummydb.NewRoleRepository(db), sink)

	emailsvc.ClearSentMessages()
	return &fixture{
		svc:     account.NewService(userSvc, orgSvc, roleSvc, mailSvc, sink, conf),
		roleSvc: roleSvc,
		sink:    sink,
	}
}

func newUser(email string) user.NewUser {
	return user.NewUser{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           email,
		Password:        "S3cr3t!pwd",
		PasswordConfirm: "S3cr3t!pwd",
	}
}

func hasIntent(intents []core.Intent, typ string) bool {
	for _, in := range intents {
		if in.Type == typ {
			return true
		}
	}
	return false
}

func TestService_SignupOrganization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	o, owner, err := f.svc.SignupOrganization(ctx, account.OrgSignup{
		OrgName: "Green Hills Academy",
		Owner:   newUser("owner@test.cd"),
	})
	if err != nil {
		t.Fatalf("SignupOrganization() failed: %v", err)
	}
	if o.OwnerUserID != owner.ID {
		t.Errorf("SignupOrganization() org owner = %s, want %s", o.OwnerUserID, owner.ID)
	}
	if !owner.IsActive {
		t.Error("SignupOrganization() owner is not active")
	}

	has, err := f.roleSvc.HasRole(ctx, owner.ID, role.OrgOwner, o.Scope())
	if err != nil {
		t.Fatalf("HasRole() failed: %v", err)
	}
	if !has {
		t.Error("SignupOrganization() did not grant org_owner in the org scope")
	}

	if !hasIntent(f.sink.Intents(), core.IntentOrganizationCreated) {
		t.Errorf("SignupOrganization() intents = %v, want %s", f.sink.Intents(), core.IntentOrganizationCreated)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("SignupOrganization() sent %d emails, want 1", len(emailsvc.SentMessages))
	}

	// duplicate owner email
	if _, _, err = f.svc.SignupOrganization(ctx, account.OrgSignup{
		OrgName: "Another School",
		Owner:   newUser("owner@test.cd"),
	}); !core.IsValidationError(err) {
		t.Errorf("SignupOrganization() error = %v, want validation error", err)
	}

	// missing org name
	if _, _, err = f.svc.SignupOrganization(ctx, account.OrgSignup{Owner: newUser("o2@test.cd")}); err == nil {
		t.Error("SignupOrganization() expected an error")
	}
}

func TestService_SignupSoloTeacher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	usr, err := f.svc.SignupSoloTeacher(ctx, newUser("teach@test.cd"))
	if err != nil {
		t.Fatalf("SignupSoloTeacher() failed: %v", err)
	}

	// the teacher's own namespace is the tenancy scope
	has, err := f.roleSvc.HasRole(ctx, usr.ID, role.SoloTeacher, core.SoloScope(usr.ID))
	if err != nil {
		t.Fatalf("HasRole() failed: %v", err)
	}
	if !has {
		t.Error("SignupSoloTeacher() did not grant solo_teacher in the personal scope")
	}
}

func TestService_RegisterStudentAndGuardian(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	student, err := f.svc.RegisterStudent(ctx, newUser("kid@test.cd"))
	if err != nil {
		t.Fatalf("RegisterStudent() failed: %v", err)
	}
	has, err := f.roleSvc.HasRole(ctx, student.ID, role.Student, core.Scope{})
	if err != nil {
		t.Fatalf("HasRole() failed: %v", err)
	}
	if !has {
		t.Error("RegisterStudent() did not grant the tenant-independent student role")
	}

	g, err := f.svc.RegisterGuardian(ctx, newUser("mom@test.cd"))
	if err != nil {
		t.Fatalf("RegisterGuardian() failed: %v", err)
	}
	has, err = f.roleSvc.HasRole(ctx, g.ID, role.Guardian, core.Scope{})
	if err != nil {
		t.Fatalf("HasRole() failed: %v", err)
	}
	if !has {
		t.Error("RegisterGuardian() did not grant the tenant-independent guardian role")
	}

	// password confirmation mismatch
	nu := newUser("bad@test.cd")
	nu.PasswordConfirm = "different"
	if _, err = f.svc.RegisterStudent(ctx, nu); err == nil {
		t.Error("RegisterStudent() expected an error")
	}
}
