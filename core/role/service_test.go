package role_test

import (
	"context"
	"testing"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/role"
	notifsvc "github.com/trezcool/shule/services/notification"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

func newServiceT(t *testing.T) (*role.Service, *notifsvc.CaptureSink) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	sink := notifsvc.NewCaptureSink()
	return role.NewService(dummydb.NewRoleRepository(db), sink), sink
}

func TestService_Grant(t *testing.T) {
	ctx := context.Background()
	svc, sink := newServiceT(t)

	orgScope := core.OrgScope("org1")

	ass, err := svc.Grant(ctx, "u1", role.OrgTeacher, orgScope)
	if err != nil {
		t.Fatalf("Grant() failed: %v", err)
	}
	if ass.ID == "" || ass.CreatedAt.IsZero() {
		t.Error("Grant() did not populate the assignment")
	}
	if got := sink.Intents(); len(got) != 1 || got[0].Type != core.IntentRoleAssigned {
		t.Errorf("Grant() intents = %v, want one %s", got, core.IntentRoleAssigned)
	}

	// same triple conflicts
	if _, err = svc.Grant(ctx, "u1", role.OrgTeacher, orgScope); !core.IsConflict(err) {
		t.Errorf("Grant() error = %v, want conflict", err)
	}
	// same role in another scope is fine
	if _, err = svc.Grant(ctx, "u1", role.OrgTeacher, core.OrgScope("org2")); err != nil {
		t.Errorf("Grant() in other scope failed: %v", err)
	}

	tests := []struct {
		name  string
		r     role.Role
		scope core.Scope
	}{
		{name: "unknown role", r: role.Role("boss"), scope: orgScope},
		{name: "ambiguous scope", r: role.OrgAdmin, scope: core.Scope{Org: "org1", SoloTeacher: "t1"}},
		{name: "org role needs org scope", r: role.OrgAdmin, scope: core.SoloScope("t1")},
		{name: "org role with zero scope", r: role.OrgOwner, scope: core.Scope{}},
		{name: "solo teacher needs solo scope", r: role.SoloTeacher, scope: orgScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Grant(ctx, "u2", tt.r, tt.scope); !core.IsValidationError(err) {
				t.Errorf("Grant() error = %v, want validation error", err)
			}
		})
	}
}

func TestService_HasRole_exactScope(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)

	if _, err := svc.Grant(ctx, "u1", role.OrgAdmin, core.OrgScope("org1")); err != nil {
		t.Fatalf("Grant() failed: %v", err)
	}
	if _, err := svc.Grant(ctx, "u1", role.Student, core.Scope{}); err != nil {
		t.Fatalf("Grant() failed: %v", err)
	}

	tests := []struct {
		name  string
		r     role.Role
		scope core.Scope
		want  bool
	}{
		{name: "granted scope", r: role.OrgAdmin, scope: core.OrgScope("org1"), want: true},
		{name: "other org", r: role.OrgAdmin, scope: core.OrgScope("org2")},
		{name: "zero scope does not match org grant", r: role.OrgAdmin, scope: core.Scope{}},
		{name: "tenant-independent grant", r: role.Student, scope: core.Scope{}, want: true},
		{name: "tenant-independent grant never satisfies scoped check", r: role.Student, scope: core.OrgScope("org1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.HasRole(ctx, "u1", tt.r, tt.scope)
			if err != nil {
				t.Fatalf("HasRole() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasRole() = %v, want %v", got, tt.want)
			}
		})
	}

	ok, err := svc.HasAnyRole(ctx, "u1", []role.Role{role.OrgOwner, role.OrgAdmin}, core.OrgScope("org1"))
	if err != nil {
		t.Fatalf("HasAnyRole() failed: %v", err)
	}
	if !ok {
		t.Error("HasAnyRole() = false, want true")
	}
}

func TestService_Revoke(t *testing.T) {
	ctx := context.Background()
	svc, sink := newServiceT(t)

	scope := core.OrgScope("org1")
	if _, err := svc.Grant(ctx, "u1", role.OrgTeacher, scope); err != nil {
		t.Fatalf("Grant() failed: %v", err)
	}
	sink.Clear()

	ok, err := svc.Revoke(ctx, "u1", role.OrgTeacher, scope)
	if err != nil {
		t.Fatalf("Revoke() failed: %v", err)
	}
	if !ok {
		t.Error("Revoke() = false, want true")
	}
	if got := sink.Intents(); len(got) != 1 || got[0].Type != core.IntentRoleRevoked {
		t.Errorf("Revoke() intents = %v, want one %s", got, core.IntentRoleRevoked)
	}

	// revoking again is a no-op
	sink.Clear()
	ok, err = svc.Revoke(ctx, "u1", role.OrgTeacher, scope)
	if err != nil {
		t.Fatalf("Revoke() failed: %v", err)
	}
	if ok {
		t.Error("Revoke() = true, want false")
	}
	if got := sink.Intents(); len(got) != 0 {
		t.Errorf("Revoke() no-op emitted intents: %v", got)
	}

	has, err := svc.HasRole(ctx, "u1", role.OrgTeacher, scope)
	if err != nil {
		t.Fatalf("HasRole() failed: %v", err)
	}
	if has {
		t.Error("HasRole() = true after revoke")
	}
}
