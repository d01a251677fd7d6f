package guardian_test

import (
	"context"
	"testing"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/guardian"
	notifsvc "github.com/trezcool/shule/services/notification"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

func newServiceT(t *testing.T) (*guardian.Service, *notifsvc.CaptureSink) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	sink := notifsvc.NewCaptureSink()
	return guardian.NewService(dummydb.NewGuardianRepository(db), sink), sink
}

func requestLink(t *testing.T, svc *guardian.Service, guardianID, studentID string) guardian.Link {
	t.Helper()
	l, err := svc.RequestLink(context.Background(), guardian.NewLink{
		GuardianID: guardianID,
		StudentID:  studentID,
		Kind:       guardian.KindParent,
	})
	if err != nil {
		t.Fatalf("RequestLink() failed: %v", err)
	}
	return l
}

func TestService_RequestLink(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)

	l := requestLink(t, svc, "g1", "s1")
	if l.Status != guardian.StatusPending {
		t.Errorf("RequestLink() status = %s, want %s", l.Status, guardian.StatusPending)
	}

	// a pending link for the pair blocks a second request
	if _, err := svc.RequestLink(ctx, guardian.NewLink{GuardianID: "g1", StudentID: "s1", Kind: guardian.KindOther}); !core.IsConflict(err) {
		t.Errorf("RequestLink() error = %v, want conflict", err)
	}

	tests := []struct {
		name string
		nl   guardian.NewLink
	}{
		{name: "missing kind", nl: guardian.NewLink{GuardianID: "g1", StudentID: "s2"}},
		{name: "unknown kind", nl: guardian.NewLink{GuardianID: "g1", StudentID: "s2", Kind: guardian.Kind("bff")}},
		{name: "self link", nl: guardian.NewLink{GuardianID: "g1", StudentID: "g1", Kind: guardian.KindParent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RequestLink(ctx, tt.nl); err == nil {
				t.Error("RequestLink() expected an error")
			}
		})
	}
}

func TestService_RespondToLink(t *testing.T) {
	ctx := context.Background()
	svc, sink := newServiceT(t)

	l := requestLink(t, svc, "g1", "s1")

	// only the student on the link may respond
	if _, err := svc.RespondToLink(ctx, l.ID, "g1", true); !core.IsAuthorizationError(err) {
		t.Errorf("RespondToLink() error = %v, want authorization error", err)
	}

	l, err := svc.RespondToLink(ctx, l.ID, "s1", true)
	if err != nil {
		t.Fatalf("RespondToLink() failed: %v", err)
	}
	if l.Status != guardian.StatusAccepted || !l.RespondedAt.Valid {
		t.Errorf("RespondToLink() link = %+v, want accepted with RespondedAt", l)
	}
	if got := sink.Intents(); len(got) != 1 || got[0].Type != core.IntentGuardianLinkAccepted {
		t.Errorf("RespondToLink() intents = %v, want one %s", got, core.IntentGuardianLinkAccepted)
	}

	// terminal links take no further response
	if _, err = svc.RespondToLink(ctx, l.ID, "s1", false); !core.IsInvalidState(err) {
		t.Errorf("RespondToLink() error = %v, want invalid state", err)
	}

	// rejection is terminal too and emits nothing
	sink.Clear()
	l2 := requestLink(t, svc, "g2", "s1")
	l2, err = svc.RespondToLink(ctx, l2.ID, "s1", false)
	if err != nil {
		t.Fatalf("RespondToLink() failed: %v", err)
	}
	if l2.Status != guardian.StatusRejected {
		t.Errorf("RespondToLink() status = %s, want %s", l2.Status, guardian.StatusRejected)
	}
	if got := sink.Intents(); len(got) != 0 {
		t.Errorf("RespondToLink() rejection emitted intents: %v", got)
	}
	if _, err = svc.RespondToLink(ctx, l2.ID, "s1", true); !core.IsInvalidState(err) {
		t.Errorf("RespondToLink() error = %v, want invalid state", err)
	}
}

func TestService_CanView(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)

	accepted := requestLink(t, svc, "g1", "s1")
	if _, err := svc.RespondToLink(ctx, accepted.ID, "s1", true); err != nil {
		t.Fatalf("RespondToLink() failed: %v", err)
	}
	requestLink(t, svc, "g2", "s1") // stays pending
	rejected := requestLink(t, svc, "g3", "s1")
	if _, err := svc.RespondToLink(ctx, rejected.ID, "s1", false); err != nil {
		t.Fatalf("RespondToLink() failed: %v", err)
	}

	tests := []struct {
		name       string
		guardianID string
		want       bool
	}{
		{name: "accepted link", guardianID: "g1", want: true},
		{name: "pending link", guardianID: "g2"},
		{name: "rejected link", guardianID: "g3"},
		{name: "no link", guardianID: "g4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanView(ctx, tt.guardianID, "s1")
			if err != nil {
				t.Fatalf("CanView() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_ListChildren(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceT(t)

	l1 := requestLink(t, svc, "g1", "s1")
	if _, err := svc.RespondToLink(ctx, l1.ID, "s1", true); err != nil {
		t.Fatalf("RespondToLink() failed: %v", err)
	}
	requestLink(t, svc, "g1", "s2") // pending; excluded

	children, err := svc.ListChildren(ctx, "g1")
	if err != nil {
		t.Fatalf("ListChildren() failed: %v", err)
	}
	if len(children) != 1 || children[0] != "s1" {
		t.Errorf("ListChildren() = %v, want [s1]", children)
	}

	pending, err := svc.ListPendingForStudent(ctx, "s2")
	if err != nil {
		t.Fatalf("ListPendingForStudent() failed: %v", err)
	}
	if len(pending) != 1 || pending[0].GuardianID != "g1" {
		t.Errorf("ListPendingForStudent() = %v, want the g1 request", pending)
	}
}
