package guardian

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
	ErrNotFound      = core.NewNotFoundError("guardian link not found")
	ErrLinkExists    = core.NewConflictError("a link for this guardian and student already exists")
	ErrLinkResponded = core.NewInvalidStateError("link has already been responded to")

	errUnknownKind = errors.New("unknown relationship kind")
	errSelfLink    = errors.New("guardian and student cannot be the same user")
)

type (
	Repository interface {
		// CreateLink persists a new pending link; it fails with ErrLinkExists
		// when a pending or accepted link already exists for the pair.
		CreateLink(ctx context.Context, l Link) (Link, error)
		GetLinkByID(ctx context.Context, id string) (Link, error)
		// UpdateLinkStatus transitions the link out of pending atomically;
		// it fails with ErrLinkResponded when the stored link is terminal.
		UpdateLinkStatus(ctx context.Context, l Link) (Link, error)
		GetAcceptedLink(ctx context.Context, guardianID, studentID string) (Link, error)
		ListLinksByGuardian(ctx context.Context, guardianID string) ([]Link, error)
		ListLinksByStudent(ctx context.Context, studentID string) ([]Link, error)
	}

	Service struct {
		repo Repository
		sink core.IntentSink
	}
)

func NewService(repo Repository, sink core.IntentSink) *Service {
	return &Service{repo: repo, sink: sink}
}

// RequestLink records a pending guardian-child relationship request.
func (svc *Service) RequestLink(ctx context.Context, nl NewLink) (Link, error) {
	if err := nl.Validate(); err != nil {
		return Link{}, err
	}
	l := Link{
		ID:         uuid.New().String(),
		GuardianID: nl.GuardianID,
		StudentID:  nl.StudentID,
		Kind:       nl.Kind,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateLink(ctx, l)
}

// RespondToLink accepts or rejects a pending link. Only the student on the
// link may respond; responding to a terminal link fails.
func (svc *Service) RespondToLink(ctx context.Context, linkID, actorID string, accept bool) (Link, error) {
	l, err := svc.repo.GetLinkByID(ctx, linkID)
	if err != nil {
		return Link{}, err
	}
	if l.StudentID != actorID {
		return Link{}, core.NewAuthorizationError(core.DenyNotSelf)
	}
	if l.Status.Terminal() {
		return Link{}, ErrLinkResponded
	}

	if accept {
		l.Status = StatusAccepted
	} else {
		l.Status = StatusRejected
	}
	l.RespondedAt = null.TimeFrom(time.Now().UTC())

	l, err = svc.repo.UpdateLinkStatus(ctx, l)
	if err != nil {
		return Link{}, err
	}
	if accept {
		svc.sink.Emit(core.NewIntent(core.IntentGuardianLinkAccepted, map[string]interface{}{
			"guardian_id": l.GuardianID,
			"student_id":  l.StudentID,
		}))
	}
	return l, nil
}

// CanView reports whether an accepted link exists for the pair.
func (svc *Service) CanView(ctx context.Context, guardianID, studentID string) (bool, error) {
	if _, err := svc.repo.GetAcceptedLink(ctx, guardianID, studentID); err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListChildren returns the ids of students linked to the guardian through
// accepted links only.
func (svc *Service) ListChildren(ctx context.Context, guardianID string) ([]string, error) {
	links, err := svc.repo.ListLinksByGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	childIDs := make([]string, 0, len(links))
	for _, l := range links {
		if l.Status == StatusAccepted {
			childIDs = append(childIDs, l.StudentID)
		}
	}
	return childIDs, nil
}

// ListPendingForStudent returns link requests awaiting the student's response.
func (svc *Service) ListPendingForStudent(ctx context.Context, studentID string) ([]Link, error) {
	links, err := svc.repo.ListLinksByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	pending := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Status == StatusPending {
			pending = append(pending, l)
		}
	}
	return pending, nil
}
