package dummydb

import (
	"context"

	"github.com/trezcool/shule/core/guardian"
)

type guardianRepository struct {
	db *guardianTable
}

var _ guardian.Repository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(db *DB) guardian.Repository {
	return &guardianRepository{db: db.guardian}
}

func (repo *guardianRepository) CreateLink(ctx context.Context, l guardian.Link) (guardian.Link, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// a pending or accepted link for the pair blocks a new request
	for _, other := range repo.db.table {
		if other.GuardianID == l.GuardianID && other.StudentID == l.StudentID &&
			(other.Status == guardian.StatusPending || other.Status == guardian.StatusAccepted) {
			return guardian.Link{}, guardian.ErrLinkExists
		}
	}
	repo.db.table[l.ID] = &l
	return l, nil
}

func (repo *guardianRepository) GetLinkByID(ctx context.Context, id string) (guardian.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.table[id]; ok {
		return *l, nil
	}
	return guardian.Link{}, guardian.ErrNotFound
}

func (repo *guardianRepository) UpdateLinkStatus(ctx context.Context, l guardian.Link) (guardian.Link, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[l.ID]
	if !ok {
		return guardian.Link{}, guardian.ErrNotFound
	}
	// only one transition out of pending, ever
	if orig.Status.Terminal() {
		return guardian.Link{}, guardian.ErrLinkResponded
	}
	orig.Status = l.Status
	orig.RespondedAt = l.RespondedAt
	repo.db.table[l.ID] = orig
	return *orig, nil
}

func (repo *guardianRepository) GetAcceptedLink(ctx context.Context, guardianID, studentID string) (guardian.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, l := range repo.db.table {
		if l.GuardianID == guardianID && l.StudentID == studentID && l.Status == guardian.StatusAccepted {
			return *l, nil
		}
	}
	return guardian.Link{}, guardian.ErrNotFound
}

func (repo *guardianRepository) ListLinksByGuardian(ctx context.Context, guardianID string) ([]guardian.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	links := make([]guardian.Link, 0)
	for _, l := range repo.db.table {
		if l.GuardianID == guardianID {
			links = append(links, *l)
		}
	}
	return links, nil
}

func (repo *guardianRepository) ListLinksByStudent(ctx context.Context, studentID string) ([]guardian.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	links := make([]guardian.Link, 0)
	for _, l := range repo.db.table {
		if l.StudentID == studentID {
			links = append(links, *l)
		}
	}
	return links, nil
}
