package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soochol/appcfg/internal/appcfg"
)

// RevisionDB defines the DB-layer methods needed by the persistent revision
// repo. *db.DB satisfies this interface.
type RevisionDB interface {
	CreateRevision(ctx context.Context, rev *appcfg.Revision) error
	GetRevision(ctx context.Context, id string) (*appcfg.Revision, error)
	ListRevisions(ctx context.Context, documentID string) ([]*appcfg.Revision, error)
}

// PersistentRevisionRepository wraps MemoryRevisionRepository with a
// PostgreSQL backend. Writes go to both stores (DB failure is logged but
// non-fatal). Reads try memory first, falling back to the database.
type PersistentRevisionRepository struct {
	mem *MemoryRevisionRepository
	db  RevisionDB
}

func NewPersistentRevisionRepository(mem *MemoryRevisionRepository, db RevisionDB) *PersistentRevisionRepository {
	return &PersistentRevisionRepository{mem: mem, db: db}
}

func (r *PersistentRevisionRepository) Save(ctx context.Context, rev *appcfg.Revision) error {
	_ = r.mem.Save(ctx, rev)
	if err := r.db.CreateRevision(ctx, rev); err != nil {
		slog.Warn("db create revision failed, in-memory only", "id", rev.ID, "err", err)
	}
	return nil
}

func (r *PersistentRevisionRepository) Get(ctx context.Context, id string) (*appcfg.Revision, error) {
	rev, err := r.mem.Get(ctx, id)
	if err == nil {
		return rev, nil
	}

	dbRev, dbErr := r.db.GetRevision(ctx, id)
	if dbErr != nil {
		return nil, err // return original ErrNotFound
	}

	_ = r.mem.Save(ctx, dbRev)
	return dbRev, nil
}

func (r *PersistentRevisionRepository) Latest(ctx context.Context, documentID string) (*appcfg.Revision, error) {
	revs, err := r.List(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return revs[0], nil
}

// List prefers the database for durable listing.
func (r *PersistentRevisionRepository) List(ctx context.Context, documentID string) ([]*appcfg.Revision, error) {
	revs, err := r.db.ListRevisions(ctx, documentID)
	if err == nil {
		sortNewestFirst(revs)
		return revs, nil
	}
	slog.Warn("db list revisions failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, documentID)
}
