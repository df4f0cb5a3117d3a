package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/soochol/appcfg/internal/appcfg"
	memstore "github.com/soochol/appcfg/internal/repository/memory"
)

// MemoryRevisionRepository is a thread-safe in-memory RevisionRepository.
type MemoryRevisionRepository struct {
	store *memstore.Store[*appcfg.Revision]
}

// NewMemoryRevisionRepository creates an empty in-memory repository.
func NewMemoryRevisionRepository() *MemoryRevisionRepository {
	return &MemoryRevisionRepository{
		store: memstore.New(func(r *appcfg.Revision) string { return r.ID }),
	}
}

func (r *MemoryRevisionRepository) Save(ctx context.Context, rev *appcfg.Revision) error {
	return r.store.Set(ctx, rev)
}

func (r *MemoryRevisionRepository) Get(ctx context.Context, id string) (*appcfg.Revision, error) {
	rev, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rev, err
}

func (r *MemoryRevisionRepository) Latest(ctx context.Context, documentID string) (*appcfg.Revision, error) {
	revs, err := r.List(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return revs[0], nil
}

func (r *MemoryRevisionRepository) List(ctx context.Context, documentID string) ([]*appcfg.Revision, error) {
	revs, err := r.store.Filter(ctx, func(rev *appcfg.Revision) bool {
		return rev.DocumentID == documentID
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(revs)
	return revs, nil
}

// sortNewestFirst orders by creation time, then by version for revisions
// created in the same instant.
func sortNewestFirst(revs []*appcfg.Revision) {
	sort.SliceStable(revs, func(i, j int) bool {
		if !revs[i].CreatedAt.Equal(revs[j].CreatedAt) {
			return revs[i].CreatedAt.After(revs[j].CreatedAt)
		}
		return revs[i].Version > revs[j].Version
	})
}
