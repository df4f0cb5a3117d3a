// Package repository defines storage interfaces for config document
// revisions.
package repository

import (
	"context"
	"errors"

	"github.com/soochol/appcfg/internal/appcfg"
)

// ErrNotFound is returned when a requested revision does not exist.
var ErrNotFound = errors.New("revision not found")

// RevisionRepository abstracts revision persistence so callers don't
// need to know whether storage is in-memory, PostgreSQL, or a mix.
type RevisionRepository interface {
	Save(ctx context.Context, rev *appcfg.Revision) error
	Get(ctx context.Context, id string) (*appcfg.Revision, error)
	// Latest returns the newest revision of documentID.
	Latest(ctx context.Context, documentID string) (*appcfg.Revision, error)
	// List returns the revisions of documentID, newest first.
	List(ctx context.Context, documentID string) ([]*appcfg.Revision, error)
}
