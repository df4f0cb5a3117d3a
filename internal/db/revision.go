package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/soochol/appcfg/internal/appcfg"
)

const revisionColumns = `id, document_id, session_id, version, reason, content, created_at`

// CreateRevision stores a new revision.
func (d *DB) CreateRevision(ctx context.Context, r *appcfg.Revision) error {
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO revisions (`+revisionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.DocumentID, r.SessionID, int64(r.Version), string(r.Reason), r.Content, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// GetRevision retrieves a revision by ID.
func (d *DB) GetRevision(ctx context.Context, id string) (*appcfg.Revision, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM revisions WHERE id = $1`, id,
	)
	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return r, nil
}

// ListRevisions returns the revisions of a document, newest first.
func (d *DB) ListRevisions(ctx context.Context, documentID string) ([]*appcfg.Revision, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+revisionColumns+` FROM revisions
		 WHERE document_id = $1 ORDER BY created_at DESC, version DESC`, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var result []*appcfg.Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(s scanner) (*appcfg.Revision, error) {
	r := &appcfg.Revision{}
	var version int64
	var reason string
	if err := s.Scan(&r.ID, &r.DocumentID, &r.SessionID, &version, &reason, &r.Content, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Version = uint64(version)
	r.Reason = appcfg.RevisionReason(reason)
	return r, nil
}
