package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/soochol/appcfg/internal/appcfg"
)

// AutosaveService periodically records unsaved edits as autosave revisions.
// It never writes the config file.
type AutosaveService struct {
	docs *DocumentService
	cron *cron.Cron

	mu          sync.Mutex
	lastVersion uint64
}

// NewAutosaveService creates an AutosaveService for docs.
func NewAutosaveService(docs *DocumentService) *AutosaveService {
	return &AutosaveService{
		docs: docs,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
	}
}

// Start schedules snapshots with a cron spec such as "@every 1m" or
// "*/30 * * * * *", and starts the scheduler.
func (s *AutosaveService) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			slog.Warn("autosave: snapshot failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("autosave schedule %q: %w", spec, err)
	}
	s.cron.Start()
	slog.Info("autosave: started", "schedule", spec)
	return nil
}

// Stop waits for a running snapshot and stops the scheduler.
func (s *AutosaveService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("autosave: stopped")
}

// RunOnce records a snapshot when the store is dirty and has changed since
// the previous snapshot. It returns nil when nothing was recorded.
func (s *AutosaveService) RunOnce(ctx context.Context) (*appcfg.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.docs.Store()
	if !st.IsDirty() {
		return nil, nil
	}
	doc, version := st.Snapshot()
	if version == s.lastVersion {
		return nil, nil
	}
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	rev := s.docs.newRevision(appcfg.RevisionAutosave, version, string(data))
	if err := s.docs.revisions.Save(ctx, rev); err != nil {
		return nil, fmt.Errorf("save autosave revision: %w", err)
	}
	s.lastVersion = version
	slog.Debug("autosave: recorded snapshot", "version", version, "revision", rev.ID)
	return rev, nil
}
