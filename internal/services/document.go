package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/dag"
	"github.com/soochol/appcfg/internal/document"
	"github.com/soochol/appcfg/internal/repository"
	"github.com/soochol/appcfg/internal/schema"
	"github.com/soochol/appcfg/internal/store"
	"github.com/soochol/appcfg/internal/yamldoc"
)

// ValidationError is returned by Save when the document has problems.
type ValidationError struct {
	Problems []schema.Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "document is invalid: " + strings.Join(msgs, "; ")
}

// DocumentService ties the in-memory store to the config file on disk and
// records a revision for every save.
type DocumentService struct {
	store       *store.Store
	revisions   repository.RevisionRepository
	path        string
	schemaCheck bool

	mu  sync.Mutex // serializes file writes
	now func() time.Time
}

// NewDocumentService creates a service editing the file at path. With
// schemaCheck set, Save refuses documents that fail Validate.
func NewDocumentService(st *store.Store, revisions repository.RevisionRepository, path string, schemaCheck bool) *DocumentService {
	return &DocumentService{
		store:       st,
		revisions:   revisions,
		path:        path,
		schemaCheck: schemaCheck,
		now:         time.Now,
	}
}

// Store returns the underlying document store.
func (s *DocumentService) Store() *store.Store { return s.store }

// Path returns the edited file path, which is also the revision document id.
func (s *DocumentService) Path() string { return s.path }

// Open reads the config file into the store. A missing file starts an empty
// document that the first Save creates.
func (s *DocumentService) Open() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, starting empty document", "path", s.path)
		s.store.Load(yamldoc.New())
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := yamldoc.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.store.Load(doc)
	slog.Info("config file opened", "path", s.path, "bytes", len(data))
	return nil
}

// Update applies fn through the store.
func (s *DocumentService) Update(reason string, fn document.Mutator) error {
	return s.store.Update(reason, fn)
}

// Replace swaps in a whole new document text.
func (s *DocumentService) Replace(text string) error {
	return s.store.Replace(text)
}

// Discard drops unsaved edits.
func (s *DocumentService) Discard() {
	s.store.Discard()
}

// Save writes the current document to the config file, records a revision
// and marks the store saved.
func (s *DocumentService) Save(ctx context.Context) (*appcfg.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, version := s.store.Snapshot()
	if s.schemaCheck {
		problems, err := Validate(doc)
		if err != nil {
			return nil, err
		}
		if len(problems) > 0 {
			return nil, &ValidationError{Problems: problems}
		}
	}
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, err
	}

	rev := s.newRevision(appcfg.RevisionSave, version, string(data))
	if err := s.revisions.Save(ctx, rev); err != nil {
		slog.Warn("record revision failed", "path", s.path, "err", err)
	}
	s.store.MarkSavedAt(doc)
	slog.Info("config file saved", "path", s.path, "version", version, "revision", rev.ID)
	return rev, nil
}

// Revisions lists the recorded revisions of the file, newest first.
func (s *DocumentService) Revisions(ctx context.Context) ([]*appcfg.Revision, error) {
	return s.revisions.List(ctx, s.path)
}

// Validate checks the current document.
func (s *DocumentService) Validate() ([]schema.Problem, error) {
	return Validate(s.store.Document())
}

func (s *DocumentService) newRevision(reason appcfg.RevisionReason, version uint64, content string) *appcfg.Revision {
	return &appcfg.Revision{
		ID:         uuid.NewString(),
		DocumentID: s.path,
		SessionID:  s.store.SessionID(),
		Version:    version,
		Reason:     reason,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
}

// Validate checks doc against the schema and then checks that workflow
// chains only name existing workflows and contain no cycles.
func Validate(doc *yamldoc.Document) ([]schema.Problem, error) {
	problems, err := schema.Validate(doc)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return problems, nil
	}

	cfg, err := appcfg.FromDocument(doc)
	if err != nil {
		return []schema.Problem{{Field: "(root)", Message: err.Error()}}, nil
	}
	for _, id := range cfg.Workflows.Keys() {
		wf, _ := cfg.Workflows.Get(id)
		for _, p := range appcfg.Placements {
			for _, ref := range wf.Chain(p) {
				if !cfg.Workflows.Has(ref) {
					problems = append(problems, schema.Problem{
						Field:   fmt.Sprintf("workflows.%s.%s", id, p),
						Message: fmt.Sprintf("Workflow '%s' not found", ref),
					})
				}
			}
		}
	}
	if err := dag.HasCycle(&cfg.Workflows); err != nil {
		problems = append(problems, schema.Problem{Field: appcfg.KeyWorkflows, Message: err.Error()})
	}
	return problems, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
