package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/document"
	"github.com/soochol/appcfg/internal/yamldoc"
)

const src = `format_version: "13"
workflows:
  build: {}
  test:
    before_run:
      - build
`

func newStore(t *testing.T) *Store {
	t.Helper()
	doc, err := yamldoc.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return New(doc)
}

func TestStore_UpdateCommitsAndNotifies(t *testing.T) {
	s := newStore(t)
	var got []Event
	s.Subscribe(func(e Event) {
		// Handlers see the committed document.
		if s.Document().Has(yamldoc.P("workflows", "build")) {
			t.Errorf("handler saw uncommitted document")
		}
		got = append(got, e)
	})

	if err := s.Update("delete build", document.DeleteWorkflow("build")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.Version() != 1 {
		t.Errorf("version: got %d, want 1", s.Version())
	}
	if len(got) != 1 {
		t.Fatalf("events: got %d, want 1", len(got))
	}
	if got[0].Type != EventUpdated || got[0].Reason != "delete build" || got[0].Version != 1 {
		t.Errorf("event: got %+v", got[0])
	}
	if got[0].SessionID != s.SessionID() || s.SessionID() == "" {
		t.Errorf("session id: got %q, want %q", got[0].SessionID, s.SessionID())
	}
	if !s.IsDirty() {
		t.Error("store should be dirty after update")
	}
}

func TestStore_FailedUpdateLeavesStoreUnchanged(t *testing.T) {
	s := newStore(t)
	calls := 0
	s.Subscribe(func(Event) { calls++ })

	boom := errors.New("boom")
	err := s.Update("half edit", func(d *yamldoc.Document) error {
		d.Delete(yamldoc.P("workflows"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err: got %v, want boom", err)
	}
	if s.Version() != 0 || calls != 0 {
		t.Errorf("version %d calls %d, want 0 0", s.Version(), calls)
	}
	if s.YAML() != src {
		t.Errorf("document changed:\n%s", s.YAML())
	}
}

func TestStore_DocumentIsACopy(t *testing.T) {
	s := newStore(t)
	d := s.Document()
	d.Delete(yamldoc.P("workflows"))
	if !s.Document().Has(yamldoc.P("workflows", "build")) {
		t.Error("editing a returned document changed the store")
	}
}

func TestStore_ReplaceDiscardSave(t *testing.T) {
	s := newStore(t)

	if err := s.Replace("workflows: [unclosed"); err == nil {
		t.Fatal("expected parse error")
	}
	if s.Version() != 0 || s.YAML() != src {
		t.Fatal("failed replace changed the store")
	}

	if err := s.Replace("workflows:\n  other: {}\n"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !s.IsDirty() {
		t.Error("replace should dirty the store")
	}

	s.Discard()
	if s.IsDirty() || s.YAML() != src {
		t.Errorf("discard did not restore saved text:\n%s", s.YAML())
	}

	if err := s.Update("rm", document.DeleteWorkflow("test")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	s.MarkSaved()
	if s.IsDirty() {
		t.Error("store dirty after MarkSaved")
	}
	s.Discard()
	if s.Document().Has(yamldoc.P("workflows", "test")) {
		t.Error("discard went past the last save")
	}
	if s.Version() != 5 {
		t.Errorf("version: got %d, want 5", s.Version())
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New(nil)
	calls := 0
	unsubscribe := s.Subscribe(func(Event) { calls++ })
	s.MarkSaved()
	unsubscribe()
	s.MarkSaved()
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestStore_Channel(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Channel(ctx, 10)

	if err := s.Update("rm", document.DeleteWorkflow("build")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Version != 1 {
			t.Errorf("version: got %d, want 1", ev.Version)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	// Publishing after close must not panic.
	s.MarkSaved()
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := New(nil)
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update("append", document.AppendEnvVar(appcfg.EnvVar{Key: "K", Value: "v"}, appcfg.ScopeProject, ""))
		}()
	}
	wg.Wait()
	if s.Version() != n {
		t.Errorf("version: got %d, want %d", s.Version(), n)
	}
	if got := yamldoc.Len(s.Document().Get(yamldoc.P("app", "envs"))); got != n {
		t.Errorf("envs: got %d, want %d", got, n)
	}
}

func TestStore_MarkSavedAtKeepsLaterEdits(t *testing.T) {
	s := newStore(t)
	if err := s.Update("rm build", document.DeleteWorkflow("build")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	snap, _ := s.Snapshot()
	if err := s.Update("rm test", document.DeleteWorkflow("test")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	s.MarkSavedAt(snap)
	if !s.IsDirty() {
		t.Error("edits after the snapshot should keep the store dirty")
	}
	s.Discard()
	d := s.Document()
	if d.Has(yamldoc.P("workflows", "build")) || !d.Has(yamldoc.P("workflows", "test")) {
		t.Errorf("discard should return to the snapshot:\n%s", s.YAML())
	}
}
