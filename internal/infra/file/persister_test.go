package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"break-the-query/internal/domain"
	"break-the-query/internal/infra/memory"
)

func TestPersisterLoadMissingCollection(t *testing.T) {
	p, err := NewPersister(t.TempDir())
	if err != nil {
		t.Fatalf("new persister: %v", err)
	}
	var teams []domain.Team
	found, err := p.Load(context.Background(), memory.TeamsCollection, &teams)
	if err != nil || found {
		t.Fatalf("expected empty load, got found=%v err=%v", found, err)
	}
}

func TestPersisterRewritesWholeCollection(t *testing.T) {
	dir := t.TempDir()
	p, _ := NewPersister(dir)
	ctx := context.Background()

	subs := []domain.Submission{
		{ID: "a", TeamID: "T1", Answer: json.RawMessage(`"x"`)},
		{ID: "b", TeamID: "T2", Answer: json.RawMessage(`"y"`), Marks: domain.MarksOf(40)},
	}
	if err := p.Save(ctx, memory.SubmissionsCollection, subs); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := p.Save(ctx, memory.SubmissionsCollection, subs[1:]); err != nil {
		t.Fatalf("save again: %v", err)
	}

	var got []domain.Submission
	found, err := p.Load(ctx, memory.SubmissionsCollection, &got)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only the latest snapshot, got %+v", got)
	}
	if v, ok := got[0].Marks.Value(); !ok || v != 40 {
		t.Fatalf("marks lost: %v %v", v, ok)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestPersisterBacksMemoryStores(t *testing.T) {
	dir := t.TempDir()
	p, _ := NewPersister(dir)
	ctx := context.Background()

	registry, err := memory.NewTeamRegistry(ctx, p)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := registry.Register(ctx, domain.Team{ID: "T1", Name: "Outlaws"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A fresh process sees the registration.
	p2, _ := NewPersister(dir)
	reloaded, err := memory.NewTeamRegistry(ctx, p2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Lookup("T1"); !ok {
		t.Fatalf("expected persisted team")
	}
}

func TestPersisterSyncsDirectoryAfterRename(t *testing.T) {
	dir := t.TempDir()
	p, _ := NewPersister(dir)
	if err := p.syncDir(); err != nil {
		t.Fatalf("sync dir: %v", err)
	}
	if err := p.Save(context.Background(), memory.TeamsCollection, []domain.Team{{ID: "T1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	gone := &Persister{dir: filepath.Join(dir, "missing")}
	if err := gone.syncDir(); err == nil {
		t.Fatalf("expected an error syncing a missing directory")
	}
}
