package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"break-the-query/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestSubmissionStoreConcurrentAppendsAreAllKept(t *testing.T) {
	ctx := context.Background()
	persister := newMapPersister()
	store, err := NewSubmissionStore(ctx, persister)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	const n = 64
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := store.Append(ctx, domain.Submission{
				TeamID: fmt.Sprintf("team-%d", i),
				Answer: json.RawMessage(`"SELECT 1"`),
				Round:  "round1",
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("append: %v", err)
	}

	if got := len(store.List()); got != n {
		t.Fatalf("expected %d submissions, got %d", n, got)
	}

	// The durable snapshot must hold every write too.
	reloaded, err := NewSubmissionStore(ctx, persister)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(reloaded.List()); got != n {
		t.Fatalf("expected %d persisted submissions, got %d", n, got)
	}

	seen := map[string]bool{}
	for _, sub := range store.List() {
		if seen[sub.ID] {
			t.Fatalf("duplicate id %s", sub.ID)
		}
		seen[sub.ID] = true
	}
}

func TestSubmissionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := NewSubmissionStore(ctx, NopPersister{})
	at := time.Date(2026, 3, 14, 9, 0, 12, 0, time.UTC)

	stored, err := store.Append(ctx, domain.Submission{
		TeamID:           "T1",
		TeamName:         "Outlaws",
		LeaderName:       "Ana",
		College:          "MIT",
		Answer:           json.RawMessage(`{"query":"SELECT *"}`),
		Round:            "round2",
		SubmittedAt:      at,
		TimeTakenSeconds: 12,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored.ID == "" {
		t.Fatalf("expected generated id")
	}

	list := store.List()
	if len(list) != 1 {
		t.Fatalf("expected one submission, got %d", len(list))
	}
	got := list[0]
	if got.ID != stored.ID || got.TeamID != "T1" || got.TeamName != "Outlaws" || got.LeaderName != "Ana" ||
		got.College != "MIT" || string(got.Answer) != `{"query":"SELECT *"}` || got.Round != "round2" ||
		!got.SubmittedAt.Equal(at) || got.TimeTakenSeconds != 12 || got.Marks.IsSet() {
		t.Fatalf("round trip changed submission: %+v", got)
	}

	for i := 0; i < 3; i++ {
		again, ok := store.FindByID(stored.ID)
		if !ok || again.ID != stored.ID {
			t.Fatalf("lookup %d failed", i)
		}
	}
}

func TestSubmissionStoreSetMarks(t *testing.T) {
	ctx := context.Background()
	store, _ := NewSubmissionStore(ctx, NopPersister{})
	stored, _ := store.Append(ctx, domain.Submission{TeamID: "T1", Round: "round1"})

	updated, err := store.SetMarks(ctx, stored.ID, 0)
	if err != nil {
		t.Fatalf("set marks: %v", err)
	}
	if v, ok := updated.Marks.Value(); !ok || v != 0 {
		t.Fatalf("expected zero marks to be set, got %v %v", v, ok)
	}

	if _, err := store.SetMarks(ctx, stored.ID, 75); err != nil {
		t.Fatalf("set marks again: %v", err)
	}
	got, _ := store.FindByID(stored.ID)
	if v, _ := got.Marks.Value(); v != 75 {
		t.Fatalf("expected last write to win, got %v", v)
	}
}

func TestSubmissionStoreSetMarksUnknownID(t *testing.T) {
	ctx := context.Background()
	persister := newMapPersister()
	store, _ := NewSubmissionStore(ctx, persister)
	_, _ = store.Append(ctx, domain.Submission{TeamID: "T1"})
	before := persister.saves[SubmissionsCollection]

	_, err := store.SetMarks(ctx, "missing", 10)
	if !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if persister.saves[SubmissionsCollection] != before {
		t.Fatalf("store written on failed update")
	}
	if store.List()[0].Marks.IsSet() {
		t.Fatalf("marks changed on failed update")
	}
}

func TestSubmissionStoreClear(t *testing.T) {
	ctx := context.Background()
	persister := newMapPersister()
	store, _ := NewSubmissionStore(ctx, persister)
	first, _ := store.Append(ctx, domain.Submission{TeamID: "T1"})
	_, _ = store.Append(ctx, domain.Submission{TeamID: "T2"})

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatalf("expected empty store")
	}
	if _, ok := store.FindByID(first.ID); ok {
		t.Fatalf("cleared submission still indexed")
	}

	reloaded, _ := NewSubmissionStore(ctx, persister)
	if len(reloaded.List()) != 0 {
		t.Fatalf("expected empty persisted collection")
	}
}

func TestSubmissionStorePersistenceFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	persister := newMapPersister()
	store, _ := NewSubmissionStore(ctx, persister)
	stored, _ := store.Append(ctx, domain.Submission{TeamID: "T1"})

	persister.failWith = errors.New("disk full")

	if _, err := store.Append(ctx, domain.Submission{TeamID: "T2"}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure on append, got %v", err)
	}
	if _, err := store.SetMarks(ctx, stored.ID, 50); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure on set marks, got %v", err)
	}
	if err := store.Clear(ctx); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure on clear, got %v", err)
	}

	list := store.List()
	if len(list) != 1 || list[0].Marks.IsSet() {
		t.Fatalf("failed writes leaked into memory: %+v", list)
	}
}

func TestSubmissionStoreRegeneratesCollidingIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := NewSubmissionStore(ctx, NopPersister{})
	ids := []string{"dup", "dup", "fresh"}
	store.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	a, _ := store.Append(ctx, domain.Submission{TeamID: "T1"})
	b, _ := store.Append(ctx, domain.Submission{TeamID: "T2"})
	if a.ID != "dup" || b.ID != "fresh" {
		t.Fatalf("expected collision to be skipped, got %q and %q", a.ID, b.ID)
	}
}

func TestSubmissionStoreRevisionTracksCommittedWrites(t *testing.T) {
	ctx := context.Background()
	persister := newMapPersister()
	store, _ := NewSubmissionStore(ctx, persister)

	rev := store.Revision()
	stored, _ := store.Append(ctx, domain.Submission{TeamID: "T1"})
	if store.Revision() == rev {
		t.Fatalf("append did not bump revision")
	}
	rev = store.Revision()
	_, _ = store.SetMarks(ctx, stored.ID, 10)
	if store.Revision() == rev {
		t.Fatalf("set marks did not bump revision")
	}
	rev = store.Revision()
	_ = store.Clear(ctx)
	if store.Revision() == rev {
		t.Fatalf("clear did not bump revision")
	}

	rev = store.Revision()
	_, _ = store.SetMarks(ctx, "missing", 1)
	persister.failWith = errors.New("disk full")
	_, _ = store.Append(ctx, domain.Submission{TeamID: "T2"})
	if store.Revision() != rev {
		t.Fatalf("failed writes bumped revision")
	}
}
