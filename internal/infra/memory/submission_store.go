package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"break-the-query/internal/domain"
	"github.com/google/uuid"
)

// SubmissionStore keeps submissions in memory as the source of truth and
// treats the persister as a write-through snapshot. Each mutation copies the
// collection, persists the copy, and only then swaps it in, all under one
// writer lock, so concurrent appends never lose each other and a failed
// write leaves the store untouched.
type SubmissionStore struct {
	persister Persister
	newID     func() string

	mu    sync.RWMutex
	subs  []domain.Submission
	index map[string]int
	rev   atomic.Uint64
}

// NewSubmissionStore loads previously persisted submissions, starting empty if none exist.
func NewSubmissionStore(ctx context.Context, persister Persister) (*SubmissionStore, error) {
	var subs []domain.Submission
	if _, err := persister.Load(ctx, SubmissionsCollection, &subs); err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	return &SubmissionStore{
		persister: persister,
		newID:     uuid.NewString,
		subs:      subs,
		index:     indexSubmissions(subs),
	}, nil
}

func indexSubmissions(subs []domain.Submission) map[string]int {
	index := make(map[string]int, len(subs))
	for i, sub := range subs {
		index[sub.ID] = i
	}
	return index
}

// Append assigns a fresh id to sub and stores it.
func (s *SubmissionStore) Append(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.ID = s.newID()
	for {
		if _, taken := s.index[sub.ID]; !taken {
			break
		}
		sub.ID = s.newID()
	}

	next := make([]domain.Submission, len(s.subs), len(s.subs)+1)
	copy(next, s.subs)
	next = append(next, sub)
	if err := s.persister.Save(ctx, SubmissionsCollection, next); err != nil {
		return domain.Submission{}, domain.PersistenceError("save submissions", err)
	}

	s.subs = next
	s.index[sub.ID] = len(next) - 1
	s.rev.Add(1)
	return sub, nil
}

func (s *SubmissionStore) FindByID(id string) (domain.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Submission{}, false
	}
	return s.subs[i], true
}

// SetMarks overwrites the marks of one submission. Concurrent calls on the
// same id resolve last-write-wins.
func (s *SubmissionStore) SetMarks(ctx context.Context, id string, marks float64) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}

	next := make([]domain.Submission, len(s.subs))
	copy(next, s.subs)
	next[i].Marks = domain.MarksOf(marks)
	if err := s.persister.Save(ctx, SubmissionsCollection, next); err != nil {
		return domain.Submission{}, domain.PersistenceError("save submissions", err)
	}

	s.subs = next
	s.rev.Add(1)
	return next[i], nil
}

// Clear replaces the whole collection with an empty one.
func (s *SubmissionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := []domain.Submission{}
	if err := s.persister.Save(ctx, SubmissionsCollection, empty); err != nil {
		return domain.PersistenceError("clear submissions", err)
	}
	s.subs = empty
	s.index = make(map[string]int)
	s.rev.Add(1)
	return nil
}

// Revision counts committed mutations. Failed writes leave it unchanged.
func (s *SubmissionStore) Revision() uint64 {
	return s.rev.Load()
}

// List returns every submission in arrival order.
func (s *SubmissionStore) List() []domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, len(s.subs))
	copy(out, s.subs)
	return out
}
