package app

import (
	"sort"
	"strconv"

	"break-the-query/internal/domain"
	"golang.org/x/sync/singleflight"
)

// SubmissionLister is the read side the projector needs. Revision must
// change after every committed mutation.
type SubmissionLister interface {
	List() []domain.Submission
	Revision() uint64
}

// Projector ranks a round's marked submissions. Nothing is cached between
// calls. Concurrent callers share one in-flight pass only when they observed
// the same store revision, so a pass that started before a write is never
// handed to a caller that arrived after it.
type Projector struct {
	source SubmissionLister
	sf     singleflight.Group
}

func NewProjector(source SubmissionLister) *Projector {
	return &Projector{source: source}
}

// Project returns the ranked leaderboard for round.
func (p *Projector) Project(round string) domain.Leaderboard {
	key := strconv.FormatUint(p.source.Revision(), 10) + "@" + round
	result, _, _ := p.sf.Do(key, func() (interface{}, error) {
		return rank(round, p.source.List()), nil
	})
	shared := result.([]domain.LeaderboardEntry)

	// Callers get their own slice; the shared one may be handed to others.
	entries := make([]domain.LeaderboardEntry, len(shared))
	copy(entries, shared)
	return domain.Leaderboard{Round: round, Entries: entries}
}

type rankedSubmission struct {
	sub   domain.Submission
	marks float64
}

func rank(round string, submissions []domain.Submission) []domain.LeaderboardEntry {
	candidates := make([]rankedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.Round != round {
			continue
		}
		marks, ok := sub.Marks.Value()
		if !ok {
			continue
		}
		candidates = append(candidates, rankedSubmission{sub: sub, marks: marks})
	}

	// Marks desc, then earliest submission, then id for a total order.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.marks != b.marks {
			return a.marks > b.marks
		}
		if !a.sub.SubmittedAt.Equal(b.sub.SubmittedAt) {
			return a.sub.SubmittedAt.Before(b.sub.SubmittedAt)
		}
		return a.sub.ID < b.sub.ID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(candidates))
	for i, c := range candidates {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:             i + 1,
			TeamID:           c.sub.TeamID,
			TeamName:         c.sub.TeamName,
			LeaderName:       c.sub.LeaderName,
			College:          c.sub.College,
			Marks:            c.marks,
			TimeTakenSeconds: c.sub.TimeTakenSeconds,
		})
	}
	return entries
}
