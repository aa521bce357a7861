package app

import (
	"sync"
	"sync/atomic"
	"time"

	"break-the-query/internal/domain"
)

// sessionState is an immutable snapshot. Writers build a new one and swap the
// pointer, so a reader never sees a new round paired with an old leaderboard flag.
type sessionState struct {
	round              *domain.Round
	leaderboardVisible bool
	leaderboardRound   string
}

// Session holds the active round and leaderboard visibility for the event.
type Session struct {
	now   func() time.Time
	mu    sync.Mutex // serialises writers
	state atomic.Pointer[sessionState]
}

// NewSession returns an idle session using the wall clock.
func NewSession() *Session {
	return NewSessionWithClock(time.Now)
}

// NewSessionWithClock is used by tests that need deterministic timestamps.
func NewSessionWithClock(now func() time.Time) *Session {
	s := &Session{now: now}
	s.state.Store(&sessionState{})
	return s
}

func (s *Session) load() *sessionState {
	return s.state.Load()
}

// StartRound replaces the active round wholesale and hides the leaderboard.
func (s *Session) StartRound(text, schema string, duration time.Duration, label string) (domain.Round, error) {
	if duration <= 0 {
		return domain.Round{}, domain.Invalid("duration", "must be a positive number of seconds")
	}
	if label == "" {
		label = domain.DefaultRoundLabel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	round := &domain.Round{
		Text:      text,
		Schema:    schema,
		Duration:  duration,
		StartedAt: s.now(),
		Label:     label,
	}
	s.state.Store(&sessionState{round: round})
	return *round, nil
}

// ShowLeaderboard reveals the leaderboard for label, or for the active round
// when label is empty. It returns the round that will be projected.
func (s *Session) ShowLeaderboard(label string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load()
	if label == "" && cur.round != nil {
		label = cur.round.Label
	}
	s.state.Store(&sessionState{
		round:              cur.round,
		leaderboardVisible: true,
		leaderboardRound:   label,
	})
	return label
}

// HideLeaderboard returns students to the question view.
func (s *Session) HideLeaderboard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load()
	s.state.Store(&sessionState{round: cur.round})
}

// ActiveRound returns a copy of the current round, if one was started.
func (s *Session) ActiveRound() (domain.Round, bool) {
	cur := s.load()
	if cur.round == nil {
		return domain.Round{}, false
	}
	return *cur.round, true
}

// WithinSubmissionWindow reports whether a round exists and now is inside its window.
func (s *Session) WithinSubmissionWindow(now time.Time) bool {
	round, ok := s.ActiveRound()
	return ok && round.Open(now)
}

// LeaderboardVisible reports the visibility flag and the round it applies to.
func (s *Session) LeaderboardVisible() (bool, string) {
	cur := s.load()
	return cur.leaderboardVisible, cur.leaderboardRound
}

// View builds the student-facing view at now without the leaderboard rows.
func (s *Session) View(now time.Time) domain.PublicView {
	cur := s.load()
	switch {
	case cur.leaderboardVisible:
		return domain.PublicView{LeaderboardVisible: true, Round: cur.leaderboardRound}
	case cur.round == nil:
		return domain.PublicView{}
	default:
		return domain.PublicView{
			Active:           true,
			Text:             cur.round.Text,
			Schema:           cur.round.Schema,
			RemainingSeconds: cur.round.RemainingSeconds(now),
			Round:            cur.round.Label,
		}
	}
}
