package domain

import (
	"encoding/json"
	"time"
)

// DefaultRoundLabel is used when a round is started without a label.
const DefaultRoundLabel = "round1"

// Team is a registered participant unit. Teams are immutable once registered.
type Team struct {
	ID         string `json:"teamId"`
	Name       string `json:"teamName"`
	LeaderName string `json:"leader"`
	College    string `json:"college"`
}

// Round describes the single active question and its submission window.
type Round struct {
	Text      string
	Schema    string
	Duration  time.Duration
	StartedAt time.Time
	Label     string
}

// Elapsed returns how long the round has been running at now. A clock that
// reads earlier than the start counts as zero.
func (r Round) Elapsed(now time.Time) time.Duration {
	if d := now.Sub(r.StartedAt); d > 0 {
		return d
	}
	return 0
}

// Open reports whether a submission at now falls inside the window.
func (r Round) Open(now time.Time) bool {
	return r.Elapsed(now) <= r.Duration
}

// RemainingSeconds is the time left rounded up to whole seconds, never
// negative. It stays positive for as long as the window is open, except at
// the deadline instant itself.
func (r Round) RemainingSeconds(now time.Time) int64 {
	left := r.Duration - r.Elapsed(now)
	if left <= 0 {
		return 0
	}
	return int64((left + time.Second - 1) / time.Second)
}

// Submission is one accepted answer. Marks is the only field that changes after creation.
type Submission struct {
	ID               string          `json:"id"`
	TeamID           string          `json:"teamId"`
	TeamName         string          `json:"teamName"`
	LeaderName       string          `json:"leader"`
	College          string          `json:"college"`
	Answer           json.RawMessage `json:"answer"`
	Round            string          `json:"round"`
	SubmittedAt      time.Time       `json:"submittedAt"`
	TimeTakenSeconds float64         `json:"timeTakenSeconds"`
	Marks            Marks           `json:"marks"`
}

// LeaderboardEntry is one ranked row of a round's projection.
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	TeamID           string  `json:"teamId"`
	TeamName         string  `json:"teamName"`
	LeaderName       string  `json:"leader"`
	College          string  `json:"college"`
	Marks            float64 `json:"marks"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
}

// Leaderboard is the ranked projection for one round.
type Leaderboard struct {
	Round   string             `json:"round"`
	Entries []LeaderboardEntry `json:"entries"`
}

// PublicView is what students see when polling. Exactly one of the three
// shapes is encoded: leaderboard shown, no round, or an active round.
type PublicView struct {
	LeaderboardVisible bool
	Active             bool
	Text               string
	Schema             string
	RemainingSeconds   int64
	Round              string
	Leaderboard        *Leaderboard
}

func (v PublicView) MarshalJSON() ([]byte, error) {
	switch {
	case v.LeaderboardVisible:
		var entries []LeaderboardEntry
		if v.Leaderboard != nil {
			entries = v.Leaderboard.Entries
		}
		if entries == nil {
			entries = []LeaderboardEntry{}
		}
		return json.Marshal(struct {
			Leaderboard bool               `json:"leaderboard"`
			Round       string             `json:"round"`
			Entries     []LeaderboardEntry `json:"entries"`
		}{true, v.Round, entries})
	case !v.Active:
		return []byte(`{"active":false}`), nil
	default:
		return json.Marshal(struct {
			Active    bool   `json:"active"`
			Text      string `json:"text"`
			Schema    string `json:"schema"`
			Remaining int64  `json:"remaining"`
			Round     string `json:"round"`
		}{true, v.Text, v.Schema, v.RemainingSeconds, v.Round})
	}
}
