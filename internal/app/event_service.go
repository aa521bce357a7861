package app

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"break-the-query/internal/domain"
	"go.uber.org/zap"
)

// TeamRegistry abstracts where registered teams live (memory with a file,
// Redis or Postgres snapshot behind it).
type TeamRegistry interface {
	Register(ctx context.Context, team domain.Team) error
	Lookup(teamID string) (domain.Team, bool)
	List() []domain.Team
}

// SubmissionStore holds accepted answers. Implementations must be safe for
// concurrent use and persist every mutation before returning.
type SubmissionStore interface {
	Append(ctx context.Context, sub domain.Submission) (domain.Submission, error)
	FindByID(id string) (domain.Submission, bool)
	SetMarks(ctx context.Context, id string, marks float64) (domain.Submission, error)
	Clear(ctx context.Context) error
	List() []domain.Submission
	// Revision increases after every committed mutation.
	Revision() uint64
}

// EventService contains the contest use cases: round control, submissions,
// judging and the leaderboard.
type EventService struct {
	session      *Session
	teams        TeamRegistry
	submissions  SubmissionStore
	projector    *Projector
	marks        domain.MarksPolicy
	defaultRound string
	now          func() time.Time
	log          *zap.Logger
}

// Option customises an EventService.
type Option func(*EventService)

// WithClock replaces the wall clock; tests use it to move through a round's window.
func WithClock(now func() time.Time) Option {
	return func(s *EventService) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *EventService) { s.log = log }
}

// WithMarksPolicy bounds the marks a judge may assign.
func WithMarksPolicy(p domain.MarksPolicy) Option {
	return func(s *EventService) { s.marks = p }
}

// WithDefaultRound sets the label used when a round is started without one.
func WithDefaultRound(label string) Option {
	return func(s *EventService) {
		if label != "" {
			s.defaultRound = label
		}
	}
}

func NewEventService(teams TeamRegistry, submissions SubmissionStore, opts ...Option) *EventService {
	s := &EventService{
		teams:        teams,
		submissions:  submissions,
		projector:    NewProjector(submissions),
		defaultRound: domain.DefaultRoundLabel,
		now:          time.Now,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.session = NewSessionWithClock(s.now)
	return s
}

// StartRoundInput carries the coordinator's round parameters.
type StartRoundInput struct {
	Text            string
	Schema          string
	DurationSeconds float64
	Label           string
}

// StartRound opens a new round, replacing any previous one and hiding the leaderboard.
func (s *EventService) StartRound(_ context.Context, in StartRoundInput) (domain.Round, error) {
	if math.IsNaN(in.DurationSeconds) || math.IsInf(in.DurationSeconds, 0) || in.DurationSeconds <= 0 {
		return domain.Round{}, domain.Invalid("duration", "must be a positive number of seconds")
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = s.defaultRound
	}

	duration := time.Duration(in.DurationSeconds * float64(time.Second))
	round, err := s.session.StartRound(in.Text, in.Schema, duration, label)
	if err != nil {
		return domain.Round{}, err
	}
	s.log.Info("round started",
		zap.String("round", round.Label),
		zap.Duration("duration", round.Duration),
		zap.Time("startedAt", round.StartedAt))
	return round, nil
}

// ClearSubmissions empties the submission store for a fresh slate.
func (s *EventService) ClearSubmissions(ctx context.Context) error {
	if err := s.submissions.Clear(ctx); err != nil {
		return err
	}
	s.log.Info("submissions cleared")
	return nil
}

// ShowLeaderboard reveals the leaderboard and returns the round it shows.
func (s *EventService) ShowLeaderboard(_ context.Context, round string) string {
	resolved := s.session.ShowLeaderboard(strings.TrimSpace(round))
	s.log.Info("leaderboard shown", zap.String("round", resolved))
	return resolved
}

func (s *EventService) HideLeaderboard(_ context.Context) {
	s.session.HideLeaderboard()
	s.log.Info("leaderboard hidden")
}

// Poll returns the public view. When the leaderboard is revealed the view
// carries the ranked entries of the revealed round.
func (s *EventService) Poll(_ context.Context) domain.PublicView {
	view := s.session.View(s.now())
	if view.LeaderboardVisible {
		lb := s.projector.Project(view.Round)
		view.Leaderboard = &lb
	}
	return view
}

// Submit runs the admission check and records the answer. Teams may submit
// more than once per round.
func (s *EventService) Submit(ctx context.Context, teamID string, answer json.RawMessage) (domain.Submission, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return domain.Submission{}, domain.Invalid("teamId", "is required")
	}
	answer = bytes.TrimSpace(answer)
	if len(answer) == 0 || bytes.Equal(answer, []byte("null")) {
		return domain.Submission{}, domain.Invalid("answer", "is required")
	}

	// One snapshot drives the whole check so a concurrent StartRound cannot
	// mix the window of one round with the label of another.
	round, ok := s.session.ActiveRound()
	if !ok {
		return domain.Submission{}, domain.ErrNoActiveRound
	}
	now := s.now()
	if !round.Open(now) {
		return domain.Submission{}, domain.ErrWindowClosed
	}
	team, ok := s.teams.Lookup(teamID)
	if !ok {
		return domain.Submission{}, domain.ErrUnknownTeam
	}

	stored, err := s.submissions.Append(ctx, domain.Submission{
		TeamID:           team.ID,
		TeamName:         team.Name,
		LeaderName:       team.LeaderName,
		College:          team.College,
		Answer:           append(json.RawMessage(nil), answer...),
		Round:            round.Label,
		SubmittedAt:      now,
		TimeTakenSeconds: round.Elapsed(now).Seconds(),
	})
	if err != nil {
		return domain.Submission{}, err
	}
	s.log.Debug("submission accepted",
		zap.String("id", stored.ID),
		zap.String("team", stored.TeamID),
		zap.String("round", stored.Round))
	return stored, nil
}

// Submissions returns every stored submission in arrival order.
func (s *EventService) Submissions(_ context.Context) []domain.Submission {
	return s.submissions.List()
}

// Submission looks up one submission by id.
func (s *EventService) Submission(_ context.Context, id string) (domain.Submission, error) {
	sub, ok := s.submissions.FindByID(id)
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

// SetMarks records a judge's marks for a submission.
func (s *EventService) SetMarks(ctx context.Context, id string, marks float64) (domain.Submission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Submission{}, domain.Invalid("id", "is required")
	}
	if math.IsNaN(marks) || math.IsInf(marks, 0) {
		return domain.Submission{}, domain.Invalid("marks", "must be finite")
	}
	if err := s.marks.Check(marks); err != nil {
		return domain.Submission{}, err
	}
	return s.submissions.SetMarks(ctx, id, marks)
}

// RegisterTeam adds a team to the registry.
func (s *EventService) RegisterTeam(ctx context.Context, team domain.Team) error {
	team.ID = strings.TrimSpace(team.ID)
	team.Name = strings.TrimSpace(team.Name)
	if team.ID == "" {
		return domain.Invalid("teamId", "is required")
	}
	if team.Name == "" {
		return domain.Invalid("teamName", "is required")
	}
	if err := s.teams.Register(ctx, team); err != nil {
		return err
	}
	s.log.Info("team registered", zap.String("team", team.ID))
	return nil
}

// Teams lists registered teams in registration order.
func (s *EventService) Teams(_ context.Context) []domain.Team {
	return s.teams.List()
}

// Leaderboard projects the ranking for round, defaulting to the active round.
func (s *EventService) Leaderboard(_ context.Context, round string) (domain.Leaderboard, error) {
	round = strings.TrimSpace(round)
	if round == "" {
		active, ok := s.session.ActiveRound()
		if !ok {
			return domain.Leaderboard{}, domain.Invalid("round", "is required when no round is active")
		}
		round = active.Label
	}
	return s.projector.Project(round), nil
}
