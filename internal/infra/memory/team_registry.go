package memory

import (
	"context"
	"fmt"
	"sync"

	"break-the-query/internal/domain"
)

// TeamRegistry is the authoritative in-memory registry. Every registration is
// written through to the persister before it becomes visible.
type TeamRegistry struct {
	persister Persister

	mu    sync.RWMutex
	teams []domain.Team
	byID  map[string]int
}

// NewTeamRegistry loads previously persisted teams, starting empty if none exist.
func NewTeamRegistry(ctx context.Context, persister Persister) (*TeamRegistry, error) {
	var teams []domain.Team
	if _, err := persister.Load(ctx, TeamsCollection, &teams); err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}

	r := &TeamRegistry{
		persister: persister,
		teams:     make([]domain.Team, 0, len(teams)),
		byID:      make(map[string]int, len(teams)),
	}
	for _, team := range teams {
		if _, dup := r.byID[team.ID]; dup {
			continue
		}
		r.byID[team.ID] = len(r.teams)
		r.teams = append(r.teams, team)
	}
	return r, nil
}

func (r *TeamRegistry) Register(ctx context.Context, team domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[team.ID]; ok {
		return domain.ErrDuplicateTeam
	}

	next := make([]domain.Team, len(r.teams), len(r.teams)+1)
	copy(next, r.teams)
	next = append(next, team)
	if err := r.persister.Save(ctx, TeamsCollection, next); err != nil {
		return domain.PersistenceError("save teams", err)
	}

	r.teams = next
	r.byID[team.ID] = len(next) - 1
	return nil
}

func (r *TeamRegistry) Lookup(teamID string) (domain.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[teamID]
	if !ok {
		return domain.Team{}, false
	}
	return r.teams[i], true
}

// List returns teams in registration order.
func (r *TeamRegistry) List() []domain.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Team, len(r.teams))
	copy(out, r.teams)
	return out
}
