package memory

import "context"

// Collection names shared by every persistence backend.
const (
	TeamsCollection       = "teams"
	SubmissionsCollection = "submissions"
)

// Persister durably stores whole collections (file, Redis, Postgres).
// Save must not return until the write is durable.
type Persister interface {
	Save(ctx context.Context, collection string, v any) error
	// Load decodes the stored collection into v and reports whether one existed.
	Load(ctx context.Context, collection string, v any) (bool, error)
}

// NopPersister keeps nothing; state lives only as long as the process.
type NopPersister struct{}

func (NopPersister) Save(context.Context, string, any) error { return nil }

func (NopPersister) Load(context.Context, string, any) (bool, error) { return false, nil }
