package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Persister keeps each collection as one JSON string value.
// Keys are: {prefix}:{collection}, e.g. contest:submissions
// Values never expire; Redis persistence (AOF/RDB) provides durability.
type Persister struct {
	client *redis.Client
	prefix string
}

func NewPersister(client *redis.Client, prefix string) *Persister {
	if prefix == "" {
		prefix = "contest"
	}
	return &Persister{client: client, prefix: prefix}
}

func (p *Persister) key(collection string) string {
	return p.prefix + ":" + collection
}

func (p *Persister) Save(ctx context.Context, collection string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	if err := p.client.Set(ctx, p.key(collection), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", collection, err)
	}
	return nil
}

func (p *Persister) Load(ctx context.Context, collection string, v any) (bool, error) {
	data, err := p.client.Get(ctx, p.key(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", collection, err)
	}
	return true, nil
}
