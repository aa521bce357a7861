package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// mapPersister round-trips collections through JSON like the real backends.
type mapPersister struct {
	mu       sync.Mutex
	data     map[string][]byte
	saves    map[string]int
	failWith error
}

func newMapPersister() *mapPersister {
	return &mapPersister{data: map[string][]byte{}, saves: map[string]int{}}
}

func (p *mapPersister) Save(_ context.Context, collection string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.data[collection] = raw
	p.saves[collection]++
	return nil
}

func (p *mapPersister) Load(_ context.Context, collection string, v any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	raw, ok := p.data[collection]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}
