package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
)

// MemoryStore keeps documents in process memory. It backs local development
// and the test suites.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]interface{})}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Snapshot{ID: id, Data: copyData(doc)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(collection, id, copyData(data))
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := ulid.Make().String()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Snapshot
	for id, doc := range s.collections[q.Collection] {
		if matches(doc, q.Filters) {
			out = append(out, &Snapshot{ID: id, Data: copyData(doc)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a := fmt.Sprint(out[i].Data[q.OrderBy])
			b := fmt.Sprint(out[j].Data[q.OrderBy])
			if a != b {
				if q.Direction == Desc {
					return a > b
				}
				return a < b
			}
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Batch() Batch {
	return newOpBatch(s.commit)
}

func (s *MemoryStore) Close() error {
	return nil
}

// commit stages every op against a view of the touched documents and only
// applies the result once all of them succeeded
func (s *MemoryStore) commit(ctx context.Context, ops []Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ collection, id string }
	staged := make(map[key]map[string]interface{})
	lookup := func(k key) (map[string]interface{}, bool) {
		if doc, ok := staged[k]; ok {
			return doc, doc != nil
		}
		doc, ok := s.collections[k.collection][k.id]
		if !ok {
			return nil, false
		}
		return copyData(doc), true
	}

	for _, op := range ops {
		k := key{op.Collection, op.ID}
		switch op.Kind {
		case OpSet:
			staged[k] = copyData(op.Data)
		case OpUpdate:
			doc, ok := lookup(k)
			if !ok {
				return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
			for f, v := range op.Data {
				doc[f] = v
			}
			staged[k] = doc
		case OpDelete:
			staged[k] = nil
		}
	}

	for k, doc := range staged {
		if doc == nil {
			delete(s.collections[k.collection], k.id)
			continue
		}
		s.put(k.collection, k.id, doc)
	}
	return nil
}

func (s *MemoryStore) put(collection, id string, doc map[string]interface{}) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]interface{})
		s.collections[collection] = docs
	}
	docs[id] = doc
}

func matches(doc map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field].(string)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}
