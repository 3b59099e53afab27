// Package docstore is the document store client: path-addressed documents
// grouped in flat collections, equality queries with ordering and limits, and
// atomic multi-document batches. Firestore is the production backend;
// MongoDB, Postgres and an in-memory store implement the same contract.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ErrNotFound is returned by Get and Update when the document does not exist
var ErrNotFound = errors.New("docstore: document not found")

// Direction of a query ordering
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter is an equality condition on a top-level string field
type Filter struct {
	Field string
	Value string
}

// Query selects documents from one collection
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Collection starts a query over all documents of a collection
func Collection(name string) Query {
	return Query{Collection: name}
}

func (q Query) Where(field, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Snapshot is a document read from the store
type Snapshot struct {
	ID   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}

// DataTo decodes the document into v using its json tags. Numeric fields
// are converted, so counters decode the same whichever backend wrote them.
func (s *Snapshot) DataTo(v interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(s.Data); err != nil {
		return fmt.Errorf("decode %s: %w", s.ID, err)
	}
	return nil
}

// String returns a string field or "" when absent
func (s *Snapshot) String(field string) string {
	if s == nil {
		return ""
	}
	v, _ := s.Data[field].(string)
	return v
}

// Store is implemented by every backend
type Store interface {
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
	// Set creates or replaces the document
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Add creates a document with a generated id
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Update merges fields into an existing document
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Delete removes the document; deleting a missing document is not an error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
	Batch() Batch
	Close() error
}

// Batch collects writes that are committed together or not at all. An
// update of a missing document fails the whole commit.
type Batch interface {
	Set(collection, id string, data map[string]interface{})
	Update(collection, id string, fields map[string]interface{})
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// OpKind is the kind of a batched write
type OpKind int

const (
	OpSet OpKind = iota
	OpUpdate
	OpDelete
)

// Op is one batched write
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       map[string]interface{}
}

// opBatch records writes and hands them to a backend commit function
type opBatch struct {
	ops    []Op
	commit func(ctx context.Context, ops []Op) error
}

func newOpBatch(commit func(ctx context.Context, ops []Op) error) *opBatch {
	return &opBatch{commit: commit}
}

func (b *opBatch) Set(collection, id string, data map[string]interface{}) {
	b.ops = append(b.ops, Op{Kind: OpSet, Collection: collection, ID: id, Data: data})
}

func (b *opBatch) Update(collection, id string, fields map[string]interface{}) {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: collection, ID: id, Data: fields})
}

func (b *opBatch) Delete(collection, id string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
}

func (b *opBatch) Len() int {
	return len(b.ops)
}

func (b *opBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.commit(ctx, b.ops)
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
