package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anonto42/socialape/backend/internal/docstore"
)

// Observed wraps a store that has no native change triggers and publishes a
// Change after every committed write. The before-state is read ahead of the
// write, so concurrent writers to the same document may see an interleaved
// before image.
type Observed struct {
	docstore.Store
	publisher Publisher
	logger    *slog.Logger
}

func Observe(store docstore.Store, publisher Publisher, logger *slog.Logger) *Observed {
	return &Observed{Store: store, publisher: publisher, logger: logger}
}

func (o *Observed) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	before, err := o.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := o.Store.Set(ctx, collection, id, data); err != nil {
		return err
	}
	o.emit(ctx, collection, id, before)
	return nil
}

func (o *Observed) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id, err := o.Store.Add(ctx, collection, data)
	if err != nil {
		return "", err
	}
	o.emit(ctx, collection, id, nil)
	return id, nil
}

func (o *Observed) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	before, err := o.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := o.Store.Update(ctx, collection, id, fields); err != nil {
		return err
	}
	o.emit(ctx, collection, id, before)
	return nil
}

func (o *Observed) Delete(ctx context.Context, collection, id string) error {
	before, err := o.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := o.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	if before != nil {
		o.publish(ctx, Change{Collection: collection, ID: id, Before: before})
	}
	return nil
}

func (o *Observed) Batch() docstore.Batch {
	return &observedBatch{Batch: o.Store.Batch(), o: o}
}

// read returns the current document or nil when it does not exist
func (o *Observed) read(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	snap, err := o.Store.Get(ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	return snap, err
}

// emit reads the after-state of a write and publishes the change
func (o *Observed) emit(ctx context.Context, collection, id string, before *docstore.Snapshot) {
	after, err := o.read(ctx, collection, id)
	if err != nil {
		o.logger.Error("read after write failed", "collection", collection, "documentId", id, "error", err)
		return
	}
	if before == nil && after == nil {
		return
	}
	o.publish(ctx, Change{Collection: collection, ID: id, Before: before, After: after})
}

// publish never fails the write, which has already been committed
func (o *Observed) publish(ctx context.Context, change Change) {
	if err := o.publisher.Publish(ctx, change); err != nil {
		o.logger.Error("publish change failed",
			"collection", change.Collection, "documentId", change.ID, "kind", change.Kind(), "error", err)
	}
}

type docKey struct{ collection, id string }

type observedBatch struct {
	docstore.Batch
	o    *Observed
	keys []docKey
	seen map[docKey]bool
}

func (b *observedBatch) track(collection, id string) {
	k := docKey{collection, id}
	if b.seen == nil {
		b.seen = make(map[docKey]bool)
	}
	if !b.seen[k] {
		b.seen[k] = true
		b.keys = append(b.keys, k)
	}
}

func (b *observedBatch) Set(collection, id string, data map[string]interface{}) {
	b.track(collection, id)
	b.Batch.Set(collection, id, data)
}

func (b *observedBatch) Update(collection, id string, fields map[string]interface{}) {
	b.track(collection, id)
	b.Batch.Update(collection, id, fields)
}

func (b *observedBatch) Delete(collection, id string) {
	b.track(collection, id)
	b.Batch.Delete(collection, id)
}

func (b *observedBatch) Commit(ctx context.Context) error {
	befores := make([]*docstore.Snapshot, len(b.keys))
	for i, k := range b.keys {
		before, err := b.o.read(ctx, k.collection, k.id)
		if err != nil {
			return err
		}
		befores[i] = before
	}
	if err := b.Batch.Commit(ctx); err != nil {
		return err
	}
	for i, k := range b.keys {
		b.o.emit(ctx, k.collection, k.id, befores[i])
	}
	return nil
}
