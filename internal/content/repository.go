package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/events"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
)

// Repository is the admin-side view of one content type in the key-value
// store. Every write reads the whole array, changes it and writes it back;
// concurrent writers to the same type can lose updates.
type Repository[T any] struct {
	kind      Kind[T]
	store     kvstore.Store
	publisher events.Publisher
	now       func() time.Time
}

// NewRepository returns a Repository for kind backed by st. A nil publisher
// disables change events.
func NewRepository[T any](kind Kind[T], st kvstore.Store, publisher events.Publisher) *Repository[T] {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Repository[T]{
		kind:      kind,
		store:     st,
		publisher: publisher,
		now:       time.Now,
	}
}

// Kind returns the content type descriptor.
func (r *Repository[T]) Kind() Kind[T] {
	return r.kind
}

// List returns every stored record. A key that was never written yields an
// empty list.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	raw, err := r.store.Get(ctx, r.kind.Name)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.kind.Name, err)
	}
	return r.decode(raw)
}

// Get returns the record with the given key, or ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	recs, err := r.List(ctx)
	if err != nil {
		return zero, err
	}
	rec, ok := Find(r.kind, recs, id)
	if !ok {
		return zero, fmt.Errorf("%s %s %q: %w", r.kind.Name, r.kind.IDField, id, ErrNotFound)
	}
	return rec, nil
}

// ReplaceAll validates recs and overwrites the stored array with them.
func (r *Repository[T]) ReplaceAll(ctx context.Context, recs []T) error {
	for _, rec := range recs {
		if err := r.kind.Validate(rec); err != nil {
			return err
		}
	}
	if err := CheckUnique(r.kind, recs); err != nil {
		return err
	}
	if err := r.write(ctx, recs); err != nil {
		return err
	}
	r.notify(ctx, events.OpReplaced, nil, len(recs))
	return nil
}

// Upsert stores rec, replacing the record with the same key or appending.
// A missing key is generated from the record's title. The stored record and
// whether it was newly created are returned.
func (r *Repository[T]) Upsert(ctx context.Context, rec T) (T, bool, error) {
	rec, err := r.kind.EnsureKey(rec, r.now())
	if err != nil {
		return rec, false, err
	}
	if err := r.kind.Validate(rec); err != nil {
		return rec, false, err
	}

	recs, err := r.List(ctx)
	if err != nil {
		return rec, false, err
	}
	updated, created := Upsert(r.kind, recs, rec)
	if err := r.write(ctx, updated); err != nil {
		return rec, false, err
	}

	r.notify(ctx, events.OpUpserted, []string{r.kind.KeyOf(rec)}, 1)
	return rec, created, nil
}

// Delete removes the records with the given keys. Unknown keys are ignored.
// It returns the keys that were actually removed, in request order.
func (r *Repository[T]) Delete(ctx context.Context, ids []string) ([]string, error) {
	recs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	kept, removed := Remove(r.kind, recs, ids)
	if len(removed) == 0 {
		return removed, nil
	}
	if err := r.write(ctx, kept); err != nil {
		return nil, err
	}

	r.notify(ctx, events.OpDeleted, removed, len(removed))
	return removed, nil
}

// importAll overwrites the stored array without validation. Used by the
// markdown migration, whose keys are unique filenames.
func (r *Repository[T]) importAll(ctx context.Context, recs []T) error {
	if err := r.write(ctx, recs); err != nil {
		return err
	}
	r.notify(ctx, events.OpMigrated, nil, len(recs))
	return nil
}

func (r *Repository[T]) decode(raw []byte) ([]T, error) {
	var recs []T
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.kind.Name, err)
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

func (r *Repository[T]) write(ctx context.Context, recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", r.kind.Name, err)
	}
	if err := r.store.Set(ctx, r.kind.Name, raw); err != nil {
		return fmt.Errorf("writing %s: %w", r.kind.Name, err)
	}
	return nil
}

func (r *Repository[T]) notify(ctx context.Context, op string, ids []string, count int) {
	change := events.Change{
		Type:  r.kind.Name,
		Op:    op,
		IDs:   ids,
		Count: count,
		At:    r.now(),
	}
	if err := r.publisher.Publish(ctx, change); err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("type", r.kind.Name).
			Str("op", op).
			Msg("failed to publish change event")
	}
}
