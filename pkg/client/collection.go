package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

// Collection addresses one content type's admin endpoints.
type Collection[T any] struct {
	c       *Client
	name    string
	idField string
}

func newCollection[T any](c *Client, name, idField string) *Collection[T] {
	return &Collection[T]{c: c, name: name, idField: idField}
}

func (c *Client) Programs() *Collection[types.Program] {
	return newCollection[types.Program](c, "programs", "slug")
}

func (c *Client) Research() *Collection[types.Research] {
	return newCollection[types.Research](c, "research", "slug")
}

func (c *Client) Testimonials() *Collection[types.Testimonial] {
	return newCollection[types.Testimonial](c, "testimonials", "id")
}

func (c *Client) Gallery() *Collection[types.GalleryItem] {
	return newCollection[types.GalleryItem](c, "gallery", "id")
}

func (c *Client) Careers() *Collection[types.Job] {
	return newCollection[types.Job](c, "careers", "slug")
}

func (c *Client) Team() *Collection[types.TeamMember] {
	return newCollection[types.TeamMember](c, "team", "slug")
}

func (col *Collection[T]) path() string { return apiPrefix + "/" + col.name }

// List returns every stored record.
func (col *Collection[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := col.c.do(ctx, http.MethodGet, col.path(), nil, "", &out); err != nil {
		return nil, fmt.Errorf("listing %s: %w", col.name, err)
	}
	return out, nil
}

// Get returns the record keyed by id.
func (col *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	q := url.Values{col.idField: {id}}
	if err := col.c.do(ctx, http.MethodGet, col.path()+"?"+q.Encode(), nil, "", &out); err != nil {
		var zero T
		return zero, fmt.Errorf("getting %s %q: %w", col.name, id, err)
	}
	return out, nil
}

// Replace overwrites the whole collection with recs.
func (col *Collection[T]) Replace(ctx context.Context, recs []T) (types.ReplaceResult, error) {
	if recs == nil {
		recs = []T{}
	}
	body, err := json.Marshal(recs)
	if err != nil {
		return types.ReplaceResult{}, err
	}
	var out types.ReplaceResult
	if err := col.c.do(ctx, http.MethodPost, col.path(), body, "application/json", &out); err != nil {
		return types.ReplaceResult{}, fmt.Errorf("replacing %s: %w", col.name, err)
	}
	return out, nil
}

// Upsert creates rec or replaces the record with the same key.
func (col *Collection[T]) Upsert(ctx context.Context, rec T) (types.UpsertResult[T], error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return types.UpsertResult[T]{}, err
	}
	var out types.UpsertResult[T]
	if err := col.c.do(ctx, http.MethodPut, col.path(), body, "application/json", &out); err != nil {
		return types.UpsertResult[T]{}, fmt.Errorf("saving %s record: %w", col.name, err)
	}
	return out, nil
}

// Delete removes the records keyed by ids. Unknown ids are ignored by
// the server and left out of the result.
func (col *Collection[T]) Delete(ctx context.Context, ids ...string) (types.DeleteResult, error) {
	if len(ids) == 0 {
		return types.DeleteResult{DeletedIDs: []string{}}, nil
	}
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	var out types.DeleteResult
	if err := col.c.do(ctx, http.MethodDelete, col.path()+"?"+q.Encode(), nil, "", &out); err != nil {
		return types.DeleteResult{}, fmt.Errorf("deleting %s: %w", col.name, err)
	}
	return out, nil
}
