package content

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/events"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

// Collection bundles everything the site needs for one content type.
type Collection[T any] struct {
	Kind     Kind[T]
	Repo     *Repository[T]
	Markdown *MarkdownSource[T]
	Resolver *Resolver[T]
}

// NewCollection wires a store-first, markdown-fallback collection.
func NewCollection[T any](kind Kind[T], st kvstore.Store, contentDir string, publisher events.Publisher) *Collection[T] {
	repo := NewRepository(kind, st, publisher)
	md := NewMarkdownSource(kind, contentDir)
	return &Collection[T]{
		Kind:     kind,
		Repo:     repo,
		Markdown: md,
		Resolver: NewResolver[T](kind.Name, NewStoreSource(repo), md),
	}
}

// Resolve returns the records public pages should show.
func (c *Collection[T]) Resolve(ctx context.Context) ([]T, error) {
	return c.Resolver.Resolve(ctx)
}

// Name returns the content type's store key.
func (c *Collection[T]) Name() string { return c.Kind.Name }

// Invalidate drops cached markdown records.
func (c *Collection[T]) Invalidate() { c.Markdown.Invalidate() }

// Count returns how many records the public site currently shows.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	recs, err := c.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Migrate copies the markdown records into the store, overwriting the key.
// An empty or missing directory leaves the store untouched and reports 0.
func (c *Collection[T]) Migrate(ctx context.Context) (int, error) {
	recs, err := c.Markdown.Read()
	if err != nil {
		return 0, fmt.Errorf("reading %s markdown: %w", c.Kind.Name, err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if err := c.Repo.importAll(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Section is the type-independent face of a Collection.
type Section interface {
	Name() string
	Invalidate()
	Count(ctx context.Context) (int, error)
	Migrate(ctx context.Context) (int, error)
}

// Catalog holds one Collection per content type.
type Catalog struct {
	Programs     *Collection[types.Program]
	Research     *Collection[types.Research]
	Testimonials *Collection[types.Testimonial]
	Gallery      *Collection[types.GalleryItem]
	Jobs         *Collection[types.Job]
	Team         *Collection[types.TeamMember]
}

// NewCatalog builds every collection over the same store and content root.
func NewCatalog(st kvstore.Store, contentDir string, publisher events.Publisher) *Catalog {
	return &Catalog{
		Programs:     NewCollection(Programs, st, contentDir, publisher),
		Research:     NewCollection(Research, st, contentDir, publisher),
		Testimonials: NewCollection(Testimonials, st, contentDir, publisher),
		Gallery:      NewCollection(Gallery, st, contentDir, publisher),
		Jobs:         NewCollection(Jobs, st, contentDir, publisher),
		Team:         NewCollection(Team, st, contentDir, publisher),
	}
}

// Sections lists the collections in display order.
func (c *Catalog) Sections() []Section {
	return []Section{c.Programs, c.Research, c.Testimonials, c.Gallery, c.Jobs, c.Team}
}

// Invalidate drops cached markdown for the named directory, or for every
// type when dir does not name one.
func (c *Catalog) Invalidate(dir string) {
	for _, s := range c.Sections() {
		if s.Name() == dir {
			s.Invalidate()
			return
		}
	}
	for _, s := range c.Sections() {
		s.Invalidate()
	}
}

// SectionCount is one type's record count. Err is set when no source
// could be read, in which case Count is meaningless.
type SectionCount struct {
	Name  string
	Count int
	Err   error
}

// Counts returns how many records each type currently shows, in display
// order.
func (c *Catalog) Counts(ctx context.Context) []SectionCount {
	sections := c.Sections()
	out := make([]SectionCount, 0, len(sections))
	for _, s := range sections {
		n, err := s.Count(ctx)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("component", "catalog").Str("type", s.Name()).Msg("failed to count content")
		}
		out = append(out, SectionCount{Name: s.Name(), Count: n, Err: err})
	}
	return out
}
