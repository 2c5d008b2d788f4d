package content

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Resolver tries its sources in order and returns the first non-empty
// result. Source failures are logged and skipped; they never reach the
// caller unless every source failed.
type Resolver[T any] struct {
	name    string
	sources []Source[T]
}

// NewResolver returns a Resolver for the named content type.
func NewResolver[T any](name string, sources ...Source[T]) *Resolver[T] {
	return &Resolver[T]{name: name, sources: sources}
}

// Resolve returns the content type's records. When every source is empty
// the result is an empty list and no error.
func (r *Resolver[T]) Resolve(ctx context.Context) ([]T, error) {
	logger := log.Ctx(ctx).With().Str("component", "resolver").Str("type", r.name).Logger()

	var errs []error
	for _, src := range r.sources {
		recs, err := src.Load(ctx)
		if err == nil {
			logger.Debug().Str("source", src.Name()).Int("count", len(recs)).Msg("content resolved")
			return recs, nil
		}
		if errors.Is(err, ErrNoContent) {
			continue
		}
		logger.Warn().Err(err).Str("source", src.Name()).Msg("content source failed, falling back")
		errs = append(errs, err)
	}

	if len(errs) == len(r.sources) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return []T{}, nil
}
