package content

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Migrate copies every markdown directory into the store in parallel and
// returns the number of records written per type. Running it twice writes
// the same data.
func (c *Catalog) Migrate(ctx context.Context) (map[string]int, error) {
	logger := log.Ctx(ctx).With().Str("component", "migrate").Logger()

	var mu sync.Mutex
	counts := make(map[string]int, 6)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range c.Sections() {
		g.Go(func() error {
			n, err := s.Migrate(gctx)
			if err != nil {
				return err
			}
			if n == 0 {
				logger.Info().Str("type", s.Name()).Msg("no markdown content, skipped")
			} else {
				logger.Info().Str("type", s.Name()).Int("count", n).Msg("migrated markdown content")
			}
			mu.Lock()
			counts[s.Name()] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
