package kvstore

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Opener creates a Store. Client calls it whenever it needs a fresh handle.
type Opener func(ctx context.Context) (Store, error)

// URLOpener returns an Opener that calls Open with rawURL.
func URLOpener(rawURL string) Opener {
	return func(ctx context.Context) (Store, error) {
		return Open(ctx, rawURL)
	}
}

// Open returns a Store for rawURL. Supported schemes:
//
//	redis://, rediss://         Redis via go-redis
//	postgres://, postgresql://  PostgreSQL via lib/pq
//	sqlite://<path>             SQLite via modernc.org/sqlite (sqlite://:memory: works)
//	memory://                   in-process map
func Open(ctx context.Context, rawURL string) (Store, error) {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrUnsupportedScheme, rawURL)
	}

	switch strings.ToLower(scheme) {
	case "redis", "rediss":
		st, err := NewRedisStore(rawURL)
		if err != nil {
			return nil, err
		}
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "postgres", "postgresql":
		st, err := openSQL(ctx, "postgres", rawURL, sq.Dollar)
		if err != nil {
			return nil, err
		}
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "sqlite":
		return openSQL(ctx, "sqlite", sqlitePath(rawURL), sq.Question)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// sqlitePath strips the scheme, keeping relative paths relative.
func sqlitePath(rawURL string) string {
	path := strings.TrimPrefix(rawURL, "sqlite://")
	if path == "" {
		return ":memory:"
	}
	return path
}
