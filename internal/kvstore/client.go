package kvstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultRetryDelay is how long a failed open is remembered. Callers in
// that window get the same error without dialling again.
const DefaultRetryDelay = 2 * time.Second

// Client is the shared, connect-on-demand handle every component receives.
// The first call opens the store; a connectivity failure drops the handle
// so a later call opens a new one. Concurrent callers share one dial.
type Client struct {
	open       Opener
	retryDelay time.Duration
	now        func() time.Time
	dials      singleflight.Group

	mu       sync.Mutex
	store    Store
	failErr  error
	failedAt time.Time
}

// NewClient returns a Client that uses open to obtain store handles.
func NewClient(open Opener) *Client {
	return &Client{open: open, retryDelay: DefaultRetryDelay, now: time.Now}
}

// NewStaticClient wraps an already-open store. The handle is never
// replaced, which is what tests usually want.
func NewStaticClient(st Store) *Client {
	c := NewClient(func(context.Context) (Store, error) { return st, nil })
	c.store = st
	return c
}

// Acquire returns the current handle, opening one when necessary.
func (c *Client) Acquire(ctx context.Context) (Store, error) {
	c.mu.Lock()
	st, failErr, failedAt := c.store, c.failErr, c.failedAt
	c.mu.Unlock()

	if st != nil {
		return st, nil
	}
	if failErr != nil && c.now().Sub(failedAt) < c.retryDelay {
		return nil, failErr
	}

	v, err, _ := c.dials.Do("open", func() (any, error) {
		return c.dial(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Store), nil
}

// dial opens a handle without holding mu, so readers of an existing handle
// and Close are never blocked by a slow store.
func (c *Client) dial(ctx context.Context) (Store, error) {
	c.mu.Lock()
	if c.store != nil {
		st := c.store
		c.mu.Unlock()
		return st, nil
	}
	c.mu.Unlock()

	st, err := c.open(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrUnsupportedScheme) {
			err = errors.Join(ErrUnavailable, err)
		}
		// A caller that gave up says nothing about the store.
		if ctx.Err() == nil {
			c.failErr, c.failedAt = err, c.now()
		}
		return nil, err
	}
	c.store, c.failErr = st, nil
	log.Ctx(ctx).Debug().Str("component", "kvstore").Msg("store connection opened")
	return st, nil
}

// Get reads key through the current handle.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	st, err := c.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	value, err := st.Get(ctx, key)
	c.observe(st, err)
	return value, err
}

// Set writes key through the current handle.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	st, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	err = st.Set(ctx, key, value)
	c.observe(st, err)
	return err
}

// Ping checks connectivity, opening a handle if needed.
func (c *Client) Ping(ctx context.Context) error {
	st, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	err = st.Ping(ctx)
	c.observe(st, err)
	return err
}

// Close closes the current handle, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// observe drops st after a connectivity failure so the next call reconnects.
func (c *Client) observe(st Store, err error) {
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != st {
		return
	}
	_ = st.Close()
	c.store = nil
}
