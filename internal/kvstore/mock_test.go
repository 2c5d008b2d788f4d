package kvstore

import "context"

// MockStore implements Store for testing. Set only the Fn fields needed for
// the test case; a nil Fn panics, except CloseFn which defaults to a no-op.
type MockStore struct {
	GetFn   func(ctx context.Context, key string) ([]byte, error)
	SetFn   func(ctx context.Context, key string, value []byte) error
	PingFn  func(ctx context.Context) error
	CloseFn func() error

	closed int
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.GetFn(ctx, key)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte) error {
	return m.SetFn(ctx, key, value)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingFn(ctx)
}

func (m *MockStore) Close() error {
	m.closed++
	if m.CloseFn == nil {
		return nil
	}
	return m.CloseFn()
}
