package kvstore

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_OpensLazilyAndReuses(t *testing.T) {
	opens := 0
	mem := NewMemoryStore()
	c := NewClient(func(context.Context) (Store, error) {
		opens++
		return mem, nil
	})
	ctx := context.Background()

	assert.Equal(t, 0, opens)

	require.NoError(t, c.Set(ctx, "team", []byte(`[]`)))
	_, err := c.Get(ctx, "team")
	require.NoError(t, err)
	require.NoError(t, c.Ping(ctx))

	assert.Equal(t, 1, opens)
}

func TestClient_OpenFailureIsUnavailable(t *testing.T) {
	c := NewClient(func(context.Context) (Store, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := c.Get(context.Background(), "programs")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_DropsHandleAfterConnectivityFailure(t *testing.T) {
	failing := &MockStore{
		GetFn: func(context.Context, string) ([]byte, error) {
			return nil, errors.Join(ErrUnavailable, errors.New("broken pipe"))
		},
	}
	healthy := NewMemoryStore()
	require.NoError(t, healthy.Set(context.Background(), "programs", []byte(`["ok"]`)))

	handles := []Store{failing, healthy}
	c := NewClient(func(context.Context) (Store, error) {
		st := handles[0]
		handles = handles[1:]
		return st, nil
	})
	ctx := context.Background()

	_, err := c.Get(ctx, "programs")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, failing.closed)

	got, err := c.Get(ctx, "programs")
	require.NoError(t, err)
	assert.Equal(t, `["ok"]`, string(got))
}

func TestClient_KeepsHandleOnNotFound(t *testing.T) {
	opens := 0
	c := NewClient(func(context.Context) (Store, error) {
		opens++
		return NewMemoryStore(), nil
	})

	_, err := c.Get(context.Background(), "research")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Get(context.Background(), "research")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, opens)
}

func TestClient_Close(t *testing.T) {
	mock := &MockStore{}
	c := NewStaticClient(mock)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, mock.closed)
}

func TestClient_ConcurrentCallersShareOneDial(t *testing.T) {
	var opens atomic.Int32
	release := make(chan struct{})
	mem := NewMemoryStore()
	c := NewClient(func(context.Context) (Store, error) {
		opens.Add(1)
		<-release
		return mem, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "programs")
			assert.ErrorIs(t, err, ErrNotFound)
		}()
	}

	require.Eventually(t, func() bool { return opens.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, opens.Load())
}

// hungListener accepts connections and never answers.
func hungListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})
	return ln.Addr().String()
}

func TestClient_HungStoreDoesNotQueueCallers(t *testing.T) {
	const timeout = 300 * time.Millisecond
	addr := hungListener(t)
	c := NewClient(URLOpener("redis://" + addr + "/0?dial_timeout=300ms&read_timeout=300ms&write_timeout=300ms"))
	t.Cleanup(func() { _ = c.Close() })

	const callers = 6
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "programs")
			assert.ErrorIs(t, err, ErrUnavailable)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 3*timeout, "callers waited for each other: %s", elapsed)

	// Within the retry delay the failure is answered without dialling.
	start = time.Now()
	_, err := c.Get(context.Background(), "programs")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), timeout/2)
}

func TestClient_RetriesOpenAfterDelay(t *testing.T) {
	now := time.Unix(1736937000, 0)
	opens := 0
	mem := NewMemoryStore()
	c := NewClient(func(context.Context) (Store, error) {
		opens++
		if opens == 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return mem, nil
	})
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.Get(ctx, "team")
	require.ErrorIs(t, err, ErrUnavailable)

	now = now.Add(DefaultRetryDelay / 2)
	_, err = c.Get(ctx, "team")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, opens)

	now = now.Add(DefaultRetryDelay)
	_, err = c.Get(ctx, "team")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, opens)
}

func TestClient_CanceledCallerDoesNotBlockRetry(t *testing.T) {
	opens := 0
	c := NewClient(func(ctx context.Context) (Store, error) {
		opens++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewMemoryStore(), nil
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(canceled, "gallery")
	require.Error(t, err)

	_, err = c.Get(context.Background(), "gallery")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, opens)
}
