package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_SetAndGet(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	st, err := Open(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Get(ctx, "gallery")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Set(ctx, "gallery", []byte(`[{"id":"g1"}]`)))

	got, err := st.Get(ctx, "gallery")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"g1"}]`, string(got))

	raw, err := mr.Get("gallery")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"g1"}]`, raw)
	assert.Zero(t, mr.TTL("gallery"))
}

func TestRedisStore_ServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	st, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer st.Close()

	mr.Close()

	_, err = st.Get(ctx, "programs")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, st.Set(ctx, "programs", []byte(`[]`)), ErrUnavailable)
	assert.ErrorIs(t, st.Ping(ctx), ErrUnavailable)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("redis://localhost:notaport/0")
	require.Error(t, err)
}
