package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewater/stock-ledger/store"
	"github.com/tidewater/stock-ledger/store/memory"
)

var _ store.Collections = (*memory.Memory)(nil)

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	require.NoError(t, m.Put(ctx, "k", []byte("abc")))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'z'

	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_PutMany_FailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	boom := errors.New("disk full")
	m.FailPut = func(key string) error {
		if key == "b" {
			return boom
		}
		return nil
	}

	err := m.PutMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")})

	assert.ErrorIs(t, err, boom)
	keys, _ := m.Keys(ctx)
	assert.Empty(t, keys)
}

func TestMemory_MissingKey(t *testing.T) {
	got, err := memory.New().Get(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_UpdatedAtAndReset(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	m.Now = func() time.Time { return at }
	require.NoError(t, m.Put(ctx, "k", []byte("[]")))

	got, ok, err := m.UpdatedAt(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at, got)

	require.NoError(t, m.Reset(ctx))
	keys, _ := m.Keys(ctx)
	assert.Empty(t, keys)
	_, ok, _ = m.UpdatedAt(ctx, "k")
	assert.False(t, ok)
}
