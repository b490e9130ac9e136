package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewater/stock-ledger/store"
	"github.com/tidewater/stock-ledger/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_GetMissingKey_ReturnsNil(t *testing.T) {
	st := newStore(t)

	got, err := st.Get(context.Background(), "stockMovements")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Put_OverwritesWholePayload(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.Put(ctx, "stockMovements", []byte(`[{"id":"a"},{"id":"b"}]`)))
	require.NoError(t, st.Put(ctx, "stockMovements", []byte(`[{"id":"c"}]`)))

	got, err := st.Get(ctx, "stockMovements")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"c"}]`, string(got))

	_, ok, err := st.UpdatedAt(ctx, "stockMovements")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_PutMany_AndKeys(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	err := st.PutMany(ctx, map[string][]byte{
		"siteTransfers":  []byte(`[]`),
		"stockMovements": []byte(`[]`),
	})
	require.NoError(t, err)

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"siteTransfers", "stockMovements"}, keys)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	st, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "pressingSlips", []byte(`[{"id":"ps-1"}]`)))
	require.NoError(t, st.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "pressingSlips")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"ps-1"}]`, string(got))
}

func TestStore_ClosedStore(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.Get(context.Background(), "x")
	assert.ErrorIs(t, err, store.ErrClosed)
	_, _, err = st.UpdatedAt(context.Background(), "x")
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, st.Reset(context.Background()), store.ErrClosed)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	require.NoError(t, st.Put(ctx, "k", []byte(`[]`)))

	require.NoError(t, st.Reset(ctx))

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

var _ store.Collections = (*sqlite.Store)(nil)
