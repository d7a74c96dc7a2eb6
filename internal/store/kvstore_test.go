package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	kv := NewMemoryStore()
	ctx := context.Background()

	_, found, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, "key", []byte(`[{"id":"1"}]`), time.Minute))
	raw, found, err := kv.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `[{"id":"1"}]`, string(raw))

	require.NoError(t, kv.Remove(ctx, "key"))
	_, found, err = kv.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadListMissingKey(t *testing.T) {
	kv := NewMemoryStore()

	records, err := LoadList[record](context.Background(), kv, "course:lessons:c1", zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestLoadListCorruptValue(t *testing.T) {
	kv := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "course:lessons:c1", []byte("{not json"), 0))

	// A corrupt payload degrades to empty instead of failing the read path.
	records, err := LoadList[record](ctx, kv, "course:lessons:c1", zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveListLoadListRoundtrip(t *testing.T) {
	kv := NewMemoryStore()
	ctx := context.Background()

	in := []record{{ID: "1", Name: "first"}, {ID: "2", Name: "second"}}
	require.NoError(t, SaveList(ctx, kv, "course:lessons:c1", in, 0))

	out, err := LoadList[record](ctx, kv, "course:lessons:c1", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveListNilRecords(t *testing.T) {
	kv := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, SaveList[record](ctx, kv, "course:lessons:c1", nil, 0))
	raw, found, err := kv.Get(ctx, "course:lessons:c1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "[]", string(raw))
}

func TestRedisStoreNilClient(t *testing.T) {
	kv := NewRedisStore(nil)
	ctx := context.Background()

	_, found, err := kv.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Error(t, kv.Set(ctx, "key", []byte("v"), 0))
	assert.Error(t, kv.Remove(ctx, "key"))
}
