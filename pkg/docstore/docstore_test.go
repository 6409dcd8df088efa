package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keywordDoc struct {
	Words []string `json:"words"`
}

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	var out keywordDoc
	found, err := store.Get(ctx, KindKeywords, "conv1", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, KindKeywords, "conv1", keywordDoc{Words: []string{"foo"}}))
	require.NoError(t, store.Put(ctx, KindKeywords, GlobalScope, keywordDoc{Words: []string{"bar"}}))
	require.NoError(t, store.Put(ctx, KindBans, "conv1", keywordDoc{Words: []string{"unrelated"}}))

	found, err = store.Get(ctx, KindKeywords, "conv1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"foo"}, out.Words)

	// Put replaces the whole document.
	require.NoError(t, store.Put(ctx, KindKeywords, "conv1", keywordDoc{Words: []string{"baz", "qux"}}))
	found, err = store.Get(ctx, KindKeywords, "conv1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"baz", "qux"}, out.Words)

	ids, err := store.List(ctx, KindKeywords)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conv1", GlobalScope}, ids)

	require.NoError(t, store.Delete(ctx, KindKeywords, "conv1"))
	found, err = store.Get(ctx, KindKeywords, "conv1", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, KindKeywords, "missing"))
}
