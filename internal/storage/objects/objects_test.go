package objects

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*MinioStore)(nil)
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "conversations/a/b/c", strings.NewReader("hello"), 5, "text/plain"))
	assert.Equal(t, 1, store.Len())

	rc, info, err := store.Get(ctx, "conversations/a/b/c")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	url, err := store.URL(ctx, "conversations/a/b/c", "hello.txt", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, store.Remove(ctx, "conversations/a/b/c"))
	_, _, err = store.Get(ctx, "conversations/a/b/c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSizeMismatch(t *testing.T) {
	store := NewMemoryStore()
	err := store.Put(context.Background(), "k", strings.NewReader("abc"), 10, "text/plain")
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.Put(ctx, "k", strings.NewReader("x"), 1, ""), context.Canceled)
	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
