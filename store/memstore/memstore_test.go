package memstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	ok, err := s.HeadObject(ctx, "key", "cache.tar.gz")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutObject(ctx, "key", "cache.tar.gz", strings.NewReader("data"), 4))

	ok, err = s.HeadObject(ctx, "key", "cache.tar.gz")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HeadObject(ctx, "key", "other.tar.gz")
	require.NoError(t, err)
	assert.False(t, ok, "name is part of the identity")

	got, ok := s.Get("key", "cache.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "data", string(got))
	assert.Equal(t, 1, s.Len())
}

func TestStore_PutObject_SizeMismatch(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.PutObject(context.Background(), "k", "n", strings.NewReader("short"), 10)
	require.Error(t, err)
	err = s.PutObject(context.Background(), "k", "n", strings.NewReader("too long"), 3)
	require.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestStore_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()

	_, err := s.HeadObject(ctx, "k", "n")
	require.ErrorIs(t, err, context.Canceled)
	err = s.PutObject(ctx, "k", "n", strings.NewReader(""), 0)
	require.ErrorIs(t, err, context.Canceled)
}
