package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "exports/s1/grid.xlsx", []byte("first")))
	require.NoError(t, s.Save(ctx, "exports/s1/grid.xlsx", []byte("second")))
	assert.True(t, s.Exists(ctx, "exports/s1/grid.xlsx"))

	content, err := s.Read(ctx, "exports/s1/grid.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	require.NoError(t, s.Delete(ctx, "exports/s1/grid.xlsx"))
	require.NoError(t, s.Delete(ctx, "exports/s1/grid.xlsx"))
	assert.False(t, s.Exists(ctx, "exports/s1/grid.xlsx"))
}

func TestLocalFileStorage_RejectsEscapingPaths(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	paths := []string{"../outside.txt", "a/../../outside.txt"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			assert.ErrorIs(t, s.Save(ctx, p, []byte("x")), ErrPathEscapes)
			_, err := s.Read(ctx, p)
			assert.ErrorIs(t, err, ErrPathEscapes)
			assert.ErrorIs(t, s.Delete(ctx, p), ErrPathEscapes)
			assert.False(t, s.Exists(ctx, p))
		})
	}
}

func TestLocalFileStorage_List(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "exports/b.xlsx", []byte("b")))
	require.NoError(t, s.Save(ctx, "exports/a.xlsx", []byte("a")))
	require.NoError(t, s.Save(ctx, "other/c.txt", []byte("c")))

	files, err := s.List(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/a.xlsx", "exports/b.xlsx"}, files)

	files, err = s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalFileStorage_ReadMissing(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())

	_, err := s.Read(context.Background(), "nope.txt")

	assert.Error(t, err)
}
