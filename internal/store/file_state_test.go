package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file loads empty", func(t *testing.T) {
		s := NewFileStateStore(filepath.Join(t.TempDir(), "state.json"))
		v, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("save then load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
		s := NewFileStateStore(path)

		require.NoError(t, s.Save(ctx, `{"schema_version":"V2","declined":["tabs"]}`))
		require.NoError(t, s.Save(ctx, `{"schema_version":"V2","declined":null}`))

		v, err := NewFileStateStore(path).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, `{"schema_version":"V2","declined":null}`, v)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("in memory", func(t *testing.T) {
		s := NewFileStateStore("")
		require.NoError(t, s.Save(ctx, "x"))
		v, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "x", v)
	})
}
