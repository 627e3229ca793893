package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devradar/backend/internal/storage"
)

type record struct {
	Name  string   `json:"name"`
	Techs []string `json:"techs"`
}

func TestJSONStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := storage.NewJSONStore(dir, "devs.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "devs.json"), store.Path())

	t.Run("missing file leaves the value untouched", func(t *testing.T) {
		got := []record{{Name: "keep"}}
		require.NoError(t, store.Load(&got))
		assert.Equal(t, []record{{Name: "keep"}}, got)
	})

	t.Run("round trip", func(t *testing.T) {
		want := []record{{Name: "octocat", Techs: []string{"go"}}, {Name: "hubot"}}
		require.NoError(t, store.Save(want))

		var got []record
		require.NoError(t, store.Load(&got))
		assert.Equal(t, want, got)
	})

	t.Run("save replaces and leaves no temp files", func(t *testing.T) {
		require.NoError(t, store.Save([]record{{Name: "only"}}))

		var got []record
		require.NoError(t, store.Load(&got))
		assert.Equal(t, []record{{Name: "only"}}, got)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "devs.json", entries[0].Name())
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))
		var got []record
		assert.Error(t, store.Load(&got))
	})
}
