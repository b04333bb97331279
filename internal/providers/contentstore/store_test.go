package contentstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"filesystem": fsStore,
		"memory":     NewMemory(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Read(ctx, "plugins/installed.json")
			assert.ErrorIs(t, err, ErrNotExist)

			require.NoError(t, store.Write(ctx, "plugins/installed.json", []byte(`{}`)))
			require.NoError(t, store.Write(ctx, "plugins/assets/a/manifest.json", []byte(`m`)))
			require.NoError(t, store.Write(ctx, "plugins/assets/a/dist/index.js", []byte(`js`)))
			require.NoError(t, store.Write(ctx, "plugins/assets/ab/manifest.json", []byte(`other`)))

			data, err := store.Read(ctx, "plugins/installed.json")
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(data))

			files, err := store.List(ctx, "plugins/assets/a")
			require.NoError(t, err)
			assert.Equal(t, []string{"plugins/assets/a/dist/index.js", "plugins/assets/a/manifest.json"}, files)

			require.NoError(t, store.Delete(ctx, "plugins/assets/a/manifest.json"))
			require.NoError(t, store.Delete(ctx, "plugins/assets/a/manifest.json"))
			_, err = store.Read(ctx, "plugins/assets/a/manifest.json")
			assert.ErrorIs(t, err, ErrNotExist)

			empty, err := store.List(ctx, "missing/dir")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStoreRejectsEscapes(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"../outside", "/etc/passwd", "a/../../b", "", "\\abs"} {
				assert.ErrorIs(t, store.Write(ctx, p, []byte("x")), ErrInvalidPath, p)
			}
		})
	}
}
