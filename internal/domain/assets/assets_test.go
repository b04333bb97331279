package assets

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/contentstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	mu    sync.Mutex
	files map[string][]byte
	calls []string
}

func newFakeUpstream(files map[string]string) *fakeUpstream {
	f := &fakeUpstream{files: make(map[string][]byte)}
	for k, v := range files {
		f.files[k] = []byte(v)
	}
	return f
}

func (f *fakeUpstream) Fetch(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	body, ok := f.files[p]
	if !ok {
		return nil, plugin.ErrNotFound
	}
	return body, nil
}

func (f *fakeUpstream) FetchManifest(ctx context.Context, source string) (*plugin.Manifest, []byte, error) {
	raw, err := f.Fetch(ctx, source+"/manifest.json")
	if err != nil {
		return nil, nil, err
	}
	var m plugin.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, err
	}
	return &m, raw, nil
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const progressManifest = `{"id":"progress","version":"1.0.0","formats":{
  "fragment":{"entry":"index.js","tag":"blog-progress"},
  "stylesheet":{"entry":"style.css"}}}`

type staticLocator map[string]Location

func (l staticLocator) Locate(_ context.Context, p string) (Location, bool) {
	loc, ok := l[p]
	return loc, ok
}

func TestCacheAssets(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	up := newFakeUpstream(map[string]string{
		"plugins/progress/manifest.json": progressManifest,
		"plugins/progress/index.js":      "js",
		"plugins/progress/style.css":     "css",
	})
	cache := NewCache(store, up, nil, nil)

	require.True(t, cache.CacheAssets(ctx, "progress", "plugins/progress"))

	js, err := store.Read(ctx, "plugins/assets/progress/index.js")
	require.NoError(t, err)
	assert.Equal(t, "js", string(js))

	m, err := cache.Manifest(ctx, "progress")
	require.NoError(t, err)
	assert.Equal(t, "blog-progress", m.Formats.Fragment.Tag)
}

func TestCacheAssetsPartialFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	up := newFakeUpstream(map[string]string{
		"plugins/progress/manifest.json": progressManifest,
		"plugins/progress/style.css":     "css",
	})
	cache := NewCache(store, up, nil, nil)

	assert.True(t, cache.CacheAssets(ctx, "progress", "plugins/progress"))

	_, err := store.Read(ctx, "plugins/assets/progress/index.js")
	assert.ErrorIs(t, err, contentstore.ErrNotExist)

	// The missing entry falls through to a live fetch once it appears upstream
	up.mu.Lock()
	up.files["plugins/progress/index.js"] = []byte("late js")
	up.mu.Unlock()
	assert.Equal(t, "late js", string(cache.ReadAsset(ctx, "progress", "plugins/progress", "index.js")))
}

func TestCacheAssetsFailsWithoutManifest(t *testing.T) {
	store := contentstore.NewMemory()
	cache := NewCache(store, newFakeUpstream(nil), nil, nil)

	assert.False(t, cache.CacheAssets(context.Background(), "progress", "plugins/progress"))
	assert.Equal(t, 0, store.Len())
}

func TestCacheAssetsSkipsEscapingEntries(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	up := newFakeUpstream(map[string]string{
		"plugins/evil/manifest.json": `{"id":"evil","formats":{"fragment":{"entry":"../../x.js","tag":"x-y"}}}`,
	})
	cache := NewCache(store, up, nil, nil)

	assert.True(t, cache.CacheAssets(ctx, "evil", "plugins/evil"))
	files, err := store.List(ctx, "plugins")
	require.NoError(t, err)
	assert.Equal(t, []string{"plugins/assets/evil/manifest.json"}, files)
}

func TestReadAssetPrefersStore(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	require.NoError(t, store.Write(ctx, "plugins/assets/progress/index.js", []byte("cached")))
	up := newFakeUpstream(map[string]string{"plugins/progress/index.js": "live"})
	cache := NewCache(store, up, nil, nil)

	assert.Equal(t, "cached", string(cache.ReadAsset(ctx, "progress", "plugins/progress", "index.js")))
	assert.Equal(t, 0, up.callCount())

	assert.Nil(t, cache.ReadAsset(ctx, "progress", "plugins/progress", "missing.js"))
	assert.Nil(t, cache.ReadAsset(ctx, "progress", "plugins/progress", "../secret"))
}

func TestRemoveAssets(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	require.NoError(t, store.Write(ctx, "plugins/assets/progress/index.js", []byte("a")))
	require.NoError(t, store.Write(ctx, "plugins/assets/progress/nested/x.css", []byte("b")))
	require.NoError(t, store.Write(ctx, "plugins/assets/progress-two/index.js", []byte("c")))
	cache := NewCache(store, newFakeUpstream(nil), nil, nil)

	cache.RemoveAssets(ctx, "progress")

	files, err := store.List(ctx, "plugins/assets")
	require.NoError(t, err)
	assert.Equal(t, []string{"plugins/assets/progress-two/index.js"}, files)

	_, err = cache.Manifest(ctx, "progress")
	assert.ErrorIs(t, err, plugin.ErrNotFound)
}

func TestProxyRejectsEscapesBeforeIO(t *testing.T) {
	up := newFakeUpstream(nil)
	proxy := NewProxy(NewCache(contentstore.NewMemory(), up, nil, nil), up, nil, nil, nil)

	for _, p := range []string{
		"../../etc/passwd",
		"/abs/path",
		"plugins/../../x",
		"",
		"\\\\server\\share",
		"plugins/%2e%2e/%2e%2e/private/x",
		"plugins%2f..%2fsecret",
	} {
		_, err := proxy.ProxyAsset(context.Background(), p, "1.0.0")
		assert.ErrorIs(t, err, plugin.ErrInvalidPath, p)
	}
	assert.Equal(t, 0, up.callCount())
}

func TestProxyAsset(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	require.NoError(t, store.Write(ctx, "plugins/assets/progress/style.css", []byte("body{}")))
	up := newFakeUpstream(map[string]string{
		"plugins/other/readme.md": "# hi",
		"plugins/other/logo.svg":  "<svg></svg>",
	})
	cache := NewCache(store, up, nil, nil)
	locator := staticLocator{
		"plugins/progress/style.css": {ID: "progress", Source: "plugins/progress", Rel: "style.css"},
	}
	proxy := NewProxy(cache, up, locator, nil, nil)

	asset, err := proxy.ProxyAsset(ctx, "plugins/progress/style.css", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(asset.Body))
	assert.Equal(t, "text/css; charset=utf-8", asset.ContentType)
	assert.Equal(t, "public, max-age=3600", asset.CacheControl)
	assert.NotEmpty(t, asset.ETag)
	assert.Equal(t, 0, up.callCount(), "installed asset served from the store")

	asset, err = proxy.ProxyAsset(ctx, "plugins/other/logo.svg", "")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", asset.ContentType)

	// version does not change what is served
	again, err := proxy.ProxyAsset(ctx, "plugins/other/logo.svg", "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, asset.Body, again.Body)

	_, err = proxy.ProxyAsset(ctx, "plugins/other/missing.js", "")
	assert.ErrorIs(t, err, plugin.ErrNotFound)
}

func TestContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	assert.Equal(t, "text/javascript; charset=utf-8", ContentType("a/index.js", nil))
	assert.Equal(t, "application/json; charset=utf-8", ContentType("manifest.JSON", nil))
	assert.Equal(t, "image/png", ContentType("blob", png))
	assert.True(t, IsText("text/css; charset=utf-8"))
	assert.False(t, IsText("image/png"))
}
