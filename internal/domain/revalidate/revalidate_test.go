package revalidate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/contentstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingCache) Invalidate(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), paths...))
	return r.err
}

func (r *recordingCache) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func seedPosts(t *testing.T, store contentstore.Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []string{"posts/hello.md", "posts/world.mdx", "posts/notes.txt", "posts/2024/recap.md"} {
		require.NoError(t, store.Write(ctx, p, []byte("# post")))
	}
}

func TestPaths(t *testing.T) {
	store := contentstore.NewMemory()
	seedPosts(t, store)
	s := NewScheduler(&recordingCache{}, store, Config{ListingPaths: []string{"/", "/blog", "/tags"}}, nil, nil)

	paths, err := s.Paths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/blog", "/tags", "/blog/2024/recap", "/blog/hello", "/blog/world"}, paths)
}

func TestTriggerImmediate(t *testing.T) {
	store := contentstore.NewMemory()
	seedPosts(t, store)
	cache := &recordingCache{}
	s := NewScheduler(cache, store, Config{}, nil, nil)

	d, err := s.Trigger(context.Background(), plugin.RevalidationPolicy{Mode: plugin.ModeImmediate})
	require.NoError(t, err)
	assert.Equal(t, plugin.ModeImmediate, d.Mode)
	assert.Equal(t, 4, d.Paths)
	assert.Equal(t, 1, cache.count())
}

func TestTriggerDebouncedOnlyReportsDelay(t *testing.T) {
	cache := &recordingCache{}
	s := NewScheduler(cache, contentstore.NewMemory(), Config{}, nil, nil)

	d, err := s.Trigger(context.Background(), plugin.RevalidationPolicy{Mode: plugin.ModeDebounced, DebounceSeconds: 45})
	require.NoError(t, err)
	assert.Equal(t, plugin.ModeDebounced, d.Mode)
	assert.Equal(t, 45*time.Second, d.Delay)
	assert.Equal(t, 0, cache.count())
}

func TestTriggerPropagatesInvalidateError(t *testing.T) {
	cache := &recordingCache{err: errors.New("webhook down")}
	s := NewScheduler(cache, contentstore.NewMemory(), Config{}, nil, nil)

	_, err := s.Trigger(context.Background(), plugin.DefaultPolicy())
	assert.ErrorContains(t, err, "webhook down")
}

func TestPrewarmIsBestEffort(t *testing.T) {
	var hits sync.Map
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Store(r.URL.Path, true)
		if r.URL.Path == "/blog/world" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer site.Close()

	store := contentstore.NewMemory()
	seedPosts(t, store)
	s := NewScheduler(&recordingCache{}, store, Config{SiteURL: site.URL, ListingPaths: []string{"/blog"}}, nil, nil)

	require.NoError(t, s.RevalidateNow(context.Background()))
	s.Wait()

	for _, p := range []string{"/", "/blog", "/blog/hello", "/blog/world", "/blog/2024/recap"} {
		_, ok := hits.Load(p)
		assert.True(t, ok, p)
	}
}

func TestPrewarmDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer site.Close()
	defer close(release)

	s := NewScheduler(&recordingCache{}, contentstore.NewMemory(), Config{SiteURL: site.URL, PrewarmTimeout: 200 * time.Millisecond}, nil, nil)

	start := time.Now()
	require.NoError(t, s.RevalidateNow(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// The budget bounds the whole batch
	s.Wait()
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDebouncerCoalesces(t *testing.T) {
	var (
		calls atomic.Int32
		fired = make(chan time.Time, 4)
	)
	d := NewDebouncer(func() {
		calls.Add(1)
		fired <- time.Now()
	})

	d.Schedule(80 * time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	second := time.Now()
	d.Schedule(80 * time.Millisecond)
	assert.True(t, d.Pending())

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(second), 80*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(func() { calls.Add(1) })

	d.Schedule(30 * time.Millisecond)
	d.Stop()
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}
