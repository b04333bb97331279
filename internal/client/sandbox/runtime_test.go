package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/components"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	rt       *Runtime
	registry *components.Registry
	page     *pagectx.Context
	writer   *pagectx.Writer
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	registry := components.NewRegistry()
	configs := pagectx.NewConfigService(map[string]map[string]any{
		"progress": {"color": "#3b82f6", "height": 3.0},
	})
	page, writer := pagectx.NewContext(pagectx.Platform{
		ActiveTheme: "paper",
		Route:       pagectx.NewRoute("/blog/hello", "/blog/"),
		Locale:      "en",
	}, configs, pagectx.NewBus(nil))

	rt, err := New(cfg, registry, page, zap.New(core))
	require.NoError(t, err)
	return &fixture{rt: rt, registry: registry, page: page, writer: writer, logs: logs}
}

func TestExecuteDefinesComponent(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	err := f.rt.Execute(ctx, "progress", `
		customElements.define("blog-progress", function (inst) {
			var cfg = blog.config(inst.pluginId);
			return '<div class="bar" style="color:' + cfg.color + '">' + inst.id + '</div>';
		});
	`)
	require.NoError(t, err)
	require.True(t, f.registry.Has("blog-progress"))

	render, _ := f.registry.Get("blog-progress")
	out, err := render(&components.Instance{ID: "i-1", PluginID: "progress", Tag: "blog-progress"})
	require.NoError(t, err)
	assert.Equal(t, `<div class="bar" style="color:#3b82f6">i-1</div>`, out)

	defined, err := f.rt.Eval(ctx, `typeof customElements.get("blog-progress") === "function" && customElements.get("blog-missing") === undefined`)
	require.NoError(t, err)
	assert.Equal(t, true, defined)
}

func TestDefineTwiceThrows(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	script := `customElements.define("blog-toc", function () { return "" });`

	require.NoError(t, f.rt.Execute(ctx, "toc", script))
	err := f.rt.Execute(ctx, "toc", script)
	assert.Error(t, err)

	guarded, err := f.rt.Eval(ctx, `
		if (!customElements.get("blog-toc")) { customElements.define("blog-toc", function () { return "" }) }
		"ok"
	`)
	require.NoError(t, err)
	assert.Equal(t, "ok", guarded)
}

func TestPlatformAndContent(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	v, err := f.rt.Eval(ctx, `blog.platform().activeTheme + " " + blog.platform().route.kind + " " + blog.platform().route.slug`)
	require.NoError(t, err)
	assert.Equal(t, "paper content hello", v)

	v, err = f.rt.Eval(ctx, `blog.content() === null`)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	f.writer.SetContent(&pagectx.Content{
		Title:   "Hello",
		Tags:    []string{"go"},
		Outline: []pagectx.Heading{{Level: 2, ID: "a", Text: "A"}},
	})
	v, err = f.rt.Eval(ctx, `var c = blog.content(); c.title + ":" + c.tags[0] + ":" + c.outline.length + ":" + c.outline[0].text`)
	require.NoError(t, err)
	assert.Equal(t, "Hello:go:1:A", v)

	v, err = f.rt.Eval(ctx, `blog.config("missing") === null`)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEventBusFromScript(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.rt.Execute(ctx, "listener", `
		var seen = [];
		var id = blog.on("blog:route-change", function (e) { seen.push(e.type + "@" + e.detail.path) });
	`))

	f.page.Emit(pagectx.EventRouteChange, pagectx.NewRoute("/about", "/blog/"))

	v, err := f.rt.Eval(ctx, `blog.off("blog:route-change", id); seen.join(",")`)
	require.NoError(t, err)
	assert.Equal(t, "blog:route-change@/about", v)
	assert.Equal(t, 0, f.page.Bus().Subscribers(pagectx.EventRouteChange))

	var got any
	f.page.On("toc:ready", func(e pagectx.Event) { got = e.Payload })
	_, err = f.rt.Eval(ctx, `blog.emit("toc:ready", {headings: 3})`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"headings": int64(3)}, got)
}

func TestCapabilitiesAcrossPlugins(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.rt.Execute(ctx, "toc", `blog.publish("toc", "depth", function (n) { return n * 2 })`))
	v, err := f.rt.Eval(ctx, `blog.capability("toc", "depth")(21)`)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)

	_, ok := f.page.Capability("toc", "depth")
	assert.True(t, ok)

	v, err = f.rt.Eval(ctx, `blog.capability("toc", "missing") === undefined`)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestDangerousGlobalsRemoved(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	for _, script := range []string{`require("fs")`, `process.exit(1)`} {
		_, err := f.rt.Eval(context.Background(), script)
		assert.Error(t, err, script)
	}

	v, err := f.rt.Eval(context.Background(), `setTimeout(function () {}, 10) === undefined`)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestConsoleForwardsToLogger(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.rt.Eval(context.Background(), `console.warn("low", 1); console.log("hi")`)
	require.NoError(t, err)

	entries := f.logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "low 1", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestTimeout(t *testing.T) {
	f := newFixture(t, Config{Timeout: 50 * time.Millisecond})

	err := f.rt.Execute(context.Background(), "spin", `while (true) {}`)
	assert.ErrorIs(t, err, ErrTimeout)

	v, err := f.rt.Eval(context.Background(), `1 + 1`)
	require.NoError(t, err, "runtime stays usable after an interrupt")
	assert.EqualValues(t, 2, v)
}

func TestContextCancellation(t *testing.T) {
	f := newFixture(t, Config{Timeout: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := f.rt.Execute(ctx, "spin", `while (true) {}`)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil, nil)
	assert.Error(t, err)
}
