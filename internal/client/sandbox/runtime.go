package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/components"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a script exceeds its time budget
var ErrTimeout = errors.New("script execution timed out")

// Config bounds script execution
type Config struct {
	Timeout      time.Duration
	MaxCallStack int
}

// DefaultConfig returns production limits
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxCallStack: 1024,
	}
}

// Runtime runs plugin scripts against a page context
type Runtime struct {
	vm         *goja.Runtime
	config     Config
	components *components.Registry
	page       *pagectx.Context
	logger     *zap.Logger

	// Components defined from script, returned by customElements.get
	defined map[string]goja.Value
	depth   int
}

// New creates a runtime bound to a component registry and page context
func New(config Config, registry *components.Registry, page *pagectx.Context, logger *zap.Logger) (*Runtime, error) {
	if registry == nil || page == nil {
		return nil, errors.New("sandbox requires a component registry and page context")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	r := &Runtime{
		vm:         vm,
		config:     config,
		components: registry,
		page:       page,
		logger:     logger,
		defined:    make(map[string]goja.Value),
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs a plugin script. name labels stack traces and log lines.
func (r *Runtime) Execute(ctx context.Context, name, script string) error {
	_, err := r.guard(ctx, func() (goja.Value, error) {
		return r.vm.RunScript(name, script)
	})
	if err != nil {
		return fmt.Errorf("script %s failed: %w", name, err)
	}
	return nil
}

// Eval runs a script and exports its completion value
func (r *Runtime) Eval(ctx context.Context, script string) (any, error) {
	v, err := r.guard(ctx, func() (goja.Value, error) {
		return r.vm.RunString(script)
	})
	if err != nil {
		return nil, err
	}
	return exportValue(v), nil
}

// guard bounds the outermost entry into the VM by the timeout and ctx.
// Nested entries, such as event handlers invoked by blog.emit, share the
// outer budget.
func (r *Runtime) guard(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if r.depth > 0 {
		r.depth++
		defer func() { r.depth-- }()
		return fn()
	}

	r.depth++
	timer := time.AfterFunc(r.config.Timeout, func() {
		r.vm.Interrupt(ErrTimeout)
	})
	stop := context.AfterFunc(ctx, func() {
		r.vm.Interrupt(ctx.Err())
	})
	defer func() {
		timer.Stop()
		stop()
		r.vm.ClearInterrupt()
		r.depth--
	}()

	v, err := fn()
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return nil, cause
		}
		return nil, ErrTimeout
	}
	return v, err
}

// call invokes a script function from Go
func (r *Runtime) call(fn goja.Callable, args ...any) (goja.Value, error) {
	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = r.vm.ToValue(a)
	}
	return r.guard(context.Background(), func() (goja.Value, error) {
		return fn(goja.Undefined(), values...)
	})
}

func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "debug", "warn", "error"} {
		if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	if err := r.vm.Set("console", console); err != nil {
		return err
	}

	if err := r.vm.Set("customElements", r.customElements()); err != nil {
		return err
	}
	return r.vm.Set("blog", r.blogAPI())
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		switch level {
		case "error":
			r.logger.Error(msg, zap.String("source", "plugin"))
		case "warn":
			r.logger.Warn(msg, zap.String("source", "plugin"))
		case "debug":
			r.logger.Debug(msg, zap.String("source", "plugin"))
		default:
			r.logger.Info(msg, zap.String("source", "plugin"))
		}
		return goja.Undefined()
	}
}

func (r *Runtime) throw(err error) {
	panic(r.vm.NewGoError(err))
}

func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
