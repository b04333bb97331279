package sandbox

import (
	"fmt"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/components"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// customElements builds the component registration object. A script
// component is a render function receiving the instance and returning markup.
func (r *Runtime) customElements() *goja.Object {
	obj := r.vm.NewObject()

	_ = obj.Set("define", func(call goja.FunctionCall) goja.Value {
		tag := call.Argument(0).String()
		render, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			r.throw(fmt.Errorf("%w: %s needs a render function", components.ErrInvalidTag, tag))
		}

		err := r.components.Define(tag, func(inst *components.Instance) (string, error) {
			out, err := r.call(render, instanceObject(inst))
			if err != nil {
				return "", err
			}
			if out == nil || goja.IsUndefined(out) || goja.IsNull(out) {
				return "", nil
			}
			return out.String(), nil
		})
		if err != nil {
			r.throw(err)
		}
		r.defined[tag] = call.Argument(1)
		return goja.Undefined()
	})

	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		tag := call.Argument(0).String()
		if v, ok := r.defined[tag]; ok {
			return v
		}
		if r.components.Has(tag) {
			return r.vm.ToValue(true)
		}
		return goja.Undefined()
	})

	return obj
}

// blogAPI builds the page context object
func (r *Runtime) blogAPI() *goja.Object {
	obj := r.vm.NewObject()

	_ = obj.Set("platform", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(platformObject(r.page.Platform()))
	})

	_ = obj.Set("content", func(goja.FunctionCall) goja.Value {
		content, ok := r.page.Content()
		if !ok {
			return goja.Null()
		}
		return r.vm.ToValue(contentObject(content))
	})

	_ = obj.Set("config", func(call goja.FunctionCall) goja.Value {
		cfg, ok := r.page.Config(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return r.vm.ToValue(cfg)
	})

	_ = obj.Set("emit", func(call goja.FunctionCall) goja.Value {
		n := r.page.Emit(call.Argument(0).String(), exportValue(call.Argument(1)))
		return r.vm.ToValue(n)
	})

	_ = obj.Set("on", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		handler, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			r.throw(fmt.Errorf("handler for %s is not a function", name))
		}
		id := r.page.On(name, func(evt pagectx.Event) {
			if _, err := r.call(handler, eventObject(evt)); err != nil {
				r.logger.Warn("script event handler failed", zap.String("event", name), zap.Error(err))
			}
		})
		return r.vm.ToValue(uint64(id))
	})

	_ = obj.Set("off", func(call goja.FunctionCall) goja.Value {
		id := pagectx.HandlerID(call.Argument(1).ToInteger())
		return r.vm.ToValue(r.page.Off(call.Argument(0).String(), id))
	})

	_ = obj.Set("publish", func(call goja.FunctionCall) goja.Value {
		pluginID := call.Argument(0).String()
		name := call.Argument(1).String()
		value := call.Argument(2)
		if _, isFunc := goja.AssertFunction(value); isFunc {
			r.page.Publish(pluginID, name, value)
		} else {
			r.page.Publish(pluginID, name, exportValue(value))
		}
		return goja.Undefined()
	})

	_ = obj.Set("capability", func(call goja.FunctionCall) goja.Value {
		v, ok := r.page.Capability(call.Argument(0).String(), call.Argument(1).String())
		if !ok {
			return goja.Undefined()
		}
		return r.vm.ToValue(v)
	})

	return obj
}

func instanceObject(inst *components.Instance) map[string]any {
	cfg := inst.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	return map[string]any{
		"id":       inst.ID,
		"pluginId": inst.PluginID,
		"tag":      inst.Tag,
		"config":   cfg,
	}
}

func platformObject(p pagectx.Platform) map[string]any {
	return map[string]any{
		"activeTheme": p.ActiveTheme,
		"colorScheme": string(p.ColorScheme),
		"locale":      p.Locale,
		"route": map[string]any{
			"path": p.Route.Path,
			"kind": string(p.Route.Kind),
			"slug": p.Route.Slug,
		},
	}
}

func contentObject(c *pagectx.Content) map[string]any {
	outline := make([]any, len(c.Outline))
	for i, h := range c.Outline {
		outline[i] = map[string]any{"level": h.Level, "id": h.ID, "text": h.Text}
	}
	tags := make([]any, len(c.Tags))
	for i, t := range c.Tags {
		tags[i] = t
	}
	return map[string]any{
		"title":       c.Title,
		"tags":        tags,
		"words":       c.Words,
		"readMinutes": c.ReadMinutes,
		"outline":     outline,
	}
}

func eventObject(evt pagectx.Event) map[string]any {
	payload := evt.Payload
	if route, ok := payload.(pagectx.Route); ok {
		payload = map[string]any{"path": route.Path, "kind": string(route.Kind), "slug": route.Slug}
	}
	if content, ok := payload.(*pagectx.Content); ok {
		payload = contentObject(content)
	}
	return map[string]any{"type": evt.Name, "detail": payload}
}
