package components

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/utils"
)

var (
	// ErrAlreadyDefined is returned when a tag is registered twice
	ErrAlreadyDefined = errors.New("component already defined")
	// ErrInvalidTag is returned for tags that are not valid custom element names
	ErrInvalidTag = errors.New("invalid component tag")
)

// Instance is one mounted copy of a component
type Instance struct {
	ID       string
	PluginID string
	Tag      string
	Config   map[string]any
	Context  *pagectx.Context
}

// Factory renders the markup of a mounted instance
type Factory func(inst *Instance) (string, error)

// Registry maps tags to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// ValidTag reports whether tag is a valid custom element name
func ValidTag(tag string) bool {
	return utils.ValidateTag(tag) == nil
}

// Define registers a factory under tag. Tags are defined once per page.
func (r *Registry) Define(tag string, f Factory) error {
	if !ValidTag(tag) {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	if f == nil {
		return fmt.Errorf("%w: %q has no factory", ErrInvalidTag, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyDefined, tag)
	}
	r.factories[tag] = f
	return nil
}

// Get returns the factory for tag
func (r *Registry) Get(tag string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[tag]
	return f, ok
}

// Has reports whether tag is registered
func (r *Registry) Has(tag string) bool {
	_, ok := r.Get(tag)
	return ok
}

// Tags lists registered tags in sorted order
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
