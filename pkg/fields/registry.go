package fields

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/goliatone/go-formblocks/pkg/block"
	rendertemplate "github.com/goliatone/go-formblocks/pkg/render/template"
)

// RenderFunc writes a field's HTML into buf.
type RenderFunc func(buf *bytes.Buffer, field Field, data Data) error

// Data carries what a RenderFunc needs besides the field itself.
type Data struct {
	Template rendertemplate.TemplateRenderer
	Locale   string
	Mode     Mode
}

// Descriptor binds a kind to its renderer.
type Descriptor struct {
	Kind     block.Kind
	Renderer RenderFunc
}

// Registry maps kinds to descriptors. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[block.Kind]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[block.Kind]Descriptor)}
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := NewRegistry()
	for kind, descriptor := range r.kinds {
		cloned.kinds[kind] = descriptor
	}
	return cloned
}

// Register binds descriptor to kind, replacing any existing entry. Only the
// built-in kinds can be registered.
func (r *Registry) Register(kind block.Kind, descriptor Descriptor) error {
	if !kind.Valid() {
		return fmt.Errorf("fields: unknown kind %q", string(kind))
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("fields: renderer for %q is nil", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor.Kind = kind
	r.kinds[kind] = descriptor
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(kind block.Kind, descriptor Descriptor) {
	if err := r.Register(kind, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor returns the descriptor for kind.
func (r *Registry) Descriptor(kind block.Kind) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.kinds[kind]
	return descriptor, ok
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []block.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]block.Kind, 0, len(r.kinds))
	for kind := range r.kinds {
		out = append(out, kind)
	}
	slices.Sort(out)
	return out
}
