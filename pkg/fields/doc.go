// Package fields renders form blocks to HTML. A Registry maps each block
// kind to a Descriptor; the default registry covers every built-in kind
// with pongo2 templates embedded under templates/. The Renderer applies the
// permission gate before delegating to the registered renderer.
package fields
