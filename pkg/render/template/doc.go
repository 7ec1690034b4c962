// Package template defines the template rendering seam used by field
// renderers. Implementations live in subpackages; gotemplate provides the
// pongo2-backed engine that loads the embedded field templates.
package template
