// Package formblocks renders forms described by a backend as block
// configurations and posts their values back. The subpackages hold the
// pieces; this package re-exports the common entry points.
package formblocks

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/session"
	"github.com/goliatone/go-formblocks/pkg/store"
)

// Block aliases block.Block so callers building configurations in Go do
// not need the subpackage.
type Block = block.Block

// Form describes one form instance; alias of assembler.Form.
type Form = assembler.Form

// Request carries per-render locale, values and errors.
type Request = assembler.Request

// Variant constants re-exported from assembler.
const (
	VariantAuthenticated = assembler.VariantAuthenticated
	VariantTable         = assembler.VariantTable
	VariantAnonymous     = assembler.VariantAnonymous
	VariantFromConfig    = assembler.VariantFromConfig
)

// Config bundles what New needs beyond the backend URL.
type Config struct {
	// Store defaults to an in-memory store.
	Store      *store.Store
	Translator render.Translator
	// TemplatesDir overrides individual field templates from disk.
	TemplatesDir string
	// Navigator receives forced-logout redirects; HTTP servers use
	// assembler.Navigator().
	Navigator session.Navigator
}

// New wires a backend client, a session manager and the default field
// renderer into an Assembler.
func New(baseURL string, cfg Config, options ...assembler.Option) (*assembler.Assembler, error) {
	st := cfg.Store
	if st == nil {
		st = store.NewMemory()
	}
	c, err := client.New(baseURL, st)
	if err != nil {
		return nil, err
	}
	renderer, err := fields.New(
		fields.WithTranslator(cfg.Translator),
		fields.WithTemplatesDir(cfg.TemplatesDir))
	if err != nil {
		return nil, err
	}
	base := []assembler.Option{
		assembler.WithSession(session.New(st, c, session.WithNavigator(cfg.Navigator))),
	}
	return assembler.New(c, renderer, append(base, options...)...), nil
}

// RenderHTML assembles form once for locale and returns the markup. A form
// whose configuration fails to load yields the error banner and the error.
func RenderHTML(ctx context.Context, a *assembler.Assembler, form Form, locale string) (string, error) {
	res, err := a.Assemble(ctx, form, Request{Locale: locale})
	return res.HTML, err
}

// DecodeBlocks parses a block configuration as the backend sends it: a JSON
// array, a JSON string holding one, or a {content:{body}} envelope.
func DecodeBlocks(raw []byte) ([]Block, error) {
	return block.Decode(raw)
}

// EmbeddedTemplates exposes the built-in field templates so callers can
// copy and override them.
func EmbeddedTemplates() fs.FS {
	return fields.TemplatesFS()
}
