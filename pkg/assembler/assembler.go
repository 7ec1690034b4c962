// Package assembler composes the fetcher, the visibility rules, the field
// renderer and the form state into complete forms.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/fetcher"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/metrics"
	"github.com/goliatone/go-formblocks/pkg/permission"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/session"
	"github.com/goliatone/go-formblocks/pkg/visibility"
)

// MessageLoadingForm is shown instead of a form whose configuration could
// not be loaded.
const MessageLoadingForm = "error.loading_form"

// Variant selects how a form obtains its configuration and how it is
// gated.
type Variant string

const (
	// VariantAuthenticated fetches by name with the caller envelope.
	VariantAuthenticated Variant = "authenticated"
	// VariantTable is authenticated, resolves item sources and renders the
	// fields without a form element.
	VariantTable Variant = "table"
	// VariantAnonymous fetches by item id without credentials and renders in
	// ModeNoUser with every block unrestricted.
	VariantAnonymous Variant = "anonymous"
	// VariantFromConfig takes its blocks from a ConfigFunc.
	VariantFromConfig Variant = "config"
)

var (
	// ErrUnknownVariant is returned for a Form with an unsupported Variant.
	ErrUnknownVariant = errors.New("assembler: unknown variant")
	// ErrMissingConfig is returned by VariantFromConfig forms without a
	// ConfigFunc.
	ErrMissingConfig = errors.New("assembler: config func is required")
)

// ConfigFunc supplies blocks and the server permission level directly.
type ConfigFunc func(ctx context.Context) ([]block.Block, block.Level, error)

// Form defines one form instance.
type Form struct {
	// Name selects the configuration on authenticated endpoints and is
	// posted back as a hidden field.
	Name    string
	Variant Variant
	// ConfigEndpoint is where the configuration is fetched from.
	ConfigEndpoint string
	// ItemID identifies the record being edited; empty means a new record.
	ItemID    string
	Endpoints formstate.Endpoints
	// Additional blocks are rendered after the fetched ones.
	Additional []block.Block
	// Permission enables the permission gate; Show "admin" exposes
	// administrator blocks.
	Permission bool
	Show       string
	Config     ConfigFunc
	// PermissionStatus is the fixed status of VariantFromConfig forms;
	// zero means permission.DefaultConfigStatus. Other variants derive it.
	PermissionStatus block.Level
	// NoUser renders in ModeNoUser. Anonymous forms always do.
	NoUser bool

	ID             string
	ClassName      string
	Action         string
	Multipart      bool
	SuccessMessage string
	// Children is trusted HTML appended after the fields.
	Children string
}

func (f Form) mode() fields.Mode {
	if f.NoUser || f.Variant == VariantAnonymous {
		return fields.ModeNoUser
	}
	return fields.ModeUser
}

// status is the permission status stamped on every block of f.
func (f Form) status(server block.Level) block.Level {
	if f.Variant == VariantFromConfig {
		if f.PermissionStatus != block.LevelNone {
			return f.PermissionStatus
		}
		return permission.DefaultConfigStatus
	}
	gate := f.Permission && f.Variant != VariantAnonymous
	return permission.Status(gate, f.Show, server)
}

// Request carries the per-render state.
type Request struct {
	Locale      string
	Fingerprint string
	// Values override the configured block values.
	Values     map[string]block.Value
	Errors     render.ErrorMapping
	FormErrors []string
	Notice     string
	// Hidden fields are rendered with the fingerprint, form name and item id,
	// sorted by name. The reserved inputs win on name collisions.
	Hidden []render.HiddenField
}

// Result is an assembled form.
type Result struct {
	HTML string
	// Blocks are the stamped blocks that survived visibility, in render
	// order.
	Blocks     []block.Block
	Permission block.Level
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSession forces a logout on 401 and is handed to form state.
func WithSession(m *session.Manager) Option {
	return func(a *Assembler) {
		a.session = m
	}
}

// WithEvaluator enables VisibleWhen rules.
func WithEvaluator(e visibility.Evaluator) Option {
	return func(a *Assembler) {
		a.evaluator = e
	}
}

// WithResolver sets the fingerprint resolver used when a Request carries
// none.
func WithResolver(r fingerprint.Resolver) Option {
	return func(a *Assembler) {
		a.resolver = r
	}
}

// WithMetrics records rendered forms and submissions.
func WithMetrics(r *metrics.Recorder) Option {
	return func(a *Assembler) {
		a.metrics = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// Assembler builds forms. It is safe for concurrent use.
type Assembler struct {
	client    *client.Client
	renderer  *fields.Renderer
	session   *session.Manager
	evaluator visibility.Evaluator
	resolver  fingerprint.Resolver
	metrics   *metrics.Recorder
	logger    logr.Logger

	fetcher *fetcher.Fetcher
	table   *fetcher.Fetcher
}

// New returns an Assembler rendering through r.
func New(c *client.Client, r *fields.Renderer, opts ...Option) *Assembler {
	a := &Assembler{client: c, renderer: r, logger: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	base := []fetcher.Option{
		fetcher.WithSession(a.session),
		fetcher.WithResolver(a.resolver),
		fetcher.WithLogger(a.logger),
	}
	a.fetcher = fetcher.New(c, base...)
	a.table = fetcher.New(c, append(base, fetcher.WithItemSources())...)
	return a
}

// Assemble loads, gates and renders form. When the configuration cannot be
// loaded the Result holds the error banner and the error is returned.
func (a *Assembler) Assemble(ctx context.Context, form Form, req Request) (Result, error) {
	p, err := a.prepare(ctx, form, req)
	if err != nil {
		return a.banner(form, req, err)
	}
	return a.render(ctx, form, req, p)
}

// prepared is a form after loading, permission stamping and visibility.
// all keeps every stamped block, visible or not.
type prepared struct {
	all         []block.Block
	blocks      []block.Block
	level       block.Level
	fingerprint string
}

func (a *Assembler) prepare(ctx context.Context, form Form, req Request) (prepared, error) {
	fp, err := fingerprint.GetOrSet(ctx, a.resolver, req.Fingerprint)
	if err != nil {
		return prepared{}, fmt.Errorf("assembler: %w", err)
	}

	loaded, level, err := a.load(ctx, form, fp)
	if err != nil {
		return prepared{}, err
	}

	all := make([]block.Block, 0, len(loaded)+len(form.Additional))
	all = append(all, loaded...)
	for _, b := range form.Additional {
		all = append(all, b.Clone())
	}
	if dupes := block.Duplicates(all); len(dupes) > 0 {
		a.logger.Info("duplicate field names, later values overwrite earlier ones", "form", form.Name, "names", dupes)
	}

	all = permission.StampStatus(all, form.status(level))
	values := make(map[string]block.Value, len(all))
	for i := range all {
		key := all[i].Key()
		if v, ok := req.Values[key]; ok {
			all[i].Value = v
		}
		if key != "" {
			values[key] = all[i].Value
		}
	}

	visible, err := visibility.Apply(all, values, a.evaluator, map[string]any{
		"permission": int(level),
		"variant":    string(form.Variant),
	})
	if err != nil {
		return prepared{}, fmt.Errorf("assembler: %w", err)
	}
	return prepared{all: all, blocks: visible, level: level, fingerprint: fp}, nil
}

func (a *Assembler) render(ctx context.Context, form Form, req Request, p prepared) (Result, error) {
	rendered, err := a.renderer.RenderAll(ctx, p.blocks, form.mode(), fields.State{Locale: req.Locale, Errors: req.Errors})
	if err != nil {
		return a.banner(form, req, fmt.Errorf("assembler: %w", err))
	}

	reserved := []render.HiddenField{render.FingerprintField(p.fingerprint)}
	if form.Name != "" {
		reserved = append(reserved, render.FormNameField(form.Name))
	}
	if form.ItemID != "" {
		reserved = append(reserved, render.ItemIDField(form.ItemID))
	}
	hidden := render.SortedHiddenFields(render.MergeHiddenFields(render.MergeHiddenFields(nil, req.Hidden...), reserved...))

	html, err := a.renderer.Form(fields.FormView{
		ID:        form.ID,
		ClassName: form.ClassName,
		Action:    form.Action,
		Element:   form.Variant != VariantTable,
		Multipart: form.Multipart,
		Hidden:    hidden,
		Fields:    rendered,
		Children:  form.Children,
		Errors:    render.MergeFormErrors(req.Errors.Form, req.FormErrors...),
		Notice:    req.Notice,
	})
	if err != nil {
		return a.banner(form, req, fmt.Errorf("assembler: %w", err))
	}

	a.metrics.FormRendered(string(form.Variant), "ok")
	a.logger.V(1).Info("form assembled", "form", form.Name, "variant", string(form.Variant), "fields", len(rendered))
	return Result{HTML: html, Blocks: p.blocks, Permission: p.level}, nil
}

func (a *Assembler) load(ctx context.Context, form Form, fp string) ([]block.Block, block.Level, error) {
	switch form.Variant {
	case VariantAuthenticated, VariantTable:
		f := a.fetcher
		if form.Variant == VariantTable {
			f = a.table
		}
		cfg, err := f.Fetch(ctx, fetcher.Request{
			Endpoint:      form.ConfigEndpoint,
			Name:          form.Name,
			Fingerprint:   fp,
			Authenticated: true,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("assembler: %w", err)
		}
		return cfg.Blocks, cfg.Permission, nil
	case VariantAnonymous:
		cfg, err := a.fetcher.Fetch(ctx, fetcher.Request{
			Endpoint:    form.ConfigEndpoint,
			ItemID:      form.ItemID,
			Fingerprint: fp,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("assembler: %w", err)
		}
		return cfg.Blocks, cfg.Permission, nil
	case VariantFromConfig:
		if form.Config == nil {
			return nil, 0, ErrMissingConfig
		}
		blocks, level, err := form.Config(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("assembler: config: %w", err)
		}
		out := make([]block.Block, len(blocks))
		for i, b := range blocks {
			out[i] = b.Clone()
		}
		return out, level, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownVariant, strings.TrimSpace(string(form.Variant)))
	}
}

func (a *Assembler) banner(form Form, req Request, cause error) (Result, error) {
	a.metrics.FormRendered(string(form.Variant), "error")
	a.logger.Error(cause, "form could not be assembled", "form", form.Name, "variant", string(form.Variant))
	html, err := a.renderer.Banner(req.Locale, MessageLoadingForm)
	if err != nil {
		return Result{}, errors.Join(cause, err)
	}
	return Result{HTML: html}, cause
}
