package fields

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-logr/logr"
	gotemplatepkg "github.com/goliatone/go-template"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/permission"
	"github.com/goliatone/go-formblocks/pkg/render"
	rendertemplate "github.com/goliatone/go-formblocks/pkg/render/template"
	"github.com/goliatone/go-formblocks/pkg/render/template/gotemplate"
)

// Option configures a Renderer.
type Option func(*config)

type config struct {
	registry   *Registry
	templateFS fs.FS
	baseDir    string
	templates  rendertemplate.TemplateRenderer
	translator render.Translator
	onMissing  render.MissingTranslationHandler
	policy     *bluemonday.Policy
	logger     logr.Logger
}

// WithRegistry replaces the default registry.
func WithRegistry(registry *Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads override templates from disk. Templates missing
// from the directory fall back to the embedded bundle.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a template engine, bypassing the pongo2
// default.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templates = renderer
		}
	}
}

// WithTranslator sets the translator used for labels and template chrome.
func WithTranslator(t render.Translator) Option {
	return func(cfg *config) {
		cfg.translator = t
	}
}

// WithMissingTranslation overrides the text used for untranslated keys.
func WithMissingTranslation(handler render.MissingTranslationHandler) Option {
	return func(cfg *config) {
		cfg.onMissing = handler
	}
}

// WithPolicy replaces the HTML policy applied to info banners and rich
// text values.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Renderer turns blocks into HTML.
type Renderer struct {
	registry   *Registry
	templates  rendertemplate.TemplateRenderer
	translator render.Translator
	onMissing  render.MissingTranslationHandler
	policy     *bluemonday.Policy
	logger     logr.Logger
}

// New constructs a Renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{logger: logr.Discard()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = NewDefaultRegistry()
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.policy == nil {
		cfg.policy = bluemonday.UGCPolicy()
	}

	templates := cfg.templates
	if templates == nil {
		engineOpts := []gotemplate.Option{
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithTemplateFunc(render.TemplateI18nFuncs(cfg.translator, render.TemplateI18nConfig{
				OnMissing: cfg.onMissing,
			})),
			gotemplate.WithPostHook(traceTemplate(cfg.logger)),
		}
		if cfg.baseDir != "" {
			if _, err := os.Stat(cfg.baseDir); err != nil {
				return nil, fmt.Errorf("fields: templates dir: %w", err)
			}
			engineOpts = append(engineOpts, gotemplate.WithBaseDir(cfg.baseDir))
		}
		engine, err := gotemplate.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("fields: configure template renderer: %w", err)
		}
		templates = engine
	}

	return &Renderer{
		registry:   cfg.registry,
		templates:  templates,
		translator: cfg.translator,
		onMissing:  cfg.onMissing,
		policy:     cfg.policy,
		logger:     cfg.logger,
	}, nil
}

// traceTemplate logs each rendered template at V(2).
func traceTemplate(logger logr.Logger) gotemplatepkg.PostHook {
	return func(hctx *gotemplatepkg.HookContext) (string, error) {
		logger.V(2).Info("template rendered", "template", hctx.TemplateName, "bytes", len(hctx.Output))
		return hctx.Output, nil
	}
}

// Options returns the translation options for locale.
func (r *Renderer) Options(locale string) render.RenderOptions {
	return render.RenderOptions{Locale: locale, Translator: r.translator, OnMissing: r.onMissing}
}

// Visible reports whether b passes the gate: the viewer's permission must
// reach the block's permission status, and password pairs show only in
// ModeNoUser.
func Visible(b block.Block, mode Mode) bool {
	if !permission.Allows(b) {
		return false
	}
	if b.Type == block.TypePasswordNorm && mode != ModeNoUser {
		return false
	}
	return true
}

// Render renders a single block with no errors attached. Unknown kinds and
// gated blocks render as the empty string.
func (r *Renderer) Render(ctx context.Context, b block.Block, mode Mode) (string, error) {
	return r.RenderState(ctx, b, mode, State{})
}

// RenderState renders b with the locale and errors in st.
func (r *Renderer) RenderState(ctx context.Context, b block.Block, mode Mode, st State) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	descriptor, ok := r.registry.Descriptor(b.Component)
	if !ok {
		r.logger.V(1).Info("skipping block of unknown kind", "name", b.Key())
		return "", nil
	}
	if !Visible(b, mode) {
		return "", nil
	}

	field := NewField(b, st, r.Options(st.Locale), r.policy)
	var buf bytes.Buffer
	if err := descriptor.Renderer(&buf, field, Data{Template: r.templates, Locale: st.Locale, Mode: mode}); err != nil {
		return "", fmt.Errorf("fields: render %s %q: %w", b.Component, b.Key(), err)
	}
	return buf.String(), nil
}

// RenderAll renders blocks in order, dropping empty output.
func (r *Renderer) RenderAll(ctx context.Context, blocks []block.Block, mode Mode, st State) ([]string, error) {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		html, err := r.RenderState(ctx, b, mode, st)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(html) != "" {
			out = append(out, html)
		}
	}
	return out, nil
}

// FormView is the data of the form wrapper template.
type FormView struct {
	ID        string               `json:"id,omitempty"`
	ClassName string               `json:"className,omitempty"`
	Action    string               `json:"action,omitempty"`
	Element   bool                 `json:"element"`
	Multipart bool                 `json:"multipart"`
	Hidden    []render.HiddenField `json:"hidden,omitempty"`
	Fields    []string             `json:"fields,omitempty"`
	Children  string               `json:"children,omitempty"`
	Errors    []string             `json:"errors,omitempty"`
	Notice    string               `json:"notice,omitempty"`
}

// Form renders the form wrapper around already rendered fields.
func (r *Renderer) Form(view FormView) (string, error) {
	out, err := r.templates.RenderTemplate(FormTemplate, map[string]any{"form": view})
	if err != nil {
		return "", fmt.Errorf("fields: render form: %w", err)
	}
	return out, nil
}

// Banner renders the generic error banner with the translated key.
func (r *Renderer) Banner(locale, key string) (string, error) {
	out, err := r.templates.RenderTemplate(BannerTemplate, map[string]any{
		"message": r.Options(locale).T(key),
	})
	if err != nil {
		return "", fmt.Errorf("fields: render banner: %w", err)
	}
	return out, nil
}
