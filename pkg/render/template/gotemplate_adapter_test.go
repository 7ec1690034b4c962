package template_test

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formblocks/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formblocks/pkg/testsupport"
)

var templates = fstest.MapFS{
	"hello.tpl":      {Data: []byte(`Hello {{ name }}!`)},
	"use-global.tpl": {Data: []byte(`env={{ settings.env }}`)},
	"use-filter.tpl": {Data: []byte(`{{ name|shout }}`)},
	"classes.tpl":    {Data: []byte(`<div class="{{ "form-group"|classes:ref }}"></div>`)},
	"heading.tpl":    {Data: []byte(`<{{ size|headingtag }}>x</{{ size|headingtag }}>`)},
}

func TestGoTemplateEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})

	want := "Hello Ada!"
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
	if written != want {
		t.Fatalf("render template mismatch writer\nwant: %q\n got: %q", want, written)
	}
}

func TestGoTemplateEngine_StructDataUsesJSONNames(t *testing.T) {
	engine := newEngine(t)

	type payload struct {
		Name string `json:"name"`
	}
	result, err := engine.RenderTemplate("hello", payload{Name: "Grace"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Hello Grace!" {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestGoTemplateEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "env=staging" {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestGoTemplateEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}

	result, err := engine.RenderTemplate("use-filter", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "ADA!" {
		t.Fatalf("unexpected output %q", result)
	}

	if err := engine.RegisterFilter("shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter registration to fail")
	}
}

func TestGoTemplateEngine_DefaultFilters(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.RenderTemplate("classes", map[string]any{"ref": " a  b "})
	if err != nil {
		t.Fatalf("render classes: %v", err)
	}
	if got != `<div class="form-group a b"></div>` {
		t.Fatalf("unexpected classes output %q", got)
	}

	for size, tag := range map[any]string{3: "h3", "5": "h5", 9: "h1", nil: "h1"} {
		got, err := engine.RenderTemplate("heading", map[string]any{"size": size})
		if err != nil {
			t.Fatalf("render heading: %v", err)
		}
		want := fmt.Sprintf("<%s>x</%s>", tag, tag)
		if got != want {
			t.Fatalf("size %v: want %q got %q", size, want, got)
		}
	}
}

func TestGoTemplateEngine_RenderString(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.Render("{{ a }}-{{ b }}", map[string]any{"a": 1, "b": "two"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "1-two" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestGoTemplateEngine_Hooks(t *testing.T) {
	var seen []string
	engine, err := gotemplate.New(
		gotemplate.WithFS(templates),
		gotemplate.WithPreHook(func(hctx *gotemplatepkg.HookContext) error {
			hctx.Data = map[string]any{"name": "Hopper"}
			return nil
		}),
		gotemplate.WithPostHook(func(hctx *gotemplatepkg.HookContext) (string, error) {
			seen = append(seen, hctx.TemplateName)
			return strings.ToUpper(hctx.Output), nil
		}),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "HELLO HOPPER!" {
		t.Fatalf("unexpected output %q", got)
	}
	if len(seen) != 1 || seen[0] != "hello" {
		t.Fatalf("post hook saw %v", seen)
	}
}

func TestGoTemplateEngine_HookErrors(t *testing.T) {
	engine, err := gotemplate.New(
		gotemplate.WithFS(templates),
		gotemplate.WithPostHook(func(*gotemplatepkg.HookContext) (string, error) {
			return "", fmt.Errorf("rejected")
		}),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := engine.RenderTemplate("hello", nil); err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("expected post hook error, got %v", err)
	}
}

func TestGoTemplateEngine_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without template source")
	}
}

func newEngine(t *testing.T) *gotemplate.Engine {
	t.Helper()
	engine, err := gotemplate.New(gotemplate.WithFS(templates))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
