package fields

import (
	"bytes"
	"fmt"

	"github.com/goliatone/go-formblocks/pkg/block"
)

// NewDefaultRegistry registers every built-in kind against its embedded
// template.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	for _, kind := range block.Kinds() {
		renderer := templateRenderer(fieldPrefix + string(kind))
		if kind == block.KindPassword {
			renderer = passwordRenderer(renderer)
		}
		registry.MustRegister(kind, Descriptor{Renderer: renderer})
	}
	return registry
}

func templateRenderer(templateName string) RenderFunc {
	return func(buf *bytes.Buffer, field Field, data Data) error {
		if data.Template == nil {
			return fmt.Errorf("fields: template renderer not configured for %q", templateName)
		}
		payload := map[string]any{
			"field":  field,
			"locale": data.Locale,
			"mode":   string(data.Mode),
		}
		if _, err := data.Template.RenderTemplate(templateName, payload, buf); err != nil {
			return fmt.Errorf("fields: render template %q: %w", templateName, err)
		}
		return nil
	}
}

// passwordRenderer only renders the self-registration password pair;
// other password types produce nothing.
func passwordRenderer(next RenderFunc) RenderFunc {
	return func(buf *bytes.Buffer, field Field, data Data) error {
		if field.Type != block.TypePasswordNorm {
			return nil
		}
		return next(buf, field, data)
	}
}
