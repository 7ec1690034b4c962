package fields

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/render"
)

// Field is the template view of a block: labels translated, the current
// value resolved, errors attached. Templates see the JSON names.
type Field struct {
	Kind         string        `json:"kind"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type,omitempty"`
	Label        string        `json:"label,omitempty"`
	Placeholder  string        `json:"placeholder,omitempty"`
	Value        string        `json:"value"`
	Values       []string      `json:"values,omitempty"`
	ClassName    string        `json:"className,omitempty"`
	Ref          string        `json:"ref,omitempty"`
	Style        string        `json:"style,omitempty"`
	Autocomplete string        `json:"autocomplete,omitempty"`
	Required     bool          `json:"required"`
	Hidden       bool          `json:"hidden"`
	Login        bool          `json:"login"`
	Multiple     bool          `json:"multiple"`
	Checked      bool          `json:"checked"`
	Error        string        `json:"error,omitempty"`
	Options      []Choice      `json:"options,omitempty"`
	Headline     string        `json:"headline,omitempty"`
	Size         int           `json:"size,omitempty"`
	Text         string        `json:"text,omitempty"`
	HTML         string        `json:"html,omitempty"`
	Variant      string        `json:"variant,omitempty"`
	Severity     string        `json:"severity,omitempty"`
	Color        string        `json:"color,omitempty"`
	Image        string        `json:"image,omitempty"`
	ButtonClass  string        `json:"buttonClass,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// Choice is one option of a select or radio group.
type Choice struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// Confirmation describes the second input of a password pair.
type Confirmation struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Error string `json:"error,omitempty"`
}

// State is the per-render input besides the block: the locale and any
// errors reported for the form's fields.
type State struct {
	Locale string
	Errors render.ErrorMapping
}

// styleLogin selects the compact login layout for text inputs.
const styleLogin = "login"

// NewField builds the view of b.
func NewField(b block.Block, st State, opts render.RenderOptions, policy *bluemonday.Policy) Field {
	f := Field{
		Kind:         string(b.Component),
		ID:           b.ID,
		Name:         b.Name,
		Type:         b.Type,
		Label:        opts.T(b.Label),
		Placeholder:  opts.T(b.Placeholder),
		Value:        b.Value.String(),
		ClassName:    strings.TrimSpace(b.ClassName),
		Ref:          strings.Join(b.Ref, " "),
		Style:        b.Style,
		Autocomplete: b.Autocomplete,
		Required:     b.Validate.Required,
		Hidden:       b.IsHidden(),
		Login:        b.Style == styleLogin,
		Multiple:     b.IsMultiSelect(),
		Error:        st.Errors.For(b.Key()),
		Headline:     opts.T(b.Headline),
		Size:         b.Size,
		Text:         opts.T(b.Text),
		Variant:      b.Variant,
		Severity:     b.Severity,
		Color:        b.Color,
		Image:        b.URLImage,
		ButtonClass:  b.ClassNameButton,
	}
	if f.ID == "" {
		f.ID = b.Key()
	}
	if f.Name == "" {
		f.Name = b.Key()
	}

	switch b.Component {
	case block.KindCheckbox, block.KindSwitch:
		f.Checked = f.Value == "true"
	case block.KindSelect:
		f.Options, f.Values = selectOptions(b, opts)
		if !f.Multiple && len(f.Values) > 0 {
			f.Value = f.Values[0]
		}
	case block.KindRadio:
		f.Options = radioOptions(b, opts)
	case block.KindInfo:
		if policy != nil {
			f.HTML = policy.Sanitize(b.TextHTML)
		}
	case block.KindRichText:
		if policy != nil {
			f.HTML = policy.Sanitize(f.Value)
		}
	case block.KindPassword:
		f.Value = ""
		f.Confirmation = &Confirmation{
			ID:    b.ConfirmationID(),
			Name:  b.ConfirmationName(),
			Label: opts.T("System.repeat") + " " + f.Label,
			Error: st.Errors.For(b.ConfirmationName()),
		}
	}
	return f
}

// selectOptions marks the selected items. A single select with no value
// selects its first item.
func selectOptions(b block.Block, opts render.RenderOptions) ([]Choice, []string) {
	selected := b.Value.Strings()
	if !b.IsMultiSelect() && (len(selected) == 0 || selected[0] == "") && len(b.Items) > 0 {
		selected = []string{b.Items[0].Item}
	}
	lookup := make(map[string]struct{}, len(selected))
	for _, v := range selected {
		lookup[v] = struct{}{}
	}

	options := make([]Choice, 0, len(b.Items)+len(selected))
	known := make(map[string]struct{}, len(b.Items))
	for _, item := range b.Items {
		_, ok := lookup[item.Item]
		options = append(options, Choice{Value: item.Item, Text: opts.T(item.TextItem), Selected: ok})
		known[item.Item] = struct{}{}
	}
	// Values created by the user in a creatable select are not in the item
	// list; keep them so they survive a re-render.
	if b.IsMultiSelect() {
		for _, v := range selected {
			if _, ok := known[v]; !ok && v != "" {
				options = append(options, Choice{Value: v, Text: v, Selected: true})
			}
		}
	}
	return options, selected
}

func radioOptions(b block.Block, opts render.RenderOptions) []Choice {
	value := b.Value.String()
	options := make([]Choice, 0, len(b.Items))
	for _, item := range b.Items {
		options = append(options, Choice{Value: item.Item, Text: opts.T(item.TextItem), Selected: item.Item == value})
	}
	return options
}
