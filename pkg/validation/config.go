package validation

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-formblocks/pkg/block"
)

// ConfigIssue is a problem found in a block configuration.
type ConfigIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ConfigResult captures the outcome of ValidateConfig.
type ConfigResult struct {
	Valid  bool          `json:"valid"`
	Issues []ConfigIssue `json:"issues,omitempty"`
}

// ValidateConfig lints decoded blocks: every block needs a known kind and
// an identity, names must be unique, patterns must compile, choice kinds
// need items or an item source, and length bounds must be ordered.
func ValidateConfig(blocks []block.Block) ConfigResult {
	result := ConfigResult{Valid: true}
	add := func(i int, b block.Block, format string, args ...any) {
		result.Valid = false
		result.Issues = append(result.Issues, ConfigIssue{
			Path:    "/" + strconv.Itoa(i),
			Field:   b.Key(),
			Message: fmt.Sprintf(format, args...),
		})
	}

	for i, b := range blocks {
		if !b.Component.Valid() {
			add(i, b, "unknown component")
		}
		if b.Key() == "" && needsIdentity(b.Component) {
			add(i, b, "block has neither name nor id")
		}

		rules := b.Validate
		if rules.Pattern != "" {
			if _, err := compilePattern(rules.Pattern); err != nil {
				add(i, b, "pattern does not compile: %v", err)
			}
		}
		if rules.MinLength > 0 && rules.MaxLength > 0 && rules.MinLength > rules.MaxLength {
			add(i, b, "minLength %d exceeds maxLength %d", rules.MinLength, rules.MaxLength)
		}
		switch rules.Type {
		case "", TypeNumber, TypeString, TypeEmail, TypeURL:
		default:
			add(i, b, "unknown validate type %q", rules.Type)
		}
		switch rules.Check {
		case "", CheckEmail, CheckUsername:
		default:
			add(i, b, "unknown check %q", rules.Check)
		}

		switch b.Component {
		case block.KindSelect, block.KindRadio:
			if len(b.Items) == 0 && !b.HasItemSource() && !b.IsMultiSelect() {
				add(i, b, "%s has no items", b.Component)
			}
		case block.KindHeading:
			if b.Size < 0 || b.Size > 6 {
				add(i, b, "heading size %d outside 1..6", b.Size)
			}
		}
		if b.HasItemSource() && (b.ItemKey == "" || b.TextItemKey == "") {
			add(i, b, "item source %q needs itemKey and textitemKey", b.URL)
		}
	}

	for _, name := range block.Duplicates(blocks) {
		result.Valid = false
		result.Issues = append(result.Issues, ConfigIssue{Field: name, Message: "duplicate field name"})
	}
	return result
}

// needsIdentity reports whether a kind submits a value.
func needsIdentity(kind block.Kind) bool {
	switch kind {
	case block.KindHeading, block.KindText, block.KindInfo, block.KindImage:
		return false
	default:
		return true
	}
}
