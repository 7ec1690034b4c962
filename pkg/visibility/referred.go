package visibility

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formblocks/pkg/block"
)

// Referred computes tag visibility from the referred blocks and the current
// values. Later blocks override earlier ones when they toggle the same tag.
//
//   - select: the tag equal to each item id is visible iff the value equals
//     that id; an empty value selects the first item.
//   - radio group: the tag equal to each item id is hidden iff the value
//     equals that id.
//   - switch: the tag equal to the switch name is visible iff the value is
//     "true".
//
// Tags no referred block mentions are absent from the result.
func Referred(blocks []block.Block, values map[string]block.Value) map[string]bool {
	tags := make(map[string]bool)
	for _, b := range blocks {
		if !b.Referred {
			continue
		}
		current, ok := values[b.Key()]
		if !ok {
			current = b.Value
		}
		value := current.String()

		switch b.Component {
		case block.KindSelect:
			if value == "" && len(b.Items) > 0 {
				value = b.Items[0].Item
			}
			for _, item := range b.Items {
				if tag := strings.TrimSpace(item.Item); tag != "" {
					tags[tag] = value == item.Item
				}
			}
		case block.KindRadio:
			for _, item := range b.Items {
				if tag := strings.TrimSpace(item.Item); tag != "" {
					tags[tag] = value != item.Item
				}
			}
		case block.KindSwitch:
			if tag := b.Key(); tag != "" {
				tags[tag] = value == "true"
			}
		}
	}
	return tags
}

// Visible reports whether b survives the tag map: any tag mapped to false
// hides it.
func Visible(b block.Block, tags map[string]bool) bool {
	for _, tag := range b.Ref {
		if shown, ok := tags[tag]; ok && !shown {
			return false
		}
	}
	return true
}

// Apply returns the blocks that remain visible for values. Blocks carrying a
// hidden tag are dropped, then blocks whose VisibleWhen rule evaluates false.
// A nil evaluator skips rule evaluation. Evaluation errors abort.
func Apply(blocks []block.Block, values map[string]block.Value, evaluator Evaluator, extras map[string]any) ([]block.Block, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	tags := Referred(blocks, values)
	ctx := Context{Values: plainValues(blocks, values), Extras: extras}

	out := make([]block.Block, 0, len(blocks))
	for _, b := range blocks {
		if !Visible(b, tags) {
			continue
		}
		if rule := strings.TrimSpace(b.VisibleWhen); rule != "" && evaluator != nil {
			ok, err := evaluator.Eval(b.Key(), rule, ctx)
			if err != nil {
				return nil, fmt.Errorf("visibility: evaluate %q: %w", b.Key(), err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func plainValues(blocks []block.Block, values map[string]block.Value) map[string]any {
	out := make(map[string]any, len(values)+len(blocks))
	for _, b := range blocks {
		if key := b.Key(); key != "" {
			out[key] = b.Value.Any()
		}
	}
	for key, value := range values {
		out[key] = value.Any()
	}
	return out
}
