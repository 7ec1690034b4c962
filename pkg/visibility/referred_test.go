package visibility_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/visibility"
)

func TestReferred_Select(t *testing.T) {
	blocks := []block.Block{
		{
			Component: block.KindSelect,
			Name:      "kind",
			Referred:  true,
			Items:     []block.Item{{Item: "person"}, {Item: "company"}},
		},
	}

	got := visibility.Referred(blocks, map[string]block.Value{"kind": block.String("company")})
	want := map[string]bool{"person": false, "company": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("select tags mismatch (-want +got):\n%s", diff)
	}

	got = visibility.Referred(blocks, nil)
	want = map[string]bool{"person": true, "company": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("select default should pick first item (-want +got):\n%s", diff)
	}
}

func TestReferred_RadioHidesSelectedTag(t *testing.T) {
	blocks := []block.Block{
		{
			Component: block.KindRadio,
			Name:      "delivery",
			Referred:  true,
			Items:     []block.Item{{Item: "pickup"}, {Item: "courier"}},
		},
	}

	got := visibility.Referred(blocks, map[string]block.Value{"delivery": block.String("pickup")})
	want := map[string]bool{"pickup": false, "courier": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("radio tags mismatch (-want +got):\n%s", diff)
	}
}

func TestReferred_Switch(t *testing.T) {
	blocks := []block.Block{
		{Component: block.KindSwitch, Name: "advanced", Referred: true},
		{Component: block.KindSwitch, Name: "ignored"},
	}

	got := visibility.Referred(blocks, map[string]block.Value{"advanced": block.String("true")})
	if diff := cmp.Diff(map[string]bool{"advanced": true}, got); diff != "" {
		t.Fatalf("switch tags mismatch (-want +got):\n%s", diff)
	}

	got = visibility.Referred(blocks, map[string]block.Value{"advanced": block.String("false")})
	if diff := cmp.Diff(map[string]bool{"advanced": false}, got); diff != "" {
		t.Fatalf("switch tags mismatch (-want +got):\n%s", diff)
	}
}

func TestReferred_Idempotent(t *testing.T) {
	blocks := []block.Block{
		{Component: block.KindSwitch, Name: "advanced", Referred: true, Value: block.String("true")},
	}
	first := visibility.Referred(blocks, nil)
	second := visibility.Referred(blocks, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("referred not idempotent (-first +second):\n%s", diff)
	}
}

func TestApply_FiltersTaggedBlocks(t *testing.T) {
	blocks := []block.Block{
		{Component: block.KindSwitch, Name: "advanced", Referred: true},
		{Component: block.KindInputText, Name: "proxy", Ref: []string{"advanced"}},
		{Component: block.KindInputText, Name: "name"},
		{Component: block.KindInputText, Name: "orphan", Ref: []string{"nobody"}},
	}

	visible, err := visibility.Apply(blocks, map[string]block.Value{"advanced": block.String("false")}, nil, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	names := make([]string, 0, len(visible))
	for _, b := range visible {
		names = append(names, b.Name)
	}
	if diff := cmp.Diff([]string{"advanced", "name", "orphan"}, names); diff != "" {
		t.Fatalf("visible blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_EvaluatorRulesAndErrors(t *testing.T) {
	blocks := []block.Block{
		{Component: block.KindInputText, Name: "a", VisibleWhen: "show"},
		{Component: block.KindInputText, Name: "b", VisibleWhen: "hide"},
	}

	var seen visibility.Context
	eval := visibility.EvaluatorFunc(func(_ string, rule string, ctx visibility.Context) (bool, error) {
		seen = ctx
		return rule == "show", nil
	})

	visible, err := visibility.Apply(blocks, map[string]block.Value{"a": block.String("1")}, eval, map[string]any{"permission": 3})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(visible) != 1 || visible[0].Name != "a" {
		t.Fatalf("unexpected visible blocks %#v", visible)
	}
	if seen.Values["a"] != "1" || seen.Extras["permission"] != 3 {
		t.Fatalf("unexpected context %#v", seen)
	}

	boom := errors.New("boom")
	_, err = visibility.Apply(blocks, nil, visibility.EvaluatorFunc(func(string, string, visibility.Context) (bool, error) {
		return false, boom
	}), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected evaluator error, got %v", err)
	}
}
