package celexpr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/visibility"
	"github.com/goliatone/go-formblocks/pkg/visibility/celexpr"
)

func TestEvaluator_Eval(t *testing.T) {
	eval, err := celexpr.New()
	require.NoError(t, err)

	ctx := visibility.Context{
		Values: map[string]any{"country": "es", "active": "true"},
		Extras: map[string]any{"permission": 2},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{rule: `values.country == "es"`, want: true},
		{rule: `values.active == "true" && extras.permission <= 2`, want: true},
		{rule: `"missing" in values`, want: false},
		{rule: `field.startsWith("vat")`, want: true},
	}
	for _, tc := range cases {
		got, err := eval.Eval("vat_number", tc.rule, ctx)
		require.NoError(t, err, tc.rule)
		require.Equal(t, tc.want, got, tc.rule)
	}
}

func TestEvaluator_RejectsNonBool(t *testing.T) {
	eval, err := celexpr.New()
	require.NoError(t, err)

	require.Error(t, eval.Compile(`1 + 1`))
	require.Error(t, eval.Compile(`values.`))

	_, err = eval.Eval("x", `values.country`, visibility.Context{Values: map[string]any{"country": "es"}})
	require.Error(t, err)
}

func TestEvaluator_WithApply(t *testing.T) {
	eval, err := celexpr.New()
	require.NoError(t, err)

	blocks := []block.Block{
		{Component: block.KindSelect, Name: "kind", Value: block.String("company")},
		{Component: block.KindInputText, Name: "vat", VisibleWhen: `values.kind == "company"`},
		{Component: block.KindInputText, Name: "dni", VisibleWhen: `values.kind == "person"`},
	}

	visible, err := visibility.Apply(blocks, nil, eval, nil)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	require.Equal(t, "vat", visible[1].Name)
}
