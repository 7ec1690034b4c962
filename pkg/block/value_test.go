package block_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/block"
)

func TestValue_UnmarshalShapes(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantNull  bool
		wantMulti bool
		want      string
	}{
		{name: "null", raw: `null`, wantNull: true},
		{name: "string", raw: `"ada"`, want: "ada"},
		{name: "number", raw: `12`, want: "12"},
		{name: "bool", raw: `true`, want: "true"},
		{name: "list", raw: `["a","b"]`, wantMulti: true, want: "a,b"},
		{name: "option objects", raw: `[{"item":"x","textitem":"X"},{"value":"y"}]`, wantMulti: true, want: "x,y"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v block.Value
			if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if v.IsNull() != tc.wantNull {
				t.Fatalf("IsNull = %v, want %v", v.IsNull(), tc.wantNull)
			}
			if v.IsMulti() != tc.wantMulti {
				t.Fatalf("IsMulti = %v, want %v", v.IsMulti(), tc.wantMulti)
			}
			if v.String() != tc.want {
				t.Fatalf("String = %q, want %q", v.String(), tc.want)
			}
		})
	}
}

func TestValue_BlankKeepsShape(t *testing.T) {
	if !block.String("x").Blank().Equal(block.String("")) {
		t.Fatalf("scalar blank should be empty string")
	}
	if !block.List("a").Blank().Equal(block.List()) {
		t.Fatalf("list blank should be empty list")
	}
	if !(block.Value{}).Blank().IsNull() {
		t.Fatalf("null blank should stay null")
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	payload := map[string]block.Value{
		"a": block.String("1"),
		"b": block.List("x", "y"),
		"c": {},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"a":"1","b":["x","y"],"c":null}`
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Fatalf("marshal mismatch (-want +got):\n%s", diff)
	}
}

func TestValueOf(t *testing.T) {
	if got := block.ValueOf(float64(7)).String(); got != "7" {
		t.Fatalf("number: got %q", got)
	}
	if got := block.ValueOf([]any{"a", map[string]any{"item": "b"}}).Strings(); !cmp.Equal(got, []string{"a", "b"}) {
		t.Fatalf("list: got %v", got)
	}
	if !block.ValueOf(nil).IsNull() {
		t.Fatalf("nil should be null")
	}
}
