package block_test

import (
	"encoding/json"
	"testing"

	"github.com/goliatone/go-formblocks/pkg/block"
)

func TestLevel_DecodesNumbersAndStrings(t *testing.T) {
	cases := map[string]block.Level{
		`1`:       1,
		`"2"`:     2,
		`"  3 "`:  3,
		`100`:     100,
		`"4.0"`:   4,
		`"admin"`: block.LevelNone,
		`null`:    block.LevelNone,
		`""`:      block.LevelNone,
	}
	for raw, want := range cases {
		var got block.Level
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if got != want {
			t.Fatalf("unmarshal %s: got %v want %v", raw, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, ok := block.ParseLevel("5"); !ok || lvl != 5 {
		t.Fatalf("expected 5, got %v %v", lvl, ok)
	}
	if _, ok := block.ParseLevel(""); ok {
		t.Fatalf("expected empty string to be rejected")
	}
	if lvl, ok := block.ParseLevel(float64(2)); !ok || lvl != block.LevelAdmin {
		t.Fatalf("expected admin level, got %v %v", lvl, ok)
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range block.Kinds() {
		if got := block.ParseKind(" " + string(kind) + " "); got != kind {
			t.Fatalf("ParseKind(%q) = %q", kind, got)
		}
	}
	if got := block.ParseKind("InputText"); got != block.KindInputText {
		t.Fatalf("expected case-insensitive match, got %q", got)
	}
	if len(block.Kinds()) != 13 {
		t.Fatalf("expected 13 kinds, got %d", len(block.Kinds()))
	}
}
