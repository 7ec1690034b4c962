package block_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/block"
)

func TestDecode_ArrayAndWrappedStringMatch(t *testing.T) {
	array := `[{"component":"inputtext","name":"email","label":"Email","permission":"3","validate":{"required":true,"type":"email"}}]`
	wrapped, err := json.Marshal(array)
	if err != nil {
		t.Fatalf("marshal wrapped: %v", err)
	}

	fromArray, err := block.Decode([]byte(array))
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	fromString, err := block.Decode(wrapped)
	if err != nil {
		t.Fatalf("decode wrapped: %v", err)
	}

	if diff := cmp.Diff(fromArray, fromString, cmp.Comparer(valueEqual)); diff != "" {
		t.Fatalf("wrapped config mismatch (-want +got):\n%s", diff)
	}
	if fromArray[0].Permission != block.Level(3) {
		t.Fatalf("expected numeric level 3, got %v", fromArray[0].Permission)
	}
}

func TestDecode_UnescapesHTMLEntities(t *testing.T) {
	raw := `"[{&quot;component&quot;:&quot;text&quot;,&quot;name&quot;:&quot;intro&quot;,&quot;text&quot;:&quot;Hello&quot;}]"`

	blocks, err := block.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Component != block.KindText || blocks[0].Text != "Hello" {
		t.Fatalf("unexpected blocks: %#v", blocks)
	}
}

func TestDecode_FlatValidationKeysWin(t *testing.T) {
	raw := `[{
		"component":"inputtext",
		"name":"username",
		"validate":{"required":false,"minLength":2,"type":"string"},
		"required":"true",
		"validatetype":"email",
		"check":"username",
		"minlength":"4",
		"maxlength":12,
		"pattern":"[<>]"
	}]`

	blocks, err := block.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := block.Validate{
		Required:  true,
		Type:      "email",
		Check:     "username",
		MinLength: 4,
		MaxLength: 12,
		Pattern:   "[<>]",
	}
	if diff := cmp.Diff(want, blocks[0].Validate); diff != "" {
		t.Fatalf("validate mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_IDAndNameFallback(t *testing.T) {
	raw := `[{"component":"switch","name":"active"},{"component":"button","id":42}]`

	blocks, err := block.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if blocks[0].ID != "active" {
		t.Fatalf("expected id to fall back to name, got %q", blocks[0].ID)
	}
	if blocks[1].Name != "42" || blocks[1].ID != "42" {
		t.Fatalf("expected numeric id to fill name, got %#v", blocks[1])
	}
}

func TestDecode_UnknownComponent(t *testing.T) {
	blocks, err := block.Decode([]byte(`[{"component":"carousel","name":"x"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if blocks[0].Component != block.KindUnknown {
		t.Fatalf("expected unknown kind, got %q", blocks[0].Component)
	}
}

func TestDecode_Envelope(t *testing.T) {
	raw := `{"content":{"body":[{"component":"heading","headline":"Profile","size":"2"}]}}`

	blocks, err := block.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if blocks[0].Size != 2 || blocks[0].Headline != "Profile" {
		t.Fatalf("unexpected heading: %#v", blocks[0])
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := block.Decode([]byte(`42`)); !errors.Is(err, block.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	blocks, err := block.Decode([]byte(`null`))
	if err != nil || blocks != nil {
		t.Fatalf("expected empty result for null, got %v %v", blocks, err)
	}
}

func TestDecode_ItemsAndRefs(t *testing.T) {
	raw := `[{"component":"select","name":"country","items":[{"item":1,"textitem":"Spain"},{"item":"pt","textitem":"Portugal"}],"ref":"a, b"}]`

	blocks, err := block.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantItems := []block.Item{{Item: "1", TextItem: "Spain"}, {Item: "pt", TextItem: "Portugal"}}
	if diff := cmp.Diff(wantItems, blocks[0].Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, blocks[0].Ref); diff != "" {
		t.Fatalf("ref mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicates(t *testing.T) {
	blocks := []block.Block{
		{Name: "email"},
		{Name: "name"},
		{Name: "email"},
		{Name: "email"},
		{},
	}
	if diff := cmp.Diff([]string{"email"}, block.Duplicates(blocks)); diff != "" {
		t.Fatalf("duplicates mismatch (-want +got):\n%s", diff)
	}
}

func valueEqual(a, b block.Value) bool {
	return a.Equal(b)
}
