package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

func TestValidateConfig(t *testing.T) {
	blocks := []block.Block{
		{Component: block.KindInputText, Name: "email", Validate: block.Validate{Type: "email"}},
		{Component: block.KindUnknown, Name: "mystery"},
		{Component: block.KindSelect, Name: "role"},
		{Component: block.KindInputText, Name: "email", Validate: block.Validate{Pattern: "(", MinLength: 5, MaxLength: 2}},
		{Component: block.KindHeading, Size: 9},
		{Component: block.KindRadio, Name: "src", URL: "rollist"},
	}

	result := validation.ValidateConfig(blocks)
	if result.Valid {
		t.Fatalf("expected invalid config")
	}
	var got []string
	for _, issue := range result.Issues {
		got = append(got, issue.Path+" "+issue.Field)
	}
	want := []string{
		"/1 mystery",
		"/2 role",
		"/3 email",
		"/3 email",
		"/4 ",
		"/5 src",
		" email",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateConfig_Clean(t *testing.T) {
	blocks := []block.Block{
		{Component: block.KindHeading, Headline: "general.title", Size: 2},
		{Component: block.KindSelect, Name: "role", Items: []block.Item{{Item: "1", TextItem: "admin"}}},
		{Component: block.KindSelect, Type: block.TypeCreateSelect, Name: "to"},
	}
	if result := validation.ValidateConfig(blocks); !result.Valid {
		t.Fatalf("unexpected issues %#v", result.Issues)
	}
}
