package prompt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/permission"
	"github.com/goliatone/go-formblocks/pkg/prompt"
	"github.com/goliatone/go-formblocks/pkg/render"
)

type stubDriver struct {
	inputs    []string
	passwords []string
	confirm   []bool
	selectIdx []int
	multiIdx  [][]int
	textAreas []string
	info      []string
	messages  []string
}

func (s *stubDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[0]
	s.inputs = s.inputs[1:]
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.passwords) == 0 {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[0]
	s.passwords = s.passwords[1:]
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.confirm) == 0 {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[0]
	s.confirm = s.confirm[1:]
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.selectIdx) == 0 {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[0]
	s.selectIdx = s.selectIdx[1:]
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg prompt.SelectConfig) ([]int, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.multiIdx) == 0 {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[0]
	s.multiIdx = s.multiIdx[1:]
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.textAreas) == 0 {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[0]
	s.textAreas = s.textAreas[1:]
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.info = append(s.info, msg)
	return nil
}

func renderOptions() render.RenderOptions {
	catalog := render.NewCatalog("en")
	catalog.Add("en", map[string]string{
		"login.username":                "Username",
		"login.twostepverificationcode": "Verification code",
		"error.field_required":          "This field is required",
		"error.password_not_match":      "Passwords do not match",
		"System.repeat":                 "Repeat",
	})
	return render.RenderOptions{Locale: "en", Translator: catalog}
}

func TestForm_CollectsElements(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"ada"},
		passwords: []string{"secret", "secret"},
		confirm:   []bool{true, false},
		selectIdx: []int{1},
		multiIdx:  [][]int{{0, 2}},
	}
	p := prompt.New(prompt.WithDriver(driver), prompt.WithRenderOptions(renderOptions()))

	blocks := []block.Block{
		{Component: block.KindHeading, Headline: "Sign in"},
		{Component: block.KindInputText, Name: "token", Type: block.TypeHidden, Value: block.String("t-1")},
		{Component: block.KindInputText, Name: "username", Label: "login.username", Validate: block.Validate{Required: true}},
		{Component: block.KindPassword, Type: block.TypePasswordNorm, Name: "password", Label: "general.password"},
		{Component: block.KindCheckbox, Name: "remember"},
		{Component: block.KindSwitch, Name: "newsletter"},
		{Component: block.KindRadio, Name: "plan", Items: []block.Item{{Item: "free"}, {Item: "pro"}}},
		{Component: block.KindSelect, Type: block.TypeCreateSelect, Name: "tags", Items: []block.Item{{Item: "a"}, {Item: "b"}, {Item: "c"}}},
		{Component: block.KindButton, Name: "send"},
		{Component: block.KindUnknown, Name: "mystery"},
	}

	got, err := p.Form(context.Background(), blocks, fields.ModeNoUser)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	want := []formstate.Element{
		{Name: "token", Value: "t-1"},
		{Name: "username", Value: "ada"},
		{Name: "password", Value: "secret"},
		{Name: "password_confirmation", Value: "secret"},
		{Name: "remember", Value: "true"},
		{Name: "plan", Value: "pro"},
		{Name: "tags", Value: "a"},
		{Name: "tags", Value: "c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("elements mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Sign in"}, driver.info); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	if driver.messages[0] != "Username *" {
		t.Fatalf("expected translated required label, got %q", driver.messages[0])
	}
}

func TestForm_RepromptsInvalidAnswers(t *testing.T) {
	driver := &stubDriver{inputs: []string{"", "ada"}, passwords: []string{"a", "b", "c", "c"}}
	p := prompt.New(prompt.WithDriver(driver), prompt.WithRenderOptions(renderOptions()))

	got, err := p.Form(context.Background(), []block.Block{
		{Component: block.KindInputText, Name: "username", Validate: block.Validate{Required: true}},
		{Component: block.KindPassword, Type: block.TypePasswordNorm, Name: "password"},
	}, fields.ModeNoUser)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if len(got) != 3 || got[0].Value != "ada" || got[1].Value != "c" {
		t.Fatalf("unexpected elements %#v", got)
	}
	if diff := cmp.Diff([]string{"This field is required", "Passwords do not match"}, driver.info); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestForm_GivesUpAfterAttempts(t *testing.T) {
	driver := &stubDriver{inputs: []string{"", ""}}
	p := prompt.New(prompt.WithDriver(driver), prompt.WithAttempts(2))

	_, err := p.Form(context.Background(), []block.Block{
		{Component: block.KindInputText, Name: "username", Validate: block.Validate{Required: true}},
	}, fields.ModeNoUser)
	if !errors.Is(err, prompt.ErrTooManyAttempts) {
		t.Fatalf("expected too many attempts, got %v", err)
	}
}

func TestForm_SkipsGatedBlocks(t *testing.T) {
	driver := &stubDriver{}
	p := prompt.New(prompt.WithDriver(driver))

	got, err := p.Form(context.Background(), []block.Block{
		{Component: block.KindInputText, Name: "salary", Permission: block.LevelAdmin, PermissionStatus: permission.Unrestricted},
		{Component: block.KindPassword, Type: block.TypePasswordNorm, Name: "password"},
	}, fields.ModeUser)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if len(got) != 0 || len(driver.messages) != 0 {
		t.Fatalf("gated blocks were prompted: %#v %#v", got, driver.messages)
	}
}

func TestPromptCode(t *testing.T) {
	driver := &stubDriver{inputs: []string{"123456"}}
	p := prompt.New(prompt.WithDriver(driver), prompt.WithRenderOptions(renderOptions()))

	code, err := p.PromptCode(context.Background())
	if err != nil {
		t.Fatalf("prompt code: %v", err)
	}
	if code != "123456" || driver.messages[0] != "Verification code" {
		t.Fatalf("unexpected prompt %q / %q", code, driver.messages[0])
	}
}

func TestForm_MasksPasswordTypedInputs(t *testing.T) {
	driver := &stubDriver{inputs: []string{"ada"}, passwords: []string{"secret"}}
	p := prompt.New(prompt.WithDriver(driver), prompt.WithRenderOptions(renderOptions()))

	got, err := p.Form(context.Background(), []block.Block{
		{Component: block.KindInputText, Name: "username", Label: "login.username"},
		{Component: block.KindInputText, Type: block.TypePassword, Name: "password", Value: block.String("stale")},
	}, fields.ModeUser)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	want := []formstate.Element{{Name: "username", Value: "ada"}, {Name: "password", Value: "secret"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("elements mismatch (-want +got):\n%s", diff)
	}
	if len(driver.passwords) != 0 {
		t.Fatalf("password input should use the masked prompt")
	}
}
