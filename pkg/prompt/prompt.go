// Package prompt fills a form from the terminal: each visible block becomes
// a survey prompt and the answers become submitted form elements.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/twostep"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

var (
	// ErrAborted signals the user aborted input (e.g. Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrTooManyAttempts is returned when a field keeps failing validation.
	ErrTooManyAttempts = errors.New("prompt: too many invalid answers")
)

const defaultAttempts = 3

// Option configures a Prompter.
type Option func(*Prompter)

// WithDriver replaces the survey driver.
func WithDriver(driver Driver) Option {
	return func(p *Prompter) {
		if driver != nil {
			p.driver = driver
		}
	}
}

// WithRenderOptions sets the translator and locale used for labels and
// validation messages.
func WithRenderOptions(opts render.RenderOptions) Option {
	return func(p *Prompter) {
		p.opts = opts
	}
}

// WithChecker enables the username and email uniqueness checks.
func WithChecker(checker validation.Checker) Option {
	return func(p *Prompter) {
		p.checker = checker
	}
}

// WithAttempts bounds how often an invalid answer is asked again.
func WithAttempts(n int) Option {
	return func(p *Prompter) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// Prompter asks for block values on the terminal.
type Prompter struct {
	driver   Driver
	opts     render.RenderOptions
	checker  validation.Checker
	attempts int
	strip    *bluemonday.Policy
}

var _ twostep.CodePrompter = (*Prompter)(nil)

// New returns a Prompter using the survey driver by default.
func New(opts ...Option) *Prompter {
	p := &Prompter{attempts: defaultAttempts, strip: bluemonday.StrictPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.driver == nil {
		p.driver = NewSurveyDriver(nil)
	}
	return p
}

// PromptCode asks for the second-factor code.
func (p *Prompter) PromptCode(ctx context.Context) (string, error) {
	return p.driver.Input(ctx, InputConfig{Message: p.opts.T(twostep.MessagePrompt)})
}

// Form prompts every block visible in mode, in order, and returns the
// answers as form elements.
func (p *Prompter) Form(ctx context.Context, blocks []block.Block, mode fields.Mode) ([]formstate.Element, error) {
	var out []formstate.Element
	for _, b := range blocks {
		if !b.Component.Valid() || !fields.Visible(b, mode) {
			continue
		}
		elements, err := p.promptBlock(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", b.Key(), err)
		}
		out = append(out, elements...)
	}
	return out, nil
}

func (p *Prompter) promptBlock(ctx context.Context, b block.Block) ([]formstate.Element, error) {
	switch b.Component {
	case block.KindHeading:
		return nil, p.driver.Info(ctx, p.opts.T(b.Headline))
	case block.KindText:
		return nil, p.driver.Info(ctx, p.opts.T(b.Text))
	case block.KindInfo:
		return nil, p.driver.Info(ctx, html.UnescapeString(strings.TrimSpace(p.strip.Sanitize(b.TextHTML))))
	case block.KindInputText:
		return p.promptText(ctx, b)
	case block.KindPassword:
		return p.promptPassword(ctx, b)
	case block.KindCheckbox, block.KindSwitch:
		return p.promptToggle(ctx, b)
	case block.KindSelect, block.KindRadio:
		return p.promptChoice(ctx, b)
	case block.KindRichText:
		value, err := p.driver.TextArea(ctx, InputConfig{Message: p.opts.T(b.Label), Default: b.Value.String()})
		if err != nil {
			return nil, err
		}
		return []formstate.Element{{Name: b.Key(), Value: value}}, nil
	default:
		// images, buttons and files have nothing to ask on a terminal
		return nil, nil
	}
}

func (p *Prompter) promptText(ctx context.Context, b block.Block) ([]formstate.Element, error) {
	if b.IsHidden() {
		return []formstate.Element{{Name: b.Key(), Value: b.Value.String()}}, nil
	}
	cfg := InputConfig{Message: p.label(b), Default: b.Value.String(), Help: p.opts.T(b.Placeholder)}
	ask := p.driver.Input
	if b.Type == block.TypePassword {
		ask = p.driver.Password
		cfg.Default = ""
	}
	for attempt := 0; attempt < p.attempts; attempt++ {
		value, err := ask(ctx, cfg)
		if err != nil {
			return nil, err
		}
		issue, err := validation.Text(ctx, b, value, p.checker, p.opts)
		if err != nil {
			return nil, err
		}
		if issue == nil {
			return []formstate.Element{{Name: b.Key(), Value: value}}, nil
		}
		if err := p.driver.Info(ctx, issue.Message); err != nil {
			return nil, err
		}
		cfg.Default = value
	}
	return nil, ErrTooManyAttempts
}

func (p *Prompter) promptPassword(ctx context.Context, b block.Block) ([]formstate.Element, error) {
	label := p.label(b)
	for attempt := 0; attempt < p.attempts; attempt++ {
		password, err := p.driver.Password(ctx, InputConfig{Message: label})
		if err != nil {
			return nil, err
		}
		confirmation, err := p.driver.Password(ctx, InputConfig{Message: p.opts.T("System.repeat") + " " + p.opts.T(b.Label)})
		if err != nil {
			return nil, err
		}
		result := validation.Password(b, password, confirmation, p.opts)
		if result.Valid() {
			return []formstate.Element{
				{Name: b.Key(), Value: password},
				{Name: b.ConfirmationName(), Value: confirmation},
			}, nil
		}
		for _, issue := range []*validation.Issue{result.Primary, result.Confirmation} {
			if issue == nil {
				continue
			}
			if err := p.driver.Info(ctx, issue.Message); err != nil {
				return nil, err
			}
		}
	}
	return nil, ErrTooManyAttempts
}

// promptToggle only submits checked toggles, like a browser does.
func (p *Prompter) promptToggle(ctx context.Context, b block.Block) ([]formstate.Element, error) {
	checked, err := p.driver.Confirm(ctx, ConfirmConfig{Message: p.label(b), Default: b.Value.String() == "true"})
	if err != nil || !checked {
		return nil, err
	}
	return []formstate.Element{{Name: b.Key(), Value: "true"}}, nil
}

func (p *Prompter) promptChoice(ctx context.Context, b block.Block) ([]formstate.Element, error) {
	if len(b.Items) == 0 {
		return nil, nil
	}
	options := make([]string, len(b.Items))
	for i, item := range b.Items {
		options[i] = p.opts.T(item.TextItem)
	}
	current := b.Value.Strings()

	if b.IsMultiSelect() {
		var defaults []int
		for i, item := range b.Items {
			for _, v := range current {
				if v == item.Item {
					defaults = append(defaults, i)
				}
			}
		}
		indices, err := p.driver.MultiSelect(ctx, SelectConfig{Message: p.label(b), Options: options, Defaults: defaults})
		if err != nil {
			return nil, err
		}
		out := make([]formstate.Element, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(b.Items) {
				out = append(out, formstate.Element{Name: b.Key(), Value: b.Items[idx].Item})
			}
		}
		return out, nil
	}

	defaultIdx := 0
	for i, item := range b.Items {
		if len(current) > 0 && current[0] == item.Item {
			defaultIdx = i
		}
	}
	idx, err := p.driver.Select(ctx, SelectConfig{Message: p.label(b), Options: options, DefaultIndex: defaultIdx})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(b.Items) {
		return nil, fmt.Errorf("prompt: selection %d out of range", idx)
	}
	return []formstate.Element{{Name: b.Key(), Value: b.Items[idx].Item}}, nil
}

func (p *Prompter) label(b block.Block) string {
	label := p.opts.T(b.Label)
	if label == "" {
		label = b.Key()
	}
	if b.Validate.Required {
		label += " *"
	}
	return label
}
