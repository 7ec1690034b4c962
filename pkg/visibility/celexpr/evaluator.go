// Package celexpr evaluates visibility rules written in CEL. Rules see three
// variables: `values` (current form values by block name), `extras` (caller
// context) and `field` (the block being evaluated), for example
//
//	values.country == "es" && extras.permission <= 2
package celexpr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"

	"github.com/goliatone/go-formblocks/pkg/visibility"
)

// Evaluator compiles rules once and caches the programs.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New creates an evaluator. Extra environment options (custom functions)
// are appended to the defaults.
func New(opts ...cel.EnvOption) (*Evaluator, error) {
	all := []cel.EnvOption{
		cel.Variable("values", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("extras", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("field", cel.StringType),
		celext.Strings(),
	}
	all = append(all, opts...)

	env, err := cel.NewEnv(all...)
	if err != nil {
		return nil, fmt.Errorf("celexpr: create environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile checks a rule without evaluating it. Rules must produce a bool.
func (e *Evaluator) Compile(rule string) error {
	_, err := e.program(rule)
	return err
}

// Eval implements visibility.Evaluator.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	values := ctx.Values
	if values == nil {
		values = map[string]any{}
	}
	extras := ctx.Extras
	if extras == nil {
		extras = map[string]any{}
	}

	out, _, err := prg.Eval(map[string]any{
		"values": values,
		"extras": extras,
		"field":  fieldPath,
	})
	if err != nil {
		return false, fmt.Errorf("celexpr: eval %q: %w", rule, err)
	}
	result, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("celexpr: rule %q returned %s, want bool", rule, out.Type())
	}
	return bool(result), nil
}

func (e *Evaluator) program(rule string) (cel.Program, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, fmt.Errorf("celexpr: empty rule")
	}

	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("celexpr: compile %q: %w", rule, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("celexpr: rule %q has type %s, want bool", rule, out)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("celexpr: program %q: %w", rule, err)
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()
	return prg, nil
}
