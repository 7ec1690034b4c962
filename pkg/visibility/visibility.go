// Package visibility derives which blocks are shown from the current form
// values. Selects, radio groups and switches marked `referred` toggle the
// blocks tagged with their item ids (or, for switches, their own name); an
// optional Evaluator handles expression rules carried in Block.VisibleWhen.
package visibility

// Evaluator determines whether a field should be visible based on a rule
// string and optional context such as current values or scope metadata.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the current form
// values keyed by block name; Extras carries caller data such as the viewer's
// permission level.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
