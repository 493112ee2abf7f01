package inventory

import (
	"time"

	"github.com/goliatone/go-inventory/element"
)

const engineJS = "js"

// Select returns every element at any depth of Main for which the predicate
// expr evaluates to true, in document order. Pending derivations are
// resolved first. The predicate must yield a bool; the first failure aborts
// the pass.
func (inv *Inventory) Select(expr string) ([]*element.Element, error) {
	return inv.SelectWith(RuleContext{}, expr)
}

// SelectWith is Select with caller-supplied args, metadata and clock. The
// element, key and depth of ctx are replaced per candidate.
func (inv *Inventory) SelectWith(ctx RuleContext, expr string) ([]*element.Element, error) {
	evaluator := inv.evaluator()
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	engine := evaluatorEngineName(evaluator)
	event := EvaluatorLogEvent{Engine: engine, Expr: expr}
	start := time.Now()
	out, err := inv.selectMatches(evaluator, ctx, expr, &event)
	event.Duration = time.Since(start)
	event.Matched = len(out)
	event.Err = err
	inv.cfg.evalLogger.LogEvaluation(event)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (inv *Inventory) selectMatches(evaluator Evaluator, ctx RuleContext, expr string, event *EvaluatorLogEvent) ([]*element.Element, error) {
	rule, err := evaluator.Compile(expr, ExpectBool())
	if err != nil {
		return nil, wrapCompileError(event.Engine, expr, err)
	}

	inv.mu.Lock()
	inv.current.resolvePending("")
	candidates := candidatesOf(inv.current.main)
	inv.mu.Unlock()
	event.Candidates = len(candidates)

	ctx = ctx.withDefaults()
	var out []*element.Element
	for _, candidate := range candidates {
		ctx.Element = candidate.el
		ctx.Depth = candidate.depth
		ctx.Key = inv.keys.Of(candidate.el).String()
		value, err := rule.Evaluate(ctx)
		if err != nil {
			return nil, wrapEvaluationError(event.Engine, expr, ctx.keyLabel(), err)
		}
		if matched, _ := value.(bool); matched {
			out = append(out, candidate.el)
		}
	}
	return out, nil
}

type candidate struct {
	el    *element.Element
	depth int
}

// candidatesOf lists the elements of store in document order with their
// depth below Main, top-level elements at depth 0.
func candidatesOf(store *element.Store) []candidate {
	var out []candidate
	var visit func(el *element.Element, depth int)
	visit = func(el *element.Element, depth int) {
		out = append(out, candidate{el: el, depth: depth})
		for _, child := range el.Children {
			visit(child, depth+1)
		}
	}
	for _, el := range store.All() {
		visit(el, 0)
	}
	return out
}

func (inv *Inventory) evaluator() Evaluator {
	return inv.cfg.evaluator
}

func defaultEvaluator(cfg config) Evaluator {
	return NewExprEvaluator(
		EvaluatorWithProgramCache(cfg.cache),
		EvaluatorWithFunctionRegistry(cfg.functions),
	)
}

// evaluatorEngineName reports the engine of e: expr, cel, js, or custom for
// evaluators that do not name themselves.
func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(interface{ Engine() string }); ok {
		return named.Engine()
	}
	return "custom"
}
