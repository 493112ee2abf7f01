package inventory

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/go-inventory/element"
)

func double(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("double expects 1 arg")
	}
	switch v := args[0].(type) {
	case int:
		return int64(v) * 2, nil
	case int64:
		return v * 2, nil
	}
	return nil, fmt.Errorf("double: unsupported %T", args[0])
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("doubleIt", double); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name    string
		fnName  string
		fn      Function
		wantErr string
	}{
		{name: "duplicate ignoring case", fnName: "DOUBLEIT", fn: double, wantErr: `already registered as "doubleIt"`},
		{name: "nil", fnName: "other", fn: nil, wantErr: "is nil"},
		{name: "empty", fnName: "", fn: double, wantErr: "must not be empty"},
		{name: "shadows variable", fnName: "attrs", fn: double, wantErr: "shadows a predicate variable"},
		{name: "shadows helper", fnName: "hasChild", fn: double, wantErr: "shadows a predicate variable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := registry.Register(tc.fnName, tc.fn)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q error, got %v", tc.wantErr, err)
			}
		})
	}

	got, err := registry.Call("DOUBLEIT", 21)
	if err != nil || got != int64(42) {
		t.Fatalf("expected case-insensitive call to return 42, got %v (%v)", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected error for unregistered function")
	}
	if names := registry.Names(); !equalStrings(names, []string{"doubleIt"}) {
		t.Fatalf("expected registered spelling, got %v", names)
	}

	clone := registry.Clone()
	if err := clone.Register("triple", double); err != nil {
		t.Fatalf("register on clone: %v", err)
	}
	if registry.Len() != 1 || clone.Len() != 2 {
		t.Fatalf("expected clone registrations to stay off the original")
	}

	var empty *FunctionRegistry
	if _, err := empty.Call("doubleIt", 1); err == nil {
		t.Fatalf("expected error from nil registry")
	}
}

func senses() *element.Element {
	return element.New("part", "ref", "Senses", "visible", "false").Append(
		element.New("part", "ref", "Gloss"),
	)
}

func TestEvaluatorsSeeElement(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("doubleIt", double); err != nil {
		t.Fatalf("register: %v", err)
	}

	engines := []struct {
		name string
		new  func(...EvaluatorOption) Evaluator
		expr string
	}{
		{
			name: engineExpr,
			new:  NewExprEvaluator,
			expr: `key == "part: Senses" && name == "part" && attrs.ref == "Senses" && attr("visible") == "false" && hasChild("part") && depth == 1 && doubleIt(2) == 4`,
		},
		{
			name: engineCEL,
			new:  NewCELEvaluator,
			expr: `key == "part: Senses" && name == "part" && attrs.ref == "Senses" && has(attrs.visible) && size(children) == 1 && depth == 1 && call("doubleIt", [2]) == 4`,
		},
	}

	for _, engine := range engines {
		t.Run(engine.name, func(t *testing.T) {
			cache := NewMapProgramCache()
			evaluator := engine.new(EvaluatorWithProgramCache(cache), EvaluatorWithFunctionRegistry(registry))
			ctx := RuleContext{Element: senses(), Key: "part: Senses", Depth: 1}

			value, err := evaluator.Evaluate(ctx, engine.expr)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if value != true {
				t.Fatalf("expected true, got %v", value)
			}

			rule, err := evaluator.Compile(engine.expr, ExpectBool())
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			ctx.Depth = 2
			value, err = rule.Evaluate(ctx)
			if err != nil {
				t.Fatalf("compiled evaluate: %v", err)
			}
			if value != false {
				t.Fatalf("expected false at another depth, got %v", value)
			}
			if cache.Len() != 2 {
				t.Fatalf("expected plain and bool programs cached separately, got %d", cache.Len())
			}
			if got := evaluatorEngineName(evaluator); got != engine.name {
				t.Fatalf("expected engine %q, got %q", engine.name, got)
			}
		})
	}
}

func TestEvaluatorsWithoutElement(t *testing.T) {
	for _, evaluator := range []Evaluator{NewExprEvaluator(), NewCELEvaluator()} {
		value, err := evaluator.Evaluate(RuleContext{}, `name == "" && text == ""`)
		if err != nil || value != true {
			t.Fatalf("%s: expected empty element variables, got %v (%v)", evaluatorEngineName(evaluator), value, err)
		}
	}
}

func TestExpectBoolRejectsValues(t *testing.T) {
	cases := []struct {
		name      string
		evaluator Evaluator
		expr      string
		wantPhase string
	}{
		{name: "expr string", evaluator: NewExprEvaluator(), expr: `name`, wantPhase: PhaseCompile},
		{name: "cel string", evaluator: NewCELEvaluator(), expr: `name`, wantPhase: PhaseCompile},
		{name: "cel dyn", evaluator: NewCELEvaluator(), expr: `attrs.ref`, wantPhase: PhaseEvaluate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := tc.evaluator.Compile(tc.expr, ExpectBool())
			if err == nil {
				_, err = rule.Evaluate(RuleContext{Element: senses(), Key: "part: Senses"})
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError, got %v", err)
			}
			if evalErr.Phase != tc.wantPhase {
				t.Fatalf("expected %s failure, got %+v", tc.wantPhase, evalErr)
			}
		})
	}
}

func TestEvaluatorRejectsEmptyExpression(t *testing.T) {
	for _, evaluator := range []Evaluator{NewExprEvaluator(), NewCELEvaluator()} {
		if _, err := evaluator.Evaluate(RuleContext{}, ""); !errors.Is(err, errEmptyExpression) {
			t.Fatalf("%T: expected empty expression error, got %v", evaluator, err)
		}
		if _, err := evaluator.Compile(""); !errors.Is(err, errEmptyExpression) {
			t.Fatalf("%T: expected empty expression error, got %v", evaluator, err)
		}
	}
}

func TestEvaluationErrorCarriesKey(t *testing.T) {
	ctx := RuleContext{Element: senses(), Key: "part: Senses"}
	_, err := NewExprEvaluator().Evaluate(ctx, `attrs.visible + 1 > `)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T (%v)", err, err)
	}
	if evalErr.Engine != engineExpr || evalErr.Phase != PhaseCompile {
		t.Fatalf("unexpected error fields %+v", evalErr)
	}

	_, err = NewExprEvaluator().Evaluate(ctx, `call("missing")`)
	if !errors.As(err, &evalErr) || evalErr.Key != "part: Senses" || evalErr.Phase != PhaseEvaluate {
		t.Fatalf("expected run-time error on part: Senses, got %v", err)
	}
}

type staticEvaluator struct{}

func (staticEvaluator) Evaluate(RuleContext, string) (any, error) { return true, nil }

func (staticEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) { return nil, nil }

func TestEvaluatorEngineName(t *testing.T) {
	if got := evaluatorEngineName(nil); got != "unknown" {
		t.Fatalf("expected unknown engine for nil evaluator, got %q", got)
	}
	if got := evaluatorEngineName(staticEvaluator{}); got != "custom" {
		t.Fatalf("expected custom engine, got %q", got)
	}
}

func TestJSEvaluatorNeedsBuildTag(t *testing.T) {
	if jsEvaluatorAvailable() {
		t.Skip("built with js_eval")
	}
	if NewJSEvaluator() != nil {
		t.Fatalf("expected nil evaluator without js_eval")
	}
}
