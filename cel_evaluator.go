package inventory

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

const engineCEL = "cel"

// celEvaluator runs predicates with cel-go. Element variables are declared
// once, so every program shares one environment. Presence is tested with
// has(attrs.base); registry functions are reached through call(name, [args]).
type celEvaluator struct {
	evaluatorConfig

	once   sync.Once
	env    *celgo.Env
	envErr error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{evaluatorConfig: applyEvaluatorOptions(opts)}
}

// Engine returns "cel".
func (e *celEvaluator) Engine() string { return engineCEL }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineCEL, errEmptyExpression)
	}
	cfg := applyCompileOptions(opts)
	program, err := e.program(expression, cfg)
	if err != nil {
		return nil, err
	}
	rule := &celRule{program: program, expression: expression}
	return finishRule(engineCEL, expression, cfg, rule), nil
}

func (e *celEvaluator) program(expression string, cfg compileConfig) (celgo.Program, error) {
	if cached, ok := e.cached(engineCEL, expression, cfg); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}
	env, err := e.environment()
	if err != nil {
		return nil, wrapEvaluatorError(engineCEL, err)
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapCompileError(engineCEL, expression, issues.Err())
	}
	if cfg.expectBool {
		out := checked.OutputType()
		if !out.IsExactType(celgo.BoolType) && !out.IsExactType(celgo.DynType) {
			return nil, wrapCompileError(engineCEL, expression, fmt.Errorf("predicate yields %s, want bool", out))
		}
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, wrapCompileError(engineCEL, expression, err)
	}
	e.store(engineCEL, expression, cfg, program)
	return program, nil
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.once.Do(func() {
		e.env, e.envErr = celgo.NewEnv(
			celgo.Variable("name", celgo.StringType),
			celgo.Variable("text", celgo.StringType),
			celgo.Variable("attrs", celgo.MapType(celgo.StringType, celgo.DynType)),
			celgo.Variable("children", celgo.ListType(celgo.DynType)),
			celgo.Variable("key", celgo.StringType),
			celgo.Variable("depth", celgo.IntType),
			celgo.Variable("now", celgo.TimestampType),
			celgo.Variable("args", celgo.DynType),
			celgo.Variable("metadata", celgo.DynType),
			celgo.Function("call",
				celgo.Overload("call_string_list",
					[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
					celgo.DynType,
					celgo.BinaryBinding(e.call),
				),
			),
		)
	})
	return e.env, e.envErr
}

// call backs call(name, [args...]).
func (e *celEvaluator) call(nameVal, argsVal ref.Val) ref.Val {
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("inventory: call name must be a string")
	}
	var args []any
	if list, ok := argsVal.(traits.Lister); ok {
		size, _ := list.Size().Value().(int64)
		for i := int64(0); i < size; i++ {
			args = append(args, list.Get(types.Int(i)).Value())
		}
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celRule struct {
	program    celgo.Program
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	out, _, err := r.program.Eval(ruleVariables(ctx))
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, r.expression, ctx.keyLabel(), err)
	}
	return out.Value(), nil
}
