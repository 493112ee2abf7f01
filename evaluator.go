package inventory

import (
	"time"

	"github.com/goliatone/go-inventory/element"
)

// RuleContext is the input of one predicate evaluation. Select fills Element,
// Key and Depth for every candidate; Args and Metadata are passed through.
type RuleContext struct {
	Element  *element.Element
	Key      string
	Depth    int
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx RuleContext) keyLabel() string {
	if ctx.Key != "" {
		return ctx.Key
	}
	if ctx.Element != nil {
		return ctx.Element.Name
	}
	return "unknown"
}

// Evaluator compiles and runs predicates against elements.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule is a reusable predicate program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption adjusts how a predicate is compiled.
type CompileOption func(*compileConfig)

type compileConfig struct {
	expectBool bool
}

// ExpectBool makes a compiled rule fail unless it yields a bool. Engines
// that can check the result type statically reject the expression at
// compile time.
func ExpectBool() CompileOption {
	return func(cfg *compileConfig) {
		cfg.expectBool = true
	}
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	var cfg compileConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// EvaluatorOption configures the built-in engines.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EvaluatorWithProgramCache stores compiled programs in cache. One cache may
// be shared between engines.
func EvaluatorWithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorWithFunctionRegistry exposes the functions of registry to
// predicates. The registry is cloned.
func EvaluatorWithFunctionRegistry(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.registry = registry.Clone()
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	var cfg evaluatorConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg evaluatorConfig) cached(engine, expr string, compile compileConfig) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(programKey(engine, expr, compile))
}

func (cfg evaluatorConfig) store(engine, expr string, compile compileConfig, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(programKey(engine, expr, compile), program)
	}
}

func programKey(engine, expr string, compile compileConfig) string {
	if compile.expectBool {
		return engine + "/bool:" + expr
	}
	return engine + ":" + expr
}
