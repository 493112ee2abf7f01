//go:build !js_eval

package inventory

// NewJSEvaluator returns nil unless the module is built with the js_eval
// tag.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
