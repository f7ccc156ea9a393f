package strategy

import "fmt"

// Factory builds an evaluator from its config parameters.
type Factory func(params map[string]any) (Evaluator, error)

var registry = map[string]Factory{
	"trend_follow": func(map[string]any) (Evaluator, error) {
		return NewTrendFollowEvaluator(), nil
	},
	"momentum": func(map[string]any) (Evaluator, error) {
		return NewMomentumEvaluator(), nil
	},
	"static": func(params map[string]any) (Evaluator, error) {
		dir := Buy
		strength := 0.8
		if v, ok := params["direction"].(string); ok && v == "SELL" {
			dir = Sell
		}
		if v, ok := params["strength"].(float64); ok {
			strength = v
		}
		return NewStaticEvaluator(dir, strength), nil
	},
}

// Register adds a factory under the given name. Later registrations replace
// earlier ones.
func Register(name string, f Factory) {
	registry[name] = f
}

// New builds the named evaluator.
func New(name string, params map[string]any) (Evaluator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("strategy: unknown evaluator %q", name)
	}
	return f(params)
}

// Names lists the registered evaluator names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
