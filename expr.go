package evok

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
)

// ExprCondition compiles a boolean expr-lang expression into a condition
// for ConditionalStep. The expression sees the fields of the state:
//
//	cond, err := evok.ExprCondition[Order]("Total > 100 && Country == 'FI'")
//
// S must be a struct or a map with string keys.
// Evaluation errors are logged and count as false.
func ExprCondition[S any](expression string) (func(state S) bool, error) {
	var env S
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expression, err)
	}

	return func(state S) bool {
		out, err := expr.Run(program, state)
		if err != nil {
			slog.Default().Warn("condition evaluation failed",
				slog.String("expression", expression),
				slog.Any("error", err),
			)
			return false
		}
		ok, _ := out.(bool)
		return ok
	}, nil
}
