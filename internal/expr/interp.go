package expr

import (
	"fmt"

	"go.trai.ch/zerr"
)

// ErrEval is the base error for all evaluation failures.
var ErrEval = zerr.New("evaluation error")

// Env resolves bare identifiers during evaluation.
type Env interface {
	// Get returns the value bound to name, and whether a binding exists.
	Get(name string) (any, bool)
}

// MapEnv is an Env backed by a map. Nested maps are reachable through
// dotted access, e.g. MapEnv{"env": map[string]any{"CI": "true"}} resolves
// `env.CI`.
type MapEnv map[string]any

// Get implements Env.
func (m MapEnv) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Interpreter evaluates an expression tree against an Env.
type Interpreter struct {
	env Env
}

// NewInterpreter creates an Interpreter. env may be nil, in which case every
// identifier resolves to null.
func NewInterpreter(env Env) *Interpreter {
	return &Interpreter{env: env}
}

// Evaluate computes the value of the expression. Values are float64, string,
// bool, nil, or (for intermediate member access) map[string]any.
func (i *Interpreter) Evaluate(e Expr) (any, error) {
	return e.Accept(i)
}

// EvaluateBool computes the truthiness of the expression: null and false are
// falsey, everything else is truthy.
func (i *Interpreter) EvaluateBool(e Expr) (bool, error) {
	v, err := i.Evaluate(e)
	if err != nil {
		return false, err
	}
	return isTruthy(v), nil
}

// VisitLiteralExpr implements Visitor.
func (i *Interpreter) VisitLiteralExpr(e *LiteralExpr) (any, error) {
	return e.Value, nil
}

// VisitGroupingExpr implements Visitor.
func (i *Interpreter) VisitGroupingExpr(e *GroupingExpr) (any, error) {
	return i.Evaluate(e.Expression)
}

// VisitUnaryExpr implements Visitor.
func (i *Interpreter) VisitUnaryExpr(e *UnaryExpr) (any, error) {
	right, err := i.Evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Type {
	case Bang, Not:
		return !isTruthy(right), nil
	case Minus:
		n, ok := right.(float64)
		if !ok {
			return nil, i.typeError(e.Operator, "Operand must be a number.")
		}
		return -n, nil
	default:
		return nil, i.typeError(e.Operator, "Unknown unary operator.")
	}
}

// VisitLogicalExpr implements Visitor. `and` and `or` short-circuit and
// return the deciding operand, not a coerced boolean.
func (i *Interpreter) VisitLogicalExpr(e *LogicalExpr) (any, error) {
	left, err := i.Evaluate(e.Left)
	if err != nil {
		return nil, err
	}

	if e.Operator.Type == Or {
		if isTruthy(left) {
			return left, nil
		}
	} else if !isTruthy(left) {
		return left, nil
	}

	return i.Evaluate(e.Right)
}

// VisitBinaryExpr implements Visitor.
func (i *Interpreter) VisitBinaryExpr(e *BinaryExpr) (any, error) {
	left, err := i.Evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.Evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Type {
	case EqualEqual:
		return isEqual(left, right), nil
	case BangEqual:
		return !isEqual(left, right), nil
	case Plus:
		// Plus concatenates strings and adds numbers.
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
		}
		return i.numericOp(e.Operator, left, right)
	case Minus, Star, Slash, Greater, GreaterEqual, Less, LessEqual:
		return i.numericOp(e.Operator, left, right)
	default:
		return nil, i.typeError(e.Operator, "Unknown binary operator.")
	}
}

// VisitVariableExpr implements Visitor. Unbound identifiers resolve to null
// so conditions like `env.OPTIONAL == "set"` work without declaring every
// variable.
func (i *Interpreter) VisitVariableExpr(e *VariableExpr) (any, error) {
	if i.env == nil {
		return nil, nil
	}
	v, _ := i.env.Get(e.Name.Lexeme)
	return v, nil
}

// VisitGetExpr implements Visitor.
func (i *Interpreter) VisitGetExpr(e *GetExpr) (any, error) {
	obj, err := i.Evaluate(e.Object)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return o[e.Name.Lexeme], nil
	case map[string]string:
		if v, ok := o[e.Name.Lexeme]; ok {
			return v, nil
		}
		return nil, nil
	case Env:
		v, _ := o.Get(e.Name.Lexeme)
		return v, nil
	default:
		return nil, i.typeError(e.Name, "Only maps have properties.")
	}
}

func (i *Interpreter) numericOp(op Token, left, right any) (any, error) {
	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if !lok || !rok {
		return nil, i.typeError(op, "Operands must be numbers.")
	}

	switch op.Type {
	case Plus:
		return ln + rn, nil
	case Minus:
		return ln - rn, nil
	case Star:
		return ln * rn, nil
	case Slash:
		if rn == 0 {
			return nil, i.typeError(op, "Division by zero.")
		}
		return ln / rn, nil
	case Greater:
		return ln > rn, nil
	case GreaterEqual:
		return ln >= rn, nil
	case Less:
		return ln < rn, nil
	case LessEqual:
		return ln <= rn, nil
	default:
		return nil, i.typeError(op, "Unknown numeric operator.")
	}
}

func (i *Interpreter) typeError(tok Token, msg string) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrEval, msg), "line", tok.Line), "operator", tok.Lexeme)
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}

func isEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	// Maps (partial member access results) are never equal to anything;
	// comparing them with == would panic.
	switch a.(type) {
	case float64, string, bool:
		return a == b
	default:
		return false
	}
}

// FormatValue renders an evaluation result the way the REPL prints it.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return formatNumber(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
