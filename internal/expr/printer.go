package expr

import (
	"fmt"
	"strings"
)

// Printer renders an expression tree in parenthesized prefix form, e.g.
// `1 + 2 * 3` prints as `(+ 1 (* 2 3))`. It is used for `kiln expr --ast`
// output and in tests.
type Printer struct{}

// Print renders the expression tree as a string.
func (p *Printer) Print(e Expr) string {
	out, _ := e.Accept(p)
	return out.(string)
}

// VisitBinaryExpr implements Visitor.
func (p *Printer) VisitBinaryExpr(e *BinaryExpr) (any, error) {
	return p.parenthesize(e.Operator.Lexeme, e.Left, e.Right), nil
}

// VisitLogicalExpr implements Visitor.
func (p *Printer) VisitLogicalExpr(e *LogicalExpr) (any, error) {
	return p.parenthesize(e.Operator.Lexeme, e.Left, e.Right), nil
}

// VisitGroupingExpr implements Visitor.
func (p *Printer) VisitGroupingExpr(e *GroupingExpr) (any, error) {
	return p.parenthesize("group", e.Expression), nil
}

// VisitLiteralExpr implements Visitor.
func (p *Printer) VisitLiteralExpr(e *LiteralExpr) (any, error) {
	switch v := e.Value.(type) {
	case nil:
		return "null", nil
	case string:
		return fmt.Sprintf("%q", v), nil
	case float64:
		return formatNumber(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// VisitUnaryExpr implements Visitor.
func (p *Printer) VisitUnaryExpr(e *UnaryExpr) (any, error) {
	return p.parenthesize(e.Operator.Lexeme, e.Right), nil
}

// VisitVariableExpr implements Visitor.
func (p *Printer) VisitVariableExpr(e *VariableExpr) (any, error) {
	return e.Name.Lexeme, nil
}

// VisitGetExpr implements Visitor.
func (p *Printer) VisitGetExpr(e *GetExpr) (any, error) {
	obj, _ := e.Object.Accept(p)
	return fmt.Sprintf("(. %s %s)", obj, e.Name.Lexeme), nil
}

func (p *Printer) parenthesize(name string, exprs ...Expr) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(name)
	for _, e := range exprs {
		b.WriteString(" ")
		out, _ := e.Accept(p)
		b.WriteString(out.(string))
	}
	b.WriteString(")")
	return b.String()
}

// formatNumber renders a float the way the language treats numbers: integral
// values print without a decimal point.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
