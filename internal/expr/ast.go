package expr

// Expr is a node in the expression tree.
type Expr interface {
	Accept(v Visitor) (any, error)
}

// Visitor dispatches over the concrete expression node types.
type Visitor interface {
	VisitBinaryExpr(e *BinaryExpr) (any, error)
	VisitLogicalExpr(e *LogicalExpr) (any, error)
	VisitGroupingExpr(e *GroupingExpr) (any, error)
	VisitLiteralExpr(e *LiteralExpr) (any, error)
	VisitUnaryExpr(e *UnaryExpr) (any, error)
	VisitVariableExpr(e *VariableExpr) (any, error)
	VisitGetExpr(e *GetExpr) (any, error)
}

// BinaryExpr is an arithmetic, comparison, or equality expression.
type BinaryExpr struct {
	Left     Expr
	Operator Token
	Right    Expr
}

// Accept implements Expr.
func (e *BinaryExpr) Accept(v Visitor) (any, error) {
	return v.VisitBinaryExpr(e)
}

// LogicalExpr is a short-circuiting `and`/`or` expression.
type LogicalExpr struct {
	Left     Expr
	Operator Token
	Right    Expr
}

// Accept implements Expr.
func (e *LogicalExpr) Accept(v Visitor) (any, error) {
	return v.VisitLogicalExpr(e)
}

// GroupingExpr is a parenthesized expression.
type GroupingExpr struct {
	Expression Expr
}

// Accept implements Expr.
func (e *GroupingExpr) Accept(v Visitor) (any, error) {
	return v.VisitGroupingExpr(e)
}

// LiteralExpr is a number, string, boolean, or null literal.
type LiteralExpr struct {
	Value any
}

// Accept implements Expr.
func (e *LiteralExpr) Accept(v Visitor) (any, error) {
	return v.VisitLiteralExpr(e)
}

// UnaryExpr is a `!`, `not`, or `-` expression.
type UnaryExpr struct {
	Operator Token
	Right    Expr
}

// Accept implements Expr.
func (e *UnaryExpr) Accept(v Visitor) (any, error) {
	return v.VisitUnaryExpr(e)
}

// VariableExpr is a bare identifier resolved against the evaluation
// environment (e.g. `os`).
type VariableExpr struct {
	Name Token
}

// Accept implements Expr.
func (e *VariableExpr) Accept(v Visitor) (any, error) {
	return v.VisitVariableExpr(e)
}

// GetExpr is a dotted member access (e.g. `env.CARGO_HOME`).
type GetExpr struct {
	Object Expr
	Name   Token
}

// Accept implements Expr.
func (e *GetExpr) Accept(v Visitor) (any, error) {
	return v.VisitGetExpr(e)
}
