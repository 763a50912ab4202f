package spreadsheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ASTNode is a parsed formula. the set of node types is closed: every
// implementation lives in this file and consumers switch over all of them.
type ASTNode interface {
	Eval(ev *evaluator) Value
	ToString() string
	precedence() int
}

// operator precedence used by ToString to decide on parentheses
const (
	precAdditive = iota + 1
	precMultiplicative
	precUnary
	precPrimary
)

// NumberNode represents a numeric literal
type NumberNode struct {
	Value float64
}

func (n *NumberNode) Eval(ev *evaluator) Value {
	return Number(n.Value)
}

func (n *NumberNode) ToString() string {
	return formatLiteral(n.Value)
}

func (n *NumberNode) precedence() int {
	if n.Value < 0 {
		return precUnary
	}
	return precPrimary
}

// StringNode represents a string literal
type StringNode struct {
	Value string
}

func (n *StringNode) Eval(ev *evaluator) Value {
	return Text(n.Value)
}

func (n *StringNode) ToString() string {
	escaped := strings.ReplaceAll(n.Value, "\"", "\"\"")
	return "\"" + escaped + "\""
}

func (n *StringNode) precedence() int { return precPrimary }

// CellRefNode represents a single-cell reference
type CellRefNode struct {
	Cell CellID
}

func (n *CellRefNode) Eval(ev *evaluator) Value {
	v := ev.storage.Get(n.Cell)
	if v.IsError() {
		return Error(ErrorCodePropagated)
	}
	return v
}

func (n *CellRefNode) ToString() string {
	return n.Cell.String()
}

func (n *CellRefNode) precedence() int { return precPrimary }

// BinaryOpNode represents a binary arithmetic operation
type BinaryOpNode struct {
	Op    BinaryOp
	Left  ASTNode
	Right ASTNode
}

func (n *BinaryOpNode) Eval(ev *evaluator) Value {
	left := n.Left.Eval(ev)
	right := n.Right.Eval(ev)

	// propagate errors
	if left.IsError() {
		return left
	}
	if right.IsError() {
		return right
	}
	if left.Kind != KindNumber || right.Kind != KindNumber {
		return Error(ErrorCodeValue)
	}

	switch n.Op {
	case BinOpAdd:
		return Finite(left.Num + right.Num)
	case BinOpSubtract:
		return Finite(left.Num - right.Num)
	case BinOpMultiply:
		return Finite(left.Num * right.Num)
	case BinOpDivide:
		if right.Num == 0 {
			return Error(ErrorCodeDiv0)
		}
		return Finite(left.Num / right.Num)
	default:
		return Error(ErrorCodeValue)
	}
}

func (n *BinaryOpNode) opString() string {
	switch n.Op {
	case BinOpAdd:
		return "+"
	case BinOpSubtract:
		return "-"
	case BinOpMultiply:
		return "*"
	case BinOpDivide:
		return "/"
	default:
		return "?"
	}
}

func (n *BinaryOpNode) ToString() string {
	prec := n.precedence()
	left := n.Left.ToString()
	if n.Left.precedence() < prec {
		left = "(" + left + ")"
	}
	// operators are left-associative, so an equal-precedence right operand
	// keeps its parentheses
	right := n.Right.ToString()
	if n.Right.precedence() <= prec {
		right = "(" + right + ")"
	}
	return left + n.opString() + right
}

func (n *BinaryOpNode) precedence() int {
	if n.Op == BinOpMultiply || n.Op == BinOpDivide {
		return precMultiplicative
	}
	return precAdditive
}

// UnaryOpNode represents a unary sign
type UnaryOpNode struct {
	Op      UnaryOp
	Operand ASTNode
}

func (n *UnaryOpNode) Eval(ev *evaluator) Value {
	v := n.Operand.Eval(ev)
	if v.IsError() {
		return v
	}
	if v.Kind != KindNumber {
		return Error(ErrorCodeValue)
	}
	if n.Op == UnaryOpMinus {
		return Number(-v.Num)
	}
	return v
}

func (n *UnaryOpNode) ToString() string {
	operand := n.Operand.ToString()
	if n.Operand.precedence() < precUnary {
		operand = "(" + operand + ")"
	}
	if n.Op == UnaryOpMinus {
		return "-" + operand
	}
	return "+" + operand
}

func (n *UnaryOpNode) precedence() int { return precUnary }

// RangeFuncNode is a range-function call such as SUM(A1:B10)
type RangeFuncNode struct {
	Func  RangeFunc
	Range Range
}

func (n *RangeFuncNode) Eval(ev *evaluator) Value {
	return ev.functions.Evaluate(ev.storage, n.Func, n.Range)
}

func (n *RangeFuncNode) ToString() string {
	return n.Func.String() + "(" + n.Range.String() + ")"
}

func (n *RangeFuncNode) precedence() int { return precPrimary }

// SleepNode evaluates its argument and pauses for that many seconds
type SleepNode struct {
	Arg ASTNode
}

func (n *SleepNode) Eval(ev *evaluator) Value {
	v := n.Arg.Eval(ev)
	if v.IsError() {
		return v
	}
	if v.Kind != KindNumber {
		return Error(ErrorCodeValue)
	}
	ev.functions.Sleep(v.Num)
	return v
}

func (n *SleepNode) ToString() string {
	return "SLEEP(" + n.Arg.ToString() + ")"
}

func (n *SleepNode) precedence() int { return precPrimary }

// FormulaKind classifies a parsed formula
type FormulaKind uint8

const (
	FormulaConstant FormulaKind = iota
	FormulaReference
	FormulaArithmetic
	FormulaRangeFunction
	FormulaSleep
)

func (k FormulaKind) String() string {
	switch k {
	case FormulaConstant:
		return "constant"
	case FormulaReference:
		return "reference"
	case FormulaArithmetic:
		return "arithmetic"
	case FormulaRangeFunction:
		return "range function"
	case FormulaSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// KindOf classifies the top level of a formula
func KindOf(node ASTNode) FormulaKind {
	switch node.(type) {
	case *NumberNode, *StringNode:
		return FormulaConstant
	case *CellRefNode:
		return FormulaReference
	case *RangeFuncNode:
		return FormulaRangeFunction
	case *SleepNode:
		return FormulaSleep
	default:
		return FormulaArithmetic
	}
}

// ParseError describes rejected formula text. Status is StatusParseError
// for malformed syntax and StatusRefError for references outside the sheet.
type ParseError struct {
	Status  Status
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(format string, args ...any) *ParseError {
	return &ParseError{Status: StatusParseError, Message: fmt.Sprintf(format, args...)}
}

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
	bounds Bounds
}

// NewParser creates a new parser over tokens. references are checked
// against bounds.
func NewParser(tokens []Token, bounds Bounds) *Parser {
	return &Parser{
		tokens: tokens,
		bounds: bounds,
	}
}

// ParseFormula tokenizes and parses a formula body (the text after '=')
func ParseFormula(body string, bounds Bounds) (ASTNode, error) {
	if strings.HasPrefix(strings.TrimSpace(body), "=") {
		return nil, newParseError("unexpected '='")
	}
	tokens, lexErrors := NewLexer(body).Tokenize()
	if len(lexErrors) > 0 {
		return nil, newParseError("%s", strings.Join(lexErrors, "; "))
	}
	return NewParser(tokens, bounds).Parse()
}

// ParseInput interprets text typed into a cell. text starting with '='
// is a formula, numeric text is a number, anything else is text. blank
// input returns a nil node, meaning "clear the cell".
func ParseInput(text string, bounds Bounds) (ASTNode, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] == '=' {
		return ParseFormula(trimmed[1:], bounds)
	}
	if n, ok := parseNumericLiteral(trimmed); ok {
		return &NumberNode{Value: n}, nil
	}
	return &StringNode{Value: trimmed}, nil
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 || p.tokens[0].Type == TokenEOF {
		return nil, newParseError("empty formula")
	}

	node, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, newParseError("unexpected %s at token %d", tok.Type, tok.Pos)
	}
	return node, nil
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.tokens)}
	}
	return p.tokens[p.pos]
}

// parseAddition handles addition and subtraction
func (p *Parser) parseAddition() (ASTNode, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right}
	}
}

// parseMultiplication handles multiplication and division
func (p *Parser) parseMultiplication() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right}
	}
}

// parseUnary handles prefix signs
func (p *Parser) parseUnary() (ASTNode, error) {
	tok := p.peek()
	if tok.Type != TokenUnaryPrefixOp {
		return p.parsePrimary()
	}

	var op UnaryOp
	switch tok.Value {
	case "-":
		op = UnaryOpMinus
	case "+":
		op = UnaryOpPlus
	default:
		return nil, newParseError("unknown unary operator %q", tok.Value)
	}

	p.pos++
	operand, err := p.parseUnary() // recurse for chained unary operators
	if err != nil {
		return nil, err
	}
	return &UnaryOpNode{Op: op, Operand: operand}, nil
}

// parsePrimary handles literals, references, function calls and
// parentheses
func (p *Parser) parsePrimary() (ASTNode, error) {
	tok := p.peek()

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, ok := parseNumericLiteral(tok.Value)
		if !ok {
			return nil, newParseError("invalid number: %s", tok.Value)
		}
		return &NumberNode{Value: val}, nil

	case TokenString:
		p.pos++
		return &StringNode{Value: tok.Value}, nil

	case TokenCell:
		p.pos++
		id, err := p.parseCellAddress(tok.Value)
		if err != nil {
			return nil, err
		}
		return &CellRefNode{Cell: id}, nil

	case TokenRange:
		return nil, newParseError("range %s is only allowed as a function argument", tok.Value)

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		if p.peek().Type != TokenRightParen {
			return nil, newParseError("expected closing parenthesis")
		}
		p.pos++
		return node, nil

	case TokenEOF:
		return nil, newParseError("unexpected end of expression")

	default:
		return nil, newParseError("unexpected %s at token %d", tok.Type, tok.Pos)
	}
}

// parseFunctionCall parses SLEEP(expr) and the range functions
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	name := p.peek().Value
	p.pos++

	if p.peek().Type != TokenLeftParen {
		return nil, newParseError("expected '(' after %s", name)
	}
	p.pos++

	if name == "SLEEP" {
		arg, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose(name); err != nil {
			return nil, err
		}
		return &SleepNode{Arg: arg}, nil
	}

	fn, ok := LookupRangeFunc(name)
	if !ok {
		return nil, newParseError("unknown function: %s", name)
	}

	tok := p.peek()
	var r Range
	switch tok.Type {
	case TokenRange:
		var err error
		if r, err = p.parseRange(tok.Value); err != nil {
			return nil, err
		}
	case TokenCell:
		id, err := p.parseCellAddress(tok.Value)
		if err != nil {
			return nil, err
		}
		r = Range{Start: id, End: id}
	default:
		return nil, newParseError("%s expects a range argument", name)
	}
	p.pos++

	if err := p.expectClose(name); err != nil {
		return nil, err
	}
	return &RangeFuncNode{Func: fn, Range: r}, nil
}

func (p *Parser) expectClose(name string) error {
	switch p.peek().Type {
	case TokenRightParen:
		p.pos++
		return nil
	case TokenComma:
		return newParseError("%s takes exactly one argument", name)
	default:
		return newParseError("expected ')' to close %s", name)
	}
}

// parseRange parses "A1:B2". corners are kept as written.
func (p *Parser) parseRange(text string) (Range, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return Range{}, newParseError("invalid range format: %s", text)
	}
	start, err := p.parseCellAddress(parts[0])
	if err != nil {
		return Range{}, err
	}
	end, err := p.parseCellAddress(parts[1])
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

// parseCellAddress resolves a reference, ignoring absolute markers
func (p *Parser) parseCellAddress(text string) (CellID, error) {
	if strings.Contains(text, "!") {
		return 0, newParseError("sheet-qualified references are not supported: %s", text)
	}
	id, err := ParseCellID(strings.ReplaceAll(text, "$", ""), p.bounds)
	if err != nil {
		if errors.Is(err, ErrOutOfBounds) {
			return 0, &ParseError{Status: StatusRefError, Message: err.Error()}
		}
		return 0, newParseError("%v", err)
	}
	return id, nil
}

// parseNumericLiteral accepts plain decimal and scientific notation only,
// so words like "inf" or "nan" stay text
func parseNumericLiteral(s string) (float64, bool) {
	digits := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits = true
		case ch == '.' || ch == '+' || ch == '-' || ch == 'e' || ch == 'E':
		default:
			return 0, false
		}
	}
	if !digits {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// formatLiteral prints a number so that the formula lexer reads it back
// unchanged. exponents are uppercase because that is the form efp joins
// into a single operand.
func formatLiteral(n float64) string {
	return strings.ToUpper(formatNumber(n))
}
