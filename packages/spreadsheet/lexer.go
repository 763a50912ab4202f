package spreadsheet

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/efp"
)

// TokenType represents different types of tokens in formulas
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenCell
	TokenRange
	TokenFunction
	TokenUnaryPrefixOp
	TokenBinaryOp
	TokenComma
	TokenLeftParen
	TokenRightParen
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of formula"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenCell:
		return "cell reference"
	case TokenRange:
		return "range"
	case TokenFunction:
		return "function"
	case TokenUnaryPrefixOp:
		return "unary operator"
	case TokenBinaryOp:
		return "operator"
	case TokenComma:
		return "','"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	default:
		return "unknown"
	}
}

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
)

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
)

// Token is a single lexical unit. Pos is the index of the token in the
// stream, which is what error messages point at.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// TokenState tracks what the previous token allows next
type TokenState int

const (
	StateStart TokenState = iota
	StateAfterValue
	StateAfterOperator
	StateAfterLeftParen
	StateAfterFunction
)

var valueStart = map[TokenType]bool{
	TokenNumber:        true,
	TokenString:        true,
	TokenCell:          true,
	TokenRange:         true,
	TokenFunction:      true,
	TokenUnaryPrefixOp: true,
	TokenLeftParen:     true,
}

// tokenTransitions maps the current state to valid next token types
var tokenTransitions = map[TokenState]map[TokenType]bool{
	StateStart:         valueStart,
	StateAfterOperator: valueStart,
	StateAfterValue: {
		TokenBinaryOp:   true,
		TokenRightParen: true,
		TokenComma:      true,
		TokenEOF:        true,
	},
	StateAfterLeftParen: {
		TokenNumber:        true,
		TokenString:        true,
		TokenCell:          true,
		TokenRange:         true,
		TokenFunction:      true,
		TokenUnaryPrefixOp: true,
		TokenLeftParen:     true,
		TokenRightParen:    true, // empty argument list
	},
	StateAfterFunction: {
		TokenLeftParen: true,
	},
}

// nextState returns the state entered after consuming a token of type t
func nextState(t TokenType) TokenState {
	switch t {
	case TokenNumber, TokenString, TokenCell, TokenRange, TokenRightParen:
		return StateAfterValue
	case TokenFunction:
		return StateAfterFunction
	case TokenLeftParen:
		return StateAfterLeftParen
	default:
		return StateAfterOperator
	}
}

// Lexer turns formula text (without the leading '=') into tokens. the
// scanning itself is done by efp, the Excel formula tokenizer; the lexer
// maps its token kinds onto the subset this engine understands and checks
// the sequence against tokenTransitions.
type Lexer struct {
	input string
}

// NewLexer creates a lexer for the formula body
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize returns the token stream terminated by TokenEOF, plus any
// lexical errors. whitespace outside string literals is insignificant
// except where it separates two operands.
func (l *Lexer) Tokenize() (tokens []Token, errs []string) {
	raw, err := scan(squeezeSpace(l.input))
	if err != nil {
		return nil, []string{err.Error()}
	}
	raw = joinExponents(raw)

	tokens = make([]Token, 0, len(raw)+2)
	emit := func(t TokenType, v string) {
		tokens = append(tokens, Token{Type: t, Value: v, Pos: len(tokens)})
	}

	for _, tok := range raw {
		switch tok.TType {
		case efp.TokenTypeOperand:
			switch tok.TSubType {
			case efp.TokenSubTypeNumber:
				emit(TokenNumber, tok.TValue)
			case efp.TokenSubTypeText:
				emit(TokenString, tok.TValue)
			case efp.TokenSubTypeRange:
				if strings.Contains(tok.TValue, ":") {
					emit(TokenRange, tok.TValue)
				} else {
					emit(TokenCell, tok.TValue)
				}
			default:
				errs = append(errs, fmt.Sprintf("unsupported operand %q", tok.TValue))
			}

		case efp.TokenTypeFunction:
			if tok.TSubType == efp.TokenSubTypeStart {
				emit(TokenFunction, strings.ToUpper(tok.TValue))
				emit(TokenLeftParen, "(")
			} else {
				emit(TokenRightParen, ")")
			}

		case efp.TokenTypeSubexpression:
			if tok.TSubType == efp.TokenSubTypeStart {
				emit(TokenLeftParen, "(")
			} else {
				emit(TokenRightParen, ")")
			}

		case efp.TokenTypeArgument:
			emit(TokenComma, ",")

		case efp.TokenTypeOperatorPrefix:
			emit(TokenUnaryPrefixOp, tok.TValue)

		case efp.TokenTypeOperatorInfix:
			switch tok.TValue {
			case "+", "-", "*", "/":
				emit(TokenBinaryOp, tok.TValue)
			default:
				errs = append(errs, fmt.Sprintf("unsupported operator %q", tok.TValue))
			}

		case efp.TokenTypeWhitespace:
			// insignificant

		default:
			errs = append(errs, fmt.Sprintf("unexpected %q", tok.TValue))
		}
	}
	emit(TokenEOF, "")

	if len(errs) > 0 {
		return tokens, errs
	}

	state := StateStart
	for _, tok := range tokens {
		if !tokenTransitions[state][tok.Type] {
			errs = append(errs, fmt.Sprintf("unexpected %s at token %d", tok.Type, tok.Pos))
			break
		}
		state = nextState(tok.Type)
	}

	return tokens, errs
}

// squeezeSpace drops whitespace outside string literals. a run of
// whitespace between two operand characters is kept as a single space so
// that "1 2" still reads as two operands instead of "12".
func squeezeSpace(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	inText, pending := false, false
	var prev rune
	for _, r := range input {
		if r == '"' {
			inText = !inText
		}
		if !inText && r != '"' && unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending && operandRune(prev) && operandRune(r) {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func operandRune(r rune) bool {
	return r == '"' || r == '.' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// joinExponents merges the pieces efp splits a number like 12E+3 or 1e-5
// into: a mantissa operand ending in 'e', a sign operator and the digits.
func joinExponents(raw []efp.Token) []efp.Token {
	out := raw[:0:0]
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		if i+2 < len(raw) && tok.TType == efp.TokenTypeOperand && isMantissa(tok.TValue) {
			op, exp := raw[i+1], raw[i+2]
			if op.TType == efp.TokenTypeOperatorInfix && (op.TValue == "+" || op.TValue == "-") &&
				exp.TType == efp.TokenTypeOperand && isDigits(exp.TValue) {
				out = append(out, efp.Token{
					TValue:   tok.TValue + op.TValue + exp.TValue,
					TType:    efp.TokenTypeOperand,
					TSubType: efp.TokenSubTypeNumber,
				})
				i += 2
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

// isMantissa matches digits with an optional fraction followed by e or E
func isMantissa(s string) bool {
	if len(s) < 2 || (s[len(s)-1] != 'e' && s[len(s)-1] != 'E') {
		return false
	}
	body := s[:len(s)-1]
	whole, frac, dotted := strings.Cut(body, ".")
	if !isDigits(whole) {
		return false
	}
	return !dotted || frac == "" || isDigits(frac)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// scan runs efp over the input. efp is written for well-formed workbook
// formulas, so a panic on hostile input is reported as a lexical error.
func scan(input string) (tokens []efp.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens, err = nil, fmt.Errorf("malformed formula: %v", r)
		}
	}()
	ps := efp.ExcelParser()
	return ps.Parse(input), nil
}
