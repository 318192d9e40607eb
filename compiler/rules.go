package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Pratt parse rules
// ---------------------------------------------------------------------------

// Precedence is an operator binding level, ordered from loosest to tightest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecIncr                  // ++ --
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecArray                 // [ ]
	PrecIndex                 // a[i]
	PrecPrimary
)

var precedenceNames = [...]string{
	PrecNone:       "none",
	PrecAssignment: "assignment",
	PrecOr:         "or",
	PrecAnd:        "and",
	PrecEquality:   "equality",
	PrecComparison: "comparison",
	PrecTerm:       "term",
	PrecIncr:       "incr",
	PrecFactor:     "factor",
	PrecUnary:      "unary",
	PrecCall:       "call",
	PrecArray:      "array",
	PrecIndex:      "index",
	PrecPrimary:    "primary",
}

func (p Precedence) String() string {
	if p >= 0 && int(p) < len(precedenceNames) {
		return precedenceNames[p]
	}
	return fmt.Sprintf("Precedence(%d)", p)
}

// Next returns the level one step tighter than p. Binary operators parse
// their right operand at Next to stay left-associative.
func (p Precedence) Next() Precedence {
	if p >= PrecPrimary {
		return PrecPrimary
	}
	return p + 1
}

// parseFn compiles the construct introduced by the previous token.
// canAssign is true when an assignment target would be legal here.
type parseFn func(c *Compiler, canAssign bool)

// ParseRule says how a token behaves at the start of an expression
// (Prefix), between two operands (Infix), and how tightly it binds.
type ParseRule struct {
	Prefix     parseFn
	Infix      parseFn
	Precedence Precedence
}

// rules is indexed by TokenType. Filled in init because the handlers
// themselves consult the table.
var rules [tokenTypeCount]ParseRule

func init() {
	rules = [tokenTypeCount]ParseRule{
		TokenLeftParen:    {(*Compiler).grouping, nil, PrecNone},
		TokenMinus:        {(*Compiler).unary, (*Compiler).binary, PrecTerm},
		TokenPlus:         {nil, (*Compiler).binary, PrecTerm},
		TokenSlash:        {nil, (*Compiler).binary, PrecFactor},
		TokenStar:         {nil, (*Compiler).binary, PrecFactor},
		TokenBang:         {(*Compiler).unary, nil, PrecNone},
		TokenBangEqual:    {nil, (*Compiler).binary, PrecEquality},
		TokenEqualEqual:   {nil, (*Compiler).binary, PrecEquality},
		TokenGreater:      {nil, (*Compiler).binary, PrecComparison},
		TokenGreaterEqual: {nil, (*Compiler).binary, PrecComparison},
		TokenLess:         {nil, (*Compiler).binary, PrecComparison},
		TokenLessEqual:    {nil, (*Compiler).binary, PrecComparison},
		TokenString:       {(*Compiler).stringLiteral, nil, PrecNone},
		TokenInteger:      {(*Compiler).integer, nil, PrecNone},
		TokenDouble:       {(*Compiler).double, nil, PrecNone},
		TokenFalse:        {(*Compiler).literal, nil, PrecNone},
		TokenNil:          {(*Compiler).literal, nil, PrecNone},
		TokenTrue:         {(*Compiler).literal, nil, PrecNone},
	}
}

// GetRule returns the parse rule for a token type. Token types without an
// entry get the zero rule: no handlers, PrecNone.
func GetRule(t TokenType) ParseRule {
	if t < 0 || t >= tokenTypeCount {
		return ParseRule{}
	}
	return rules[t]
}
