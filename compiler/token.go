package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Quill scanner
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Single-character tokens
	TokenLeftParen  TokenType = iota // (
	TokenRightParen                  // )
	TokenLeftBrace                   // {
	TokenRightBrace                  // }
	TokenComma                       // ,
	TokenDot                         // .
	TokenMinus                       // -
	TokenPlus                        // +
	TokenSemicolon                   // ;
	TokenSlash                       // /
	TokenStar                        // *

	// One or two character tokens
	TokenBang         // !
	TokenBangEqual    // !=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=

	// Literals
	TokenIdentifier
	TokenString  // "text"
	TokenInteger // 42
	TokenDouble  // 3.14

	// Keywords
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFn
	TokenFor
	TokenIf
	TokenImport
	TokenLet
	TokenLoop
	TokenModule
	TokenNil
	TokenOr
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenWhile

	// Special tokens
	TokenError
	TokenEOF

	tokenTypeCount
)

var tokenNames = map[TokenType]string{
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBrace:    "{",
	TokenRightBrace:   "}",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenMinus:        "-",
	TokenPlus:         "+",
	TokenSemicolon:    ";",
	TokenSlash:        "/",
	TokenStar:         "*",
	TokenBang:         "!",
	TokenBangEqual:    "!=",
	TokenEqual:        "=",
	TokenEqualEqual:   "==",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenInteger:      "INTEGER",
	TokenDouble:       "DOUBLE",
	TokenAnd:          "and",
	TokenClass:        "class",
	TokenElse:         "else",
	TokenFalse:        "false",
	TokenFn:           "fn",
	TokenFor:          "for",
	TokenIf:           "if",
	TokenImport:       "import",
	TokenLet:          "let",
	TokenLoop:         "loop",
	TokenModule:       "module",
	TokenNil:          "nil",
	TokenOr:           "or",
	TokenReturn:       "return",
	TokenSuper:        "super",
	TokenThis:         "this",
	TokenTrue:         "true",
	TokenWhile:        "while",
	TokenError:        "ERROR",
	TokenEOF:          "EOF",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token. For TokenError the lexeme holds the
// diagnostic message instead of source text.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Lexeme)
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}

// Reserved words mapped to their token types.
var keywords = map[string]TokenType{
	"and":    TokenAnd,
	"class":  TokenClass,
	"else":   TokenElse,
	"false":  TokenFalse,
	"fn":     TokenFn,
	"for":    TokenFor,
	"if":     TokenIf,
	"import": TokenImport,
	"let":    TokenLet,
	"loop":   TokenLoop,
	"module": TokenModule,
	"nil":    TokenNil,
	"or":     TokenOr,
	"return": TokenReturn,
	"super":  TokenSuper,
	"this":   TokenThis,
	"true":   TokenTrue,
	"while":  TokenWhile,
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenAnd && t <= TokenWhile
}
