package compiler

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Scanner: on-demand tokenizer for Quill source
// ---------------------------------------------------------------------------

// Scanner turns source text into tokens, one per call to Next. It never
// backtracks more than one character and cannot be restarted.
//
// Lexical problems do not stop the scanner: they come back as TokenError
// tokens whose lexeme is the message.
type Scanner struct {
	source  string
	start   int // offset of the token being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
	}
}

// Next returns the next token. At end of input it returns TokenEOF, and
// keeps returning it on every later call.
func (s *Scanner) Next() Token {
	s.skipWhitespace()

	s.start = s.current
	if s.isAtEnd() {
		return s.makeToken(TokenEOF)
	}

	r := s.advance()

	if isAlpha(r) {
		return s.readIdentifier()
	}
	if isDigit(r) {
		return s.readNumber()
	}

	switch r {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ';':
		return s.makeToken(TokenSemicolon)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)
	case '!':
		return s.makeToken(s.either('=', TokenBangEqual, TokenBang))
	case '=':
		return s.makeToken(s.either('=', TokenEqualEqual, TokenEqual))
	case '>':
		return s.makeToken(s.either('=', TokenGreaterEqual, TokenGreater))
	case '<':
		return s.makeToken(s.either('=', TokenLessEqual, TokenLess))
	case '"':
		return s.readString()
	}

	return s.errorToken(fmt.Sprintf("Unexpected character '%c'.", r))
}

// skipWhitespace skips blanks, newlines and // comments.
func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}
		default:
			return
		}
	}
}

// readIdentifier reads the rest of an identifier or keyword.
func (s *Scanner) readIdentifier() Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	if tokType, ok := keywords[s.source[s.start:s.current]]; ok {
		return s.makeToken(tokType)
	}
	return s.makeToken(TokenIdentifier)
}

// readNumber reads an integer, or a double when a '.' is followed by a digit.
func (s *Scanner) readNumber() Token {
	for isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume .
		for isDigit(s.peek()) {
			s.advance()
		}
		return s.makeToken(TokenDouble)
	}

	return s.makeToken(TokenInteger)
}

// readString reads a string literal. Strings may span lines.
func (s *Scanner) readString() Token {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}

	if s.isAtEnd() {
		return s.errorToken("Unterminated string.")
	}

	s.advance() // consume closing "
	return s.makeToken(TokenString)
}

// ---------------------------------------------------------------------------
// Character helpers
// ---------------------------------------------------------------------------

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

// advance consumes and returns the next character.
func (s *Scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.source[s.current:])
	s.current += size
	return r
}

// peek returns the next character without consuming it, or 0 at the end.
func (s *Scanner) peek() rune {
	if s.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.current:])
	return r
}

// peekNext returns the character after the next one, or 0.
func (s *Scanner) peekNext() rune {
	if s.isAtEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(s.source[s.current:])
	if s.current+size >= len(s.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.current+size:])
	return r
}

// either consumes expected if it is next and returns matched, otherwise
// returns single.
func (s *Scanner) either(expected rune, matched, single TokenType) TokenType {
	if s.peek() != expected || s.isAtEnd() {
		return single
	}
	s.advance()
	return matched
}

func (s *Scanner) makeToken(t TokenType) Token {
	return Token{Type: t, Lexeme: s.source[s.start:s.current], Line: s.line}
}

func (s *Scanner) errorToken(message string) Token {
	return Token{Type: TokenError, Lexeme: message, Line: s.line}
}

func isAlpha(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, ending with the EOF token or
// the first error token.
func Tokenize(input string) []Token {
	s := NewScanner(input)
	var tokens []Token
	for {
		tok := s.Next()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
