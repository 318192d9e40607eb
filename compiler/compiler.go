package compiler

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/quill/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Compiler: single-pass Pratt parser emitting bytecode
// ---------------------------------------------------------------------------

// Diagnostic is one compile-time error.
type Diagnostic struct {
	Line    int
	Where   string // " at 'x'", " at end", or empty for lexical errors
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// CompileError collects the diagnostics of a failed compilation.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// IsCompileError reports whether err is, or wraps, a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// Options tune a compilation.
type Options struct {
	// Logger receives debug output. Defaults to the "quill.compiler" logger.
	Logger commonlog.Logger

	// Listing, when set, receives the disassembly of a successful compile.
	Listing io.Writer

	// Name labels the listing.
	Name string

	// RunID, when set, is attached to every log line as the "run" key.
	RunID string
}

// parser holds the token window and error state of one compilation.
type parser struct {
	current   Token
	previous  Token
	hadError  bool
	panicMode bool
}

// Compiler turns source text into a bytecode chunk in a single pass. There
// is no syntax tree: each parse function emits its code as soon as it has
// parsed its operands.
type Compiler struct {
	scanner *Scanner
	parser  parser
	chunk   *bytecode.Chunk
	diags   []Diagnostic
	opts    Options
	log     commonlog.Logger
}

// Compile compiles source into a fresh chunk. On failure the error is a
// *CompileError listing every reported diagnostic.
func Compile(source string) (*bytecode.Chunk, error) {
	return CompileWithOptions(source, Options{})
}

// CompileWithOptions is Compile with logging and listing control.
func CompileWithOptions(source string, opts Options) (*bytecode.Chunk, error) {
	c := newCompiler(source, opts)
	return c.compile()
}

func newCompiler(source string, opts Options) *Compiler {
	log := opts.Logger
	if log == nil {
		log = commonlog.GetLogger("quill.compiler")
	}
	return &Compiler{
		scanner: NewScanner(source),
		chunk:   bytecode.NewChunk(),
		opts:    opts,
		log:     log,
	}
}

// compile drives the whole pass: statements until EOF, then OpReturn.
// Every statement leaves one value; all but the last are popped, and the
// last becomes the program result.
func (c *Compiler) compile() (*bytecode.Chunk, error) {
	c.advance()

	hasValue := false
	for !c.match(TokenEOF) {
		if hasValue {
			c.emitOp(bytecode.OpPop)
		}
		hasValue = c.statement()

		if c.parser.panicMode {
			c.synchronize()
		}
	}

	if !hasValue {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)

	if c.parser.hadError {
		c.debug("compile failed", "diagnostics", len(c.diags))
		return nil, &CompileError{Diagnostics: c.diags}
	}

	c.debug("compile finished", "bytes", c.chunk.CodeLen(),
		"constants", c.chunk.ConstantCount(), "objects", c.chunk.Objects.Len())
	if c.opts.Listing != nil {
		name := c.opts.Name
		if name == "" {
			name = "code"
		}
		io.WriteString(c.opts.Listing, c.chunk.DisassembleWithName(name))
	}
	return c.chunk, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// statement compiles one statement and reports whether it left a value on
// the stack.
func (c *Compiler) statement() bool {
	if isStatementKeyword(c.parser.current.Type) {
		c.advance()
		c.errorAtPrevious(fmt.Sprintf("'%s' statements are not supported.", c.parser.previous.Lexeme))
		return false
	}
	c.expressionStatement()
	return true
}

// expressionStatement compiles an expression terminated by ';' or by the
// end of input.
func (c *Compiler) expressionStatement() {
	c.expression()
	if c.match(TokenSemicolon) || c.check(TokenEOF) {
		return
	}
	c.errorAtCurrent("Expect ';' after expression.")
}

// isStatementKeyword reports whether t starts a declaration or control-flow
// statement. Those are recognised but not compiled.
func isStatementKeyword(t TokenType) bool {
	switch t {
	case TokenModule, TokenImport, TokenLet, TokenIf, TokenElse, TokenFn,
		TokenReturn, TokenLoop, TokenWhile, TokenFor, TokenClass:
		return true
	}
	return false
}

// synchronize leaves panic mode and skips tokens up to the next statement
// boundary: just past a ';' or just before a statement keyword.
func (c *Compiler) synchronize() {
	c.parser.panicMode = false

	for c.parser.current.Type != TokenEOF {
		if c.parser.previous.Type == TokenSemicolon {
			return
		}
		if isStatementKeyword(c.parser.current.Type) {
			return
		}
		c.advance()
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence parses an expression whose operators bind at least as
// tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := GetRule(c.parser.previous.Type).Prefix
	if prefix == nil {
		c.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= GetRule(c.parser.current.Type).Precedence {
		c.advance()
		infix := GetRule(c.parser.previous.Type).Infix
		if infix == nil {
			break
		}
		infix(c, canAssign)
	}

	if canAssign && c.match(TokenEqual) {
		c.errorAtPrevious("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	operator := c.parser.previous

	c.parsePrecedence(PrecUnary)

	switch operator.Type {
	case TokenMinus:
		c.emitOpAt(bytecode.OpNegate, operator.Line)
	case TokenBang:
		c.emitOpAt(bytecode.OpNot, operator.Line)
	}
}

// binary compiles the right operand and the operator. The left operand is
// already on the stack.
//
// Only Greater and Less exist in the instruction set; the other relational
// operators are emitted as their negation.
func (c *Compiler) binary(canAssign bool) {
	operator := c.parser.previous
	rule := GetRule(operator.Type)
	c.parsePrecedence(rule.Precedence.Next())

	line := operator.Line
	switch operator.Type {
	case TokenPlus:
		c.emitOpAt(bytecode.OpAdd, line)
	case TokenMinus:
		c.emitOpAt(bytecode.OpSubtract, line)
	case TokenStar:
		c.emitOpAt(bytecode.OpMultiply, line)
	case TokenSlash:
		c.emitOpAt(bytecode.OpDivide, line)
	case TokenEqualEqual:
		c.emitOpAt(bytecode.OpEqual, line)
	case TokenBangEqual:
		c.emitOpAt(bytecode.OpEqual, line)
		c.emitOpAt(bytecode.OpNot, line)
	case TokenGreater:
		c.emitOpAt(bytecode.OpGreater, line)
	case TokenGreaterEqual:
		c.emitOpAt(bytecode.OpLess, line)
		c.emitOpAt(bytecode.OpNot, line)
	case TokenLess:
		c.emitOpAt(bytecode.OpLess, line)
	case TokenLessEqual:
		c.emitOpAt(bytecode.OpGreater, line)
		c.emitOpAt(bytecode.OpNot, line)
	}
}

func (c *Compiler) integer(canAssign bool) {
	n, err := strconv.ParseInt(c.parser.previous.Lexeme, 10, 64)
	if err != nil {
		c.errorAtPrevious("Integer literal out of range.")
		return
	}
	c.emitConstant(bytecode.IntValue(n))
}

func (c *Compiler) double(canAssign bool) {
	f, err := strconv.ParseFloat(c.parser.previous.Lexeme, 64)
	if err != nil {
		c.errorAtPrevious("Double literal out of range.")
		return
	}
	c.emitConstant(bytecode.DoubleValue(f))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	lexeme := c.parser.previous.Lexeme
	text := lexeme[1 : len(lexeme)-1]
	c.emitConstant(c.chunk.Objects.InternString(text))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.parser.previous.Type {
	case TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case TokenNil:
		c.emitOp(bytecode.OpNil)
	case TokenTrue:
		c.emitOp(bytecode.OpTrue)
	}
}

// ---------------------------------------------------------------------------
// Token window
// ---------------------------------------------------------------------------

// advance moves to the next non-error token, reporting every error token
// it skips.
func (c *Compiler) advance() {
	c.parser.previous = c.parser.current

	for {
		c.parser.current = c.scanner.Next()
		if c.parser.current.Type != TokenError {
			break
		}
		c.errorAtCurrent(c.parser.current.Lexeme)
	}
}

func (c *Compiler) check(t TokenType) bool {
	return c.parser.current.Type == t
}

func (c *Compiler) match(t TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

// consume advances past a token of type t or reports message.
func (c *Compiler) consume(t TokenType, message string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (c *Compiler) emitOp(op bytecode.Opcode) {
	c.chunk.Emit(op, c.parser.previous.Line)
}

func (c *Compiler) emitOpAt(op bytecode.Opcode, line int) {
	c.chunk.Emit(op, line)
}

func (c *Compiler) emitConstant(v bytecode.Value) {
	if _, err := c.chunk.EmitConstant(v, c.parser.previous.Line); err != nil {
		c.errorAtPrevious("Too many constants in one chunk.")
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.parser.current, message)
}

func (c *Compiler) errorAtPrevious(message string) {
	c.errorAt(c.parser.previous, message)
}

// errorAt records a diagnostic unless the parser is already panicking.
// The first error enters panic mode; synchronize leaves it.
func (c *Compiler) errorAt(tok Token, message string) {
	if c.parser.panicMode {
		return
	}
	c.parser.panicMode = true
	c.parser.hadError = true

	d := Diagnostic{Line: tok.Line, Message: message}
	switch tok.Type {
	case TokenEOF:
		d.Where = " at end"
	case TokenError:
		// The message already describes the offending text.
	default:
		d.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.diags = append(c.diags, d)
	c.debug("compile error", "line", d.Line, "message", d.Message)
}

func (c *Compiler) debug(message string, keysAndValues ...any) {
	if c.opts.RunID != "" {
		keysAndValues = append([]any{"run", c.opts.RunID}, keysAndValues...)
	}
	c.log.Debug(message, keysAndValues...)
}
