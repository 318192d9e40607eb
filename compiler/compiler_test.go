package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/quill/pkg/bytecode"
)

// opsOf returns the opcodes of c in order, skipping operand bytes.
func opsOf(c *bytecode.Chunk) []bytecode.Opcode {
	var ops []bytecode.Opcode
	for offset := 0; offset < len(c.Code); {
		op := bytecode.Opcode(c.Code[offset])
		ops = append(ops, op)
		offset += op.InstructionLen()
	}
	return ops
}

func mustCompile(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	chunk, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}
	return chunk
}

func diagnosticsOf(t *testing.T, source string) []string {
	t.Helper()
	chunk, err := Compile(source)
	if err == nil {
		t.Fatalf("Compile(%q) succeeded, want error", source)
	}
	if chunk != nil {
		t.Errorf("Compile(%q) returned a chunk with its error", source)
	}
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err is %T, want *CompileError", err)
	}
	out := make([]string, len(ce.Diagnostics))
	for i, d := range ce.Diagnostics {
		out[i] = d.String()
	}
	return out
}

const (
	con = bytecode.OpConstant
	add = bytecode.OpAdd
	sub = bytecode.OpSubtract
	mul = bytecode.OpMultiply
	div = bytecode.OpDivide
	neg = bytecode.OpNegate
	not = bytecode.OpNot
	eq  = bytecode.OpEqual
	gt  = bytecode.OpGreater
	lt  = bytecode.OpLess
	pop = bytecode.OpPop
	ret = bytecode.OpReturn
)

func TestCompileEmission(t *testing.T) {
	tests := []struct {
		source string
		ops    []bytecode.Opcode
	}{
		{"42", []bytecode.Opcode{con, ret}},
		{"2 + 3 * 4", []bytecode.Opcode{con, con, con, mul, add, ret}},
		{"(2 + 3) * 4", []bytecode.Opcode{con, con, add, con, mul, ret}},
		{"1 - 2 - 3", []bytecode.Opcode{con, con, sub, con, sub, ret}},
		{"8 / 2 * 3", []bytecode.Opcode{con, con, div, con, mul, ret}},
		{"- - 5", []bytecode.Opcode{con, neg, neg, ret}},
		{"-2 * 3", []bytecode.Opcode{con, neg, con, mul, ret}},
		{"!true", []bytecode.Opcode{bytecode.OpTrue, not, ret}},
		{"!nil == false", []bytecode.Opcode{bytecode.OpNil, not, bytecode.OpFalse, eq, ret}},
		{"1 == 2", []bytecode.Opcode{con, con, eq, ret}},
		{"1 != 2", []bytecode.Opcode{con, con, eq, not, ret}},
		{"1 > 2", []bytecode.Opcode{con, con, gt, ret}},
		{"1 >= 2", []bytecode.Opcode{con, con, lt, not, ret}},
		{"1 < 2", []bytecode.Opcode{con, con, lt, ret}},
		{"1 <= 2", []bytecode.Opcode{con, con, gt, not, ret}},
		{"1 + 2 < 3 == true", []bytecode.Opcode{con, con, add, con, lt, bytecode.OpTrue, eq, ret}},
		{"", []bytecode.Opcode{bytecode.OpNil, ret}},
		{"// only a comment", []bytecode.Opcode{bytecode.OpNil, ret}},
		{"2 + 3;", []bytecode.Opcode{con, con, add, ret}},
		{"1; 2;", []bytecode.Opcode{con, pop, con, ret}},
		{"1; 2; 3", []bytecode.Opcode{con, pop, con, pop, con, ret}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := opsOf(mustCompile(t, tt.source))
			if len(got) != len(tt.ops) {
				t.Fatalf("ops = %v, want %v", got, tt.ops)
			}
			for i := range tt.ops {
				if got[i] != tt.ops[i] {
					t.Fatalf("ops = %v, want %v", got, tt.ops)
				}
			}
		})
	}
}

func TestCompileConstants(t *testing.T) {
	chunk := mustCompile(t, "2 + 3.5")

	if chunk.ConstantCount() != 2 {
		t.Fatalf("ConstantCount() = %d, want 2", chunk.ConstantCount())
	}
	if !chunk.Constants[0].Equal(bytecode.IntValue(2)) {
		t.Errorf("constant 0 = %v, want 2", chunk.Constants[0])
	}
	if !chunk.Constants[1].Equal(bytecode.DoubleValue(3.5)) {
		t.Errorf("constant 1 = %v, want 3.5", chunk.Constants[1])
	}

	listing := chunk.Disassemble()
	if !strings.Contains(listing, "0 '2'") || !strings.Contains(listing, "1 '3.5'") {
		t.Errorf("listing:\n%s", listing)
	}
	if strings.Contains(listing, "UNKNOWN") {
		t.Errorf("listing has unknown opcodes:\n%s", listing)
	}
}

func TestCompileDisassembly(t *testing.T) {
	lines := mustCompile(t, "2 + 3").DisassembleToLines()

	want := []string{"OP_CONSTANT         0 '2'", "OP_CONSTANT         1 '3'", "OP_ADD", "OP_RETURN"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i, line := range lines {
		if strings.Contains(line, "UNKNOWN") {
			t.Errorf("line %d is unknown: %q", i, line)
		}
		if !strings.HasSuffix(line, want[i]) {
			t.Errorf("line %d = %q, want suffix %q", i, line, want[i])
		}
	}
}

func TestCompileStrings(t *testing.T) {
	chunk := mustCompile(t, `"ab" == "ab"`)

	if chunk.Objects.Len() != 1 {
		t.Errorf("Objects.Len() = %d, want 1", chunk.Objects.Len())
	}
	if !chunk.Constants[0].Equal(chunk.Constants[1]) {
		t.Error("equal string literals should share an object")
	}
	if s := chunk.FormatValue(chunk.Constants[0]); s != "ab" {
		t.Errorf("string constant = %q, want %q", s, "ab")
	}
}

func TestCompileLines(t *testing.T) {
	chunk := mustCompile(t, "1 +\n2")

	if len(chunk.Code) != len(chunk.Lines) {
		t.Fatalf("code %d bytes, lines %d", len(chunk.Code), len(chunk.Lines))
	}
	// 0: CONSTANT 1 (line 1), 3: CONSTANT 2 (line 2), 6: ADD (line 1), 7: RETURN
	want := []int{1, 1, 1, 2, 2, 2, 1}
	for i, line := range want {
		if chunk.Lines[i] != line {
			t.Errorf("Lines[%d] = %d, want %d", i, chunk.Lines[i], line)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		source string
		want   []string
	}{
		{"1 +", []string{"[line 1] Error at end: Expect expression."}},
		{"(1", []string{"[line 1] Error at end: Expect ')' after expression."}},
		{")", []string{"[line 1] Error at ')': Expect expression."}},
		{`"abc`, []string{"[line 1] Error: Unterminated string."}},
		{"@", []string{"[line 1] Error: Unexpected character '@'."}},
		{"1 = 2", []string{"[line 1] Error at '=': Invalid assignment target."}},
		{"1 2", []string{"[line 1] Error at '2': Expect ';' after expression."}},
		{"1 +\n\n", []string{"[line 3] Error at end: Expect expression."}},
		{"99999999999999999999", []string{"[line 1] Error at '99999999999999999999': Integer literal out of range."}},
		{"x", []string{"[line 1] Error at 'x': Expect expression."}},
		{"1 and 2", []string{"[line 1] Error at 'and': Expect ';' after expression."}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := diagnosticsOf(t, tt.source)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("diagnostics:\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestCompilePanicModeSuppression(t *testing.T) {
	got := diagnosticsOf(t, "1 + ) + ) ;")
	if len(got) != 1 {
		t.Errorf("got %d diagnostics, want 1: %q", len(got), got)
	}
}

func TestCompileSynchronize(t *testing.T) {
	got := diagnosticsOf(t, "1 +;\n2 +;")
	want := []string{
		"[line 1] Error at ';': Expect expression.",
		"[line 2] Error at ';': Expect expression.",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("diagnostics:\n got %q\nwant %q", got, want)
	}
}

func TestCompileStatementKeywords(t *testing.T) {
	for _, kw := range []string{"module", "import", "let", "if", "else", "fn", "return", "loop", "while", "for", "class"} {
		t.Run(kw, func(t *testing.T) {
			got := diagnosticsOf(t, kw+" x = 1; 2")
			want := "[line 1] Error at '" + kw + "': '" + kw + "' statements are not supported."
			if len(got) != 1 || got[0] != want {
				t.Errorf("diagnostics = %q, want [%q]", got, want)
			}
		})
	}
}

func TestCompileSynchronizeAtKeyword(t *testing.T) {
	got := diagnosticsOf(t, "1 + let")
	want := []string{
		"[line 1] Error at 'let': Expect expression.",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("diagnostics:\n got %q\nwant %q", got, want)
	}

	got = diagnosticsOf(t, "1 2 let")
	want = []string{
		"[line 1] Error at '2': Expect ';' after expression.",
		"[line 1] Error at 'let': 'let' statements are not supported.",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("diagnostics:\n got %q\nwant %q", got, want)
	}
}

func TestCompileConstantLimit(t *testing.T) {
	fits := strings.Repeat("1;", bytecode.MaxConstants)
	chunk := mustCompile(t, fits)
	if chunk.ConstantCount() != bytecode.MaxConstants {
		t.Errorf("ConstantCount() = %d, want %d", chunk.ConstantCount(), bytecode.MaxConstants)
	}

	got := diagnosticsOf(t, fits+"1;")
	if len(got) != 1 || got[0] != "[line 1] Error at '1': Too many constants in one chunk." {
		t.Errorf("diagnostics = %q", got)
	}
}

func TestCompileListing(t *testing.T) {
	var buf bytes.Buffer
	_, err := CompileWithOptions("1 + 2", Options{Listing: &buf, Name: "demo"})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "== demo ==\n") {
		t.Errorf("listing header missing:\n%s", out)
	}
	if !strings.Contains(out, "OP_ADD") {
		t.Errorf("listing missing OP_ADD:\n%s", out)
	}

	buf.Reset()
	if _, err := CompileWithOptions("1 +", Options{Listing: &buf}); err == nil {
		t.Fatal("expected compile error")
	}
	if buf.Len() != 0 {
		t.Errorf("failed compile wrote a listing:\n%s", buf.String())
	}
}

func TestCompileErrorMessage(t *testing.T) {
	_, err := Compile("1 +;\n2 +;")
	if !IsCompileError(err) {
		t.Fatalf("IsCompileError(%v) = false", err)
	}
	if lines := strings.Split(err.Error(), "\n"); len(lines) != 2 {
		t.Errorf("Error() has %d lines, want 2:\n%s", len(lines), err.Error())
	}
	if IsCompileError(errors.New("other")) {
		t.Error("IsCompileError should reject other errors")
	}
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		tok    TokenType
		prec   Precedence
		prefix bool
		infix  bool
	}{
		{TokenPlus, PrecTerm, false, true},
		{TokenMinus, PrecTerm, true, true},
		{TokenStar, PrecFactor, false, true},
		{TokenEqualEqual, PrecEquality, false, true},
		{TokenLess, PrecComparison, false, true},
		{TokenBang, PrecNone, true, false},
		{TokenLeftParen, PrecNone, true, false},
		{TokenInteger, PrecNone, true, false},
		{TokenAnd, PrecNone, false, false},
		{TokenOr, PrecNone, false, false},
		{TokenIdentifier, PrecNone, false, false},
		{TokenEOF, PrecNone, false, false},
	}

	for _, tt := range tests {
		rule := GetRule(tt.tok)
		if rule.Precedence != tt.prec {
			t.Errorf("%v: precedence = %v, want %v", tt.tok, rule.Precedence, tt.prec)
		}
		if (rule.Prefix != nil) != tt.prefix {
			t.Errorf("%v: has prefix = %v, want %v", tt.tok, rule.Prefix != nil, tt.prefix)
		}
		if (rule.Infix != nil) != tt.infix {
			t.Errorf("%v: has infix = %v, want %v", tt.tok, rule.Infix != nil, tt.infix)
		}
	}

	if r := GetRule(TokenType(-1)); r.Prefix != nil || r.Infix != nil {
		t.Error("out-of-range token should have an empty rule")
	}
}

func TestPrecedenceNext(t *testing.T) {
	if PrecTerm.Next() != PrecIncr {
		t.Errorf("PrecTerm.Next() = %v", PrecTerm.Next())
	}
	if PrecFactor.Next() != PrecUnary {
		t.Errorf("PrecFactor.Next() = %v", PrecFactor.Next())
	}
	if PrecPrimary.Next() != PrecPrimary {
		t.Errorf("PrecPrimary.Next() = %v", PrecPrimary.Next())
	}
	if PrecComparison.String() != "comparison" {
		t.Errorf("String() = %q", PrecComparison.String())
	}
}
