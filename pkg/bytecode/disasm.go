package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	}

	for _, line := range c.DisassembleToLines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	return sb.String()
}

// DisassembleInstruction formats the instruction at offset and returns the
// text along with the offset of the next instruction.
//
// Each line holds the byte offset, the source line (a bar when it repeats
// the previous byte's line), the mnemonic and, for OpConstant, the pool
// index and the constant itself. Unknown bytes are reported, not fatal.
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	if offset < 0 || offset >= len(c.Code) {
		return "<end of code>", len(c.Code)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%04d ", offset))
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", c.LineAt(offset)))
	}

	op := Opcode(c.Code[offset])
	text, next := c.disassembleOperands(op, offset)
	sb.WriteString(text)
	return sb.String(), next
}

// disassembleOperands formats op and its operands. Returns the text and
// the next offset.
func (c *Chunk) disassembleOperands(op Opcode, offset int) (string, int) {
	info := GetOpcodeInfo(op)

	switch op {
	case OpConstant:
		idx, ok := c.ReadOperand16(offset + 1)
		if !ok {
			return fmt.Sprintf("%-16s <truncated>", info.Name), len(c.Code)
		}
		if int(idx) >= len(c.Constants) {
			return fmt.Sprintf("%-16s %4d <missing>", info.Name, idx), offset + 3
		}
		return fmt.Sprintf("%-16s %4d '%s'", info.Name, idx, c.Objects.Format(c.Constants[idx])), offset + 3

	default:
		return info.Name, offset + 1
	}
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (c *Chunk) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, next := c.DisassembleInstruction(offset)
		lines = append(lines, line)
		offset = next
	}
	return lines
}

// InstructionCount returns the number of instructions in the chunk.
// Note: This iterates through all code, so it's O(n).
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		offset += op.InstructionLen()
		count++
	}
	return count
}
