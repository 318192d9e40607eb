package bytecode

import (
	"fmt"
	"sort"
)

// Opcode represents a bytecode instruction.
// Every opcode is exactly one byte; OpConstant alone is followed by an
// operand. Byte 0x00 and every value not listed below are unknown.
type Opcode byte

const (
	// ========================================================================
	// Constants and literals
	// ========================================================================

	OpConstant Opcode = 0x01 // Push constant from pool: OpConstant <index:u16le>
	OpNil      Opcode = 0x08 // Push nil
	OpTrue     Opcode = 0x09 // Push true
	OpFalse    Opcode = 0x0A // Push false

	// ========================================================================
	// Arithmetic
	// ========================================================================

	OpNegate   Opcode = 0x03 // Negate top of stack
	OpAdd      Opcode = 0x04 // Pop two, push sum
	OpSubtract Opcode = 0x05 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x06 // Pop two, push product
	OpDivide   Opcode = 0x07 // Pop two, push quotient

	// ========================================================================
	// Comparison and logic
	// ========================================================================

	OpGreater Opcode = 0x0B // Pop two, push a > b
	OpEqual   Opcode = 0x0C // Pop two, push structural equality
	OpLess    Opcode = 0x0D // Pop two, push a < b
	OpNot     Opcode = 0x0E // Logical NOT: push true if TOS is falsey

	// ========================================================================
	// Stack and control
	// ========================================================================

	OpPop    Opcode = 0x10 // Discard top of stack
	OpReturn Opcode = 0x02 // Pop result and halt
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"OP_CONSTANT", 0, 1, 2},
	OpNil:      {"OP_NIL", 0, 1, 0},
	OpTrue:     {"OP_TRUE", 0, 1, 0},
	OpFalse:    {"OP_FALSE", 0, 1, 0},

	OpNegate:   {"OP_NEGATE", 1, 1, 0},
	OpAdd:      {"OP_ADD", 2, 1, 0},
	OpSubtract: {"OP_SUBTRACT", 2, 1, 0},
	OpMultiply: {"OP_MULTIPLY", 2, 1, 0},
	OpDivide:   {"OP_DIVIDE", 2, 1, 0},

	OpGreater: {"OP_GREATER", 2, 1, 0},
	OpEqual:   {"OP_EQUAL", 2, 1, 0},
	OpLess:    {"OP_LESS", 2, 1, 0},
	OpNot:     {"OP_NOT", 1, 1, 0},

	OpPop:    {"OP_POP", 1, 0, 0},
	OpReturn: {"OP_RETURN", 1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsKnown reports whether op is a defined opcode.
func (op Opcode) IsKnown() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// AllOpcodes returns every defined opcode in ascending byte order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	sort.Slice(opcodes, func(i, j int) bool { return opcodes[i] < opcodes[j] })
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
