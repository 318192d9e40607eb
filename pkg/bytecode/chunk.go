package bytecode

import (
	"encoding/binary"
	"errors"
)

// MaxConstants is the size of the constant pool addressable by the 16-bit
// OpConstant operand.
const MaxConstants = 1 << 16

// ErrTooManyConstants is returned when a constant would not fit the 16-bit
// operand of OpConstant.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// Chunk is one compiled bytecode unit: instruction bytes, a parallel table
// of source lines and a constant pool.
//
// A Chunk is appended to by the compiler and becomes read-only once a VM
// takes it over (see Freeze). Lines always has exactly one entry per byte
// of Code, operand bytes included.
type Chunk struct {
	Code      []byte  // Bytecode instructions
	Lines     []int   // Source line of each byte in Code
	Constants []Value // Constant pool, addressed by OpConstant

	// Objects owns the heap objects referenced by Constants. It moves
	// with the chunk.
	Objects *ObjectTable

	frozen bool
}

// NewChunk creates a new empty chunk with its own object table.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Lines:     make([]int, 0, 64),
		Constants: make([]Value, 0, 8),
		Objects:   NewObjectTable(),
	}
}

func (c *Chunk) mustBeWritable() {
	if c.frozen {
		panic("bytecode: write to frozen chunk")
	}
}

// EmitByte appends a raw byte tagged with its source line and returns its
// offset.
func (c *Chunk) EmitByte(b byte, line int) int {
	c.mustBeWritable()
	offset := len(c.Code)
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return offset
}

// Emit appends a single-byte opcode and returns its offset.
func (c *Chunk) Emit(op Opcode, line int) int {
	return c.EmitByte(byte(op), line)
}

// EmitOperand16 appends a 16-bit operand in little-endian order. The line
// is recorded once per byte.
func (c *Chunk) EmitOperand16(v uint16, line int) {
	c.mustBeWritable()
	c.Code = binary.LittleEndian.AppendUint16(c.Code, v)
	c.Lines = append(c.Lines, line, line)
}

// AddConstant appends value to the pool and returns its index. Callers
// check the index against MaxConstants.
func (c *Chunk) AddConstant(value Value) int {
	c.mustBeWritable()
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// EmitConstant adds value to the pool and emits an OpConstant loading it.
// Returns the offset of the instruction.
func (c *Chunk) EmitConstant(value Value, line int) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	idx := c.AddConstant(value)
	offset := c.Emit(OpConstant, line)
	c.EmitOperand16(uint16(idx), line)
	return offset, nil
}

// ReadOperand16 decodes the little-endian operand starting at offset.
// ok is false when fewer than two bytes remain.
func (c *Chunk) ReadOperand16(offset int) (v uint16, ok bool) {
	if offset < 0 || offset+2 > len(c.Code) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(c.Code[offset:]), true
}

// LineAt returns the source line for the byte at offset, or 0.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// Freeze marks the chunk read-only. Any later append panics.
func (c *Chunk) Freeze() {
	c.frozen = true
}

// Frozen reports whether Freeze has been called.
func (c *Chunk) Frozen() bool {
	return c.frozen
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// FormatValue renders v using the chunk's object table.
func (c *Chunk) FormatValue(v Value) string {
	return c.Objects.Format(v)
}
