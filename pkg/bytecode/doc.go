// Package bytecode provides the compiled form of Quill programs and the
// stack-based virtual machine that executes it.
//
// # Architecture Overview
//
// The bytecode system consists of several components:
//
//   - Value: a closed tagged union (nil, bool, integer, double, object
//     reference). Heap objects live in an ObjectTable; Values only index it.
//
//   - Opcodes: single-byte instructions. OpConstant is the only one with an
//     operand, a 16-bit little-endian index into the constant pool.
//
//   - Chunk: instruction bytes, a parallel table of source lines (one entry
//     per byte) and a constant pool. A chunk is written by the compiler and
//     frozen when a VM takes it over.
//
//   - Disassembler: one line of text per instruction, used for debugging
//     and for VM tracing.
//
//   - VM: a dispatch loop over a fixed-capacity operand stack. Overflow,
//     underflow, type mismatches and unknown opcodes halt execution with a
//     *RuntimeError instead of corrupting memory.
//
// # Bytecode Layout
//
// A chunk's code is a flat byte stream:
//
//	OP_CONSTANT lo hi    push Constants[hi<<8|lo]
//	OP_ADD               pop b, pop a, push a+b
//	OP_RETURN            pop result, halt
//
// MarshalChunk encodes a chunk with CBOR for transfer within one build.
// There is no compatibility promise between builds.
package bytecode
