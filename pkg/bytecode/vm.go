package bytecode

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"
)

// DefaultStackSize is the operand stack capacity of a VM built without
// WithStackSize.
const DefaultStackSize = 64000

// Runtime failure classes. A *RuntimeError wraps exactly one of these.
var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrTypeMismatch   = errors.New("operand type mismatch")
	ErrDivisionByZero = errors.New("division by zero")
	ErrMalformedChunk = errors.New("malformed chunk")
)

// RuntimeError reports where execution halted and why.
type RuntimeError struct {
	Offset int    // Byte offset of the failing instruction
	Line   int    // Source line of the failing instruction
	Op     Opcode // Failing instruction
	Err    error  // Cause; wraps one of the Err* sentinels
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] runtime error at %s: %v", e.Line, e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// VM executes bytecode chunks over a fixed-capacity operand stack.
// A VM runs one chunk at a time and is not safe for concurrent use.
type VM struct {
	chunk *Chunk  // Current bytecode chunk, owned while executing
	ip    int     // Instruction pointer
	stack []Value // Value stack
	sp    int     // Stack pointer (index of the next free slot)

	// Debug/trace mode
	Trace    bool
	traceOut io.Writer

	log   commonlog.Logger
	runID string
}

// Option configures a VM.
type Option func(*VM)

// WithStackSize sets the operand stack capacity.
func WithStackSize(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.stack = make([]Value, n)
		}
	}
}

// WithTrace enables execution tracing to w.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) {
		vm.Trace = w != nil
		vm.traceOut = w
	}
}

// WithLogger replaces the default "quill.vm" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) {
		if log != nil {
			vm.log = log
		}
	}
}

// WithRunID tags every log line of the VM with id under the "run" key.
func WithRunID(id string) Option {
	return func(vm *VM) {
		vm.runID = id
	}
}

// NewVM creates a new VM instance.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		log: commonlog.GetLogger("quill.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.stack == nil {
		vm.stack = make([]Value, DefaultStackSize)
	}
	if vm.Trace && vm.traceOut == nil {
		vm.Trace = false
	}
	return vm
}

// Execute takes ownership of chunk and runs it until OpReturn or a runtime
// error. The chunk is frozen and must not be appended to afterwards.
func (vm *VM) Execute(chunk *Chunk) (Value, error) {
	if chunk == nil {
		return NilValue(), &RuntimeError{Err: fmt.Errorf("%w: nil chunk", ErrMalformedChunk)}
	}
	if len(chunk.Code) != len(chunk.Lines) {
		return NilValue(), &RuntimeError{Err: fmt.Errorf("%w: %d code bytes but %d line entries",
			ErrMalformedChunk, len(chunk.Code), len(chunk.Lines))}
	}
	chunk.Freeze()
	vm.chunk = chunk
	vm.ip = 0
	vm.sp = 0

	result, err := vm.run()
	if err != nil {
		vm.debug("execution halted", "error", err.Error())
		return NilValue(), err
	}
	return result, nil
}

func (vm *VM) debug(message string, keysAndValues ...any) {
	if vm.runID != "" {
		keysAndValues = append([]any{"run", vm.runID}, keysAndValues...)
	}
	vm.log.Debug(message, keysAndValues...)
}

// Objects returns the object table of the chunk being (or last) executed.
func (vm *VM) Objects() *ObjectTable {
	if vm.chunk == nil {
		return nil
	}
	return vm.chunk.Objects
}

// StackDepth returns the number of values currently on the stack.
func (vm *VM) StackDepth() int {
	return vm.sp
}

// StackSize returns the stack capacity.
func (vm *VM) StackSize() int {
	return len(vm.stack)
}

// run is the main execution loop.
func (vm *VM) run() (Value, error) {
	code := vm.chunk.Code
	for {
		if vm.ip >= len(code) {
			return NilValue(), vm.fail(vm.ip, OpReturn,
				fmt.Errorf("%w: reached end of code without %s", ErrMalformedChunk, OpReturn))
		}

		if vm.Trace {
			vm.traceInstruction()
		}

		start := vm.ip
		op := Opcode(code[vm.ip])
		vm.ip++

		var err error
		switch op {
		// ============ Constants ============
		case OpConstant:
			idx, ok := vm.chunk.ReadOperand16(vm.ip)
			if !ok {
				err = fmt.Errorf("%w: truncated operand", ErrMalformedChunk)
				break
			}
			vm.ip += 2
			if int(idx) >= len(vm.chunk.Constants) {
				err = fmt.Errorf("%w: constant index %d out of range", ErrMalformedChunk, idx)
				break
			}
			err = vm.push(vm.chunk.Constants[idx])

		case OpNil:
			err = vm.push(NilValue())

		case OpTrue:
			err = vm.push(BoolValue(true))

		case OpFalse:
			err = vm.push(BoolValue(false))

		// ============ Arithmetic ============
		case OpAdd, OpSubtract, OpMultiply, OpDivide:
			err = vm.arithmetic(op)

		case OpNegate:
			var a Value
			if a, err = vm.pop(); err != nil {
				break
			}
			switch {
			case a.IsInt():
				err = vm.push(IntValue(-a.AsInt()))
			case a.IsDouble():
				err = vm.push(DoubleValue(-a.AsDouble()))
			default:
				err = fmt.Errorf("%w: operand must be a number, got %s", ErrTypeMismatch, a.Kind())
			}

		// ============ Comparison ============
		case OpGreater, OpLess:
			err = vm.compare(op)

		case OpEqual:
			var a, b Value
			if a, b, err = vm.popPair(); err != nil {
				break
			}
			err = vm.push(BoolValue(a.Equal(b)))

		// ============ Logical ============
		case OpNot:
			var a Value
			if a, err = vm.pop(); err != nil {
				break
			}
			err = vm.push(BoolValue(a.IsFalsey()))

		// ============ Stack and control ============
		case OpPop:
			_, err = vm.pop()

		case OpReturn:
			result, perr := vm.pop()
			if perr != nil {
				return NilValue(), vm.fail(start, op, perr)
			}
			return result, nil

		default:
			err = fmt.Errorf("%w: byte 0x%02X", ErrUnknownOpcode, byte(op))
		}

		if err != nil {
			return NilValue(), vm.fail(start, op, err)
		}
	}
}

// arithmetic applies a binary arithmetic opcode. Both operands must be
// integers or both doubles. Integer overflow wraps.
func (vm *VM) arithmetic(op Opcode) error {
	a, b, err := vm.popPair()
	if err != nil {
		return err
	}

	switch {
	case a.IsInt() && b.IsInt():
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case OpAdd:
			return vm.push(IntValue(x + y))
		case OpSubtract:
			return vm.push(IntValue(x - y))
		case OpMultiply:
			return vm.push(IntValue(x * y))
		default:
			if y == 0 {
				return ErrDivisionByZero
			}
			return vm.push(IntValue(x / y))
		}

	case a.IsDouble() && b.IsDouble():
		x, y := a.AsDouble(), b.AsDouble()
		switch op {
		case OpAdd:
			return vm.push(DoubleValue(x + y))
		case OpSubtract:
			return vm.push(DoubleValue(x - y))
		case OpMultiply:
			return vm.push(DoubleValue(x * y))
		default:
			return vm.push(DoubleValue(x / y))
		}
	}

	return fmt.Errorf("%w: operands must be two numbers of the same kind, got %s and %s",
		ErrTypeMismatch, a.Kind(), b.Kind())
}

// compare applies OpGreater or OpLess.
func (vm *VM) compare(op Opcode) error {
	a, b, err := vm.popPair()
	if err != nil {
		return err
	}

	var result bool
	switch {
	case a.IsInt() && b.IsInt():
		if op == OpGreater {
			result = a.AsInt() > b.AsInt()
		} else {
			result = a.AsInt() < b.AsInt()
		}
	case a.IsDouble() && b.IsDouble():
		if op == OpGreater {
			result = a.AsDouble() > b.AsDouble()
		} else {
			result = a.AsDouble() < b.AsDouble()
		}
	default:
		return fmt.Errorf("%w: operands must be two numbers of the same kind, got %s and %s",
			ErrTypeMismatch, a.Kind(), b.Kind())
	}
	return vm.push(BoolValue(result))
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (vm *VM) push(val Value) error {
	if vm.sp >= len(vm.stack) {
		return fmt.Errorf("%w: capacity %d", ErrStackOverflow, len(vm.stack))
	}
	vm.stack[vm.sp] = val
	vm.sp++
	return nil
}

func (vm *VM) pop() (Value, error) {
	if vm.sp == 0 {
		return NilValue(), ErrStackUnderflow
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

// popPair pops the right operand then the left one and returns them in
// source order.
func (vm *VM) popPair() (a, b Value, err error) {
	if b, err = vm.pop(); err != nil {
		return
	}
	a, err = vm.pop()
	return
}

func (vm *VM) fail(offset int, op Opcode, err error) error {
	return &RuntimeError{
		Offset: offset,
		Line:   vm.chunk.LineAt(offset),
		Op:     op,
		Err:    err,
	}
}

// traceInstruction prints the stack and the next instruction.
func (vm *VM) traceInstruction() {
	var sb strings.Builder
	sb.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		sb.WriteString("[ ")
		sb.WriteString(vm.chunk.Objects.Format(vm.stack[i]))
		sb.WriteString(" ]")
	}
	sb.WriteByte('\n')
	line, _ := vm.chunk.DisassembleInstruction(vm.ip)
	sb.WriteString(line)
	sb.WriteByte('\n')
	io.WriteString(vm.traceOut, sb.String())
}
