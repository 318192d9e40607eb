// Package quill compiles and runs Quill programs.
//
// Source text goes through a single-pass compiler (package compiler) that
// emits a bytecode chunk, and the chunk is executed by the stack VM in
// package bytecode. Every call builds its own scanner, compiler, chunk and
// VM, so calls are independent of each other.
package quill

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/pkg/bytecode"
)

// Status is the outcome class of an Interpret call.
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCompileError:
		return "compile error"
	case StatusRuntimeError:
		return "runtime error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is what Interpret reports back to a front end.
type Result struct {
	Status Status
	Value  bytecode.Value // Program result when Status is StatusOK
	Text   string         // Value formatted with strings resolved
	Err    error          // *compiler.CompileError or *bytecode.RuntimeError
	RunID  string         // Identifies this run in log output
}

// Config controls an Interpreter.
type Config struct {
	StackSize   int              // Operand stack capacity; 0 means the VM default
	Trace       io.Writer        // Receives an execution trace when set
	Listing     io.Writer        // Receives the disassembly of each compiled chunk
	Fingerprint bool             // Log each chunk's content hash
	Logger      commonlog.Logger // Defaults to the "quill" logger
}

// ConfigFromManifest maps a quill.toml manifest onto a Config. trace is
// used as the trace writer when the manifest enables tracing, and listing
// when it enables disassembly.
func ConfigFromManifest(m *manifest.Manifest, trace, listing io.Writer) Config {
	cfg := Config{StackSize: m.VM.StackSize}
	if m.VM.Trace {
		cfg.Trace = trace
	}
	if m.Compiler.Disassemble {
		cfg.Listing = listing
	}
	cfg.Fingerprint = m.Compiler.Fingerprint
	return cfg
}

// Interpreter compiles and executes source with a fixed configuration.
type Interpreter struct {
	cfg Config
	log commonlog.Logger
}

// New creates an Interpreter.
func New(cfg Config) *Interpreter {
	log := cfg.Logger
	if log == nil {
		log = commonlog.GetLogger("quill")
	}
	return &Interpreter{cfg: cfg, log: log}
}

// Compile compiles source with the default options.
func Compile(source string) (*bytecode.Chunk, error) {
	return compiler.Compile(source)
}

// Interpret compiles and runs source with the default configuration.
func Interpret(source string) Result {
	return New(Config{}).Interpret(source)
}

// Interpret compiles source and, if that succeeds, hands the chunk to a
// fresh VM. The VM never runs when compilation fails.
func (in *Interpreter) Interpret(source string) Result {
	res := Result{RunID: uuid.NewString()}

	chunk, err := compiler.CompileWithOptions(source, compiler.Options{
		Logger:  in.log,
		Listing: in.cfg.Listing,
		Name:    res.RunID,
		RunID:   res.RunID,
	})
	if err != nil {
		in.log.Debug("compile failed", "run", res.RunID, "error", err.Error())
		res.Status = StatusCompileError
		res.Err = err
		return res
	}

	if in.cfg.Fingerprint {
		if sum, err := chunk.Fingerprint(); err == nil {
			in.log.Info("compiled chunk", "run", res.RunID, "fingerprint", hex.EncodeToString(sum[:8]))
		} else {
			in.log.Warning("fingerprint failed", "run", res.RunID, "error", err.Error())
		}
	}

	opts := []bytecode.Option{
		bytecode.WithStackSize(in.cfg.StackSize),
		bytecode.WithLogger(in.log),
		bytecode.WithRunID(res.RunID),
	}
	if in.cfg.Trace != nil {
		opts = append(opts, bytecode.WithTrace(in.cfg.Trace))
	}
	vm := bytecode.NewVM(opts...)

	value, err := vm.Execute(chunk)
	if err != nil {
		in.log.Debug("runtime error", "run", res.RunID, "error", err.Error())
		res.Status = StatusRuntimeError
		res.Err = err
		return res
	}

	res.Status = StatusOK
	res.Value = value
	res.Text = vm.Objects().Format(value)
	in.log.Debug("run finished", "run", res.RunID, "result", res.Text)
	return res
}

// IsRuntimeError reports whether err is, or wraps, a *bytecode.RuntimeError.
func IsRuntimeError(err error) bool {
	var re *bytecode.RuntimeError
	return errors.As(err, &re)
}
