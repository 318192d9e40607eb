package quill

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tliron/commonlog"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/pkg/bytecode"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"- - 5", "5"},
		{"2 + 3;", "5"},
		{"10 - 4 - 3", "3"},
		{"7 / 2", "3"},
		{"7.0 / 2.0", "3.5"},
		{"1 < 2", "true"},
		{"2 <= 2", "true"},
		{"3 >= 4", "false"},
		{"1 != 1", "false"},
		{"!nil", "true"},
		{"nil", "nil"},
		{"", "nil"},
		{`"hi"`, "hi"},
		{`"a" == "a"`, "true"},
		{`"a" == "b"`, "false"},
		{"1; 2; 3", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			res := Interpret(tt.source)
			if res.Status != StatusOK {
				t.Fatalf("Status = %s, err = %v", res.Status, res.Err)
			}
			if res.Text != tt.want {
				t.Errorf("Text = %q, want %q", res.Text, tt.want)
			}
			if res.RunID == "" {
				t.Error("RunID is empty")
			}
		})
	}
}

func TestInterpretValue(t *testing.T) {
	res := Interpret("2 + 3 * 4")
	if !res.Value.Equal(bytecode.IntValue(14)) {
		t.Errorf("Value = %v, want 14", res.Value)
	}
}

func TestInterpretCompileError(t *testing.T) {
	res := Interpret("1 +")
	if res.Status != StatusCompileError {
		t.Fatalf("Status = %s, want compile error", res.Status)
	}
	if !compiler.IsCompileError(res.Err) {
		t.Errorf("Err = %T, want *compiler.CompileError", res.Err)
	}
	if IsRuntimeError(res.Err) {
		t.Error("compile error reported as runtime error")
	}
}

func TestInterpretCompileErrorDoesNotRun(t *testing.T) {
	var trace bytes.Buffer
	res := New(Config{Trace: &trace}).Interpret("1 + 2; @")
	if res.Status != StatusCompileError {
		t.Fatalf("Status = %s, want compile error", res.Status)
	}
	if trace.Len() != 0 {
		t.Errorf("VM ran after a compile error:\n%s", trace.String())
	}
}

func TestInterpretRuntimeError(t *testing.T) {
	tests := []struct {
		source string
		want   error
	}{
		{"1 + 2.0", bytecode.ErrTypeMismatch},
		{"-nil", bytecode.ErrTypeMismatch},
		{`"a" + "b"`, bytecode.ErrTypeMismatch},
		{"true < false", bytecode.ErrTypeMismatch},
		{"1 / 0", bytecode.ErrDivisionByZero},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			res := Interpret(tt.source)
			if res.Status != StatusRuntimeError {
				t.Fatalf("Status = %s, want runtime error", res.Status)
			}
			if !errors.Is(res.Err, tt.want) {
				t.Errorf("Err = %v, want %v", res.Err, tt.want)
			}
			if !IsRuntimeError(res.Err) {
				t.Errorf("Err = %T, want *bytecode.RuntimeError", res.Err)
			}
		})
	}
}

func TestInterpretStackOverflow(t *testing.T) {
	res := New(Config{StackSize: 2}).Interpret("1 + (2 + 3)")
	if !errors.Is(res.Err, bytecode.ErrStackOverflow) {
		t.Errorf("Err = %v, want stack overflow", res.Err)
	}
}

func TestInterpretRuntimeErrorLine(t *testing.T) {
	res := Interpret("1 +\n2 +\ntrue")
	var re *bytecode.RuntimeError
	if !errors.As(res.Err, &re) {
		t.Fatalf("Err = %v", res.Err)
	}
	if re.Line != 2 {
		t.Errorf("Line = %d, want 2", re.Line)
	}
}

func TestInterpretIndependentRuns(t *testing.T) {
	in := New(Config{})
	a := in.Interpret(`"x"`)
	b := in.Interpret(`"y"`)
	if a.Text != "x" || b.Text != "y" {
		t.Errorf("Text = %q, %q", a.Text, b.Text)
	}
	if a.RunID == b.RunID {
		t.Error("runs should have distinct IDs")
	}
}

func TestInterpretListingAndTrace(t *testing.T) {
	var listing, trace bytes.Buffer
	in := New(Config{Listing: &listing, Trace: &trace, Fingerprint: true})

	res := in.Interpret("1 + 2")
	if res.Status != StatusOK {
		t.Fatal(res.Err)
	}
	if !strings.Contains(listing.String(), "== "+res.RunID+" ==") {
		t.Errorf("listing not labelled with run ID:\n%s", listing.String())
	}
	if !strings.Contains(trace.String(), "[ 1 ][ 2 ]") {
		t.Errorf("trace missing stack:\n%s", trace.String())
	}
}

// recordingLogger keeps every key/value log line it receives.
type recordingLogger struct {
	commonlog.MockLogger

	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) AllowLevel(level commonlog.Level) bool { return true }

func (l *recordingLogger) Log(level commonlog.Level, depth int, message string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{level.String(), " ", message}, keysAndValues...)...))
}

func (l *recordingLogger) Critical(message string, keysAndValues ...any) {
	l.Log(commonlog.Critical, 1, message, keysAndValues...)
}

func (l *recordingLogger) Error(message string, keysAndValues ...any) {
	l.Log(commonlog.Error, 1, message, keysAndValues...)
}

func (l *recordingLogger) Warning(message string, keysAndValues ...any) {
	l.Log(commonlog.Warning, 1, message, keysAndValues...)
}

func (l *recordingLogger) Notice(message string, keysAndValues ...any) {
	l.Log(commonlog.Notice, 1, message, keysAndValues...)
}

func (l *recordingLogger) Info(message string, keysAndValues ...any) {
	l.Log(commonlog.Info, 1, message, keysAndValues...)
}

func (l *recordingLogger) Debug(message string, keysAndValues ...any) {
	l.Log(commonlog.Debug, 1, message, keysAndValues...)
}

func TestInterpretLogsCarryRunID(t *testing.T) {
	tests := []struct {
		source string
		want   []string
	}{
		{"1 / 0", []string{"compile finished", "execution halted", "runtime error"}},
		{"1 +", []string{"compile error", "compile failed"}},
		{"1 + 2", []string{"compile finished", "fingerprint", "run finished"}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			log := &recordingLogger{}
			res := New(Config{Logger: log, Fingerprint: true}).Interpret(tt.source)

			all := strings.Join(log.lines, "\n")
			for _, want := range tt.want {
				if !strings.Contains(all, want) {
					t.Errorf("no %q line in:\n%s", want, all)
				}
			}
			for _, line := range log.lines {
				if !strings.Contains(line, res.RunID) {
					t.Errorf("line without run ID %s: %s", res.RunID, line)
				}
			}
		})
	}
}

func TestConfigFromManifest(t *testing.T) {
	var trace, listing bytes.Buffer

	m := manifest.Default()
	cfg := ConfigFromManifest(m, &trace, &listing)
	if cfg.StackSize != manifest.DefaultStackSize {
		t.Errorf("StackSize = %d", cfg.StackSize)
	}
	if cfg.Trace != nil || cfg.Listing != nil || cfg.Fingerprint {
		t.Error("trace, listing and fingerprint should be off by default")
	}

	m.VM.Trace = true
	m.Compiler.Disassemble = true
	m.Compiler.Fingerprint = true
	m.VM.StackSize = 3
	cfg = ConfigFromManifest(m, &trace, &listing)
	if cfg.Trace == nil || cfg.Listing == nil || !cfg.Fingerprint {
		t.Error("trace, listing and fingerprint should be on")
	}

	res := New(cfg).Interpret("1 + (2 + (3 + 4))")
	if res.Status != StatusRuntimeError || !errors.Is(res.Err, bytecode.ErrStackOverflow) {
		t.Errorf("Status = %s, Err = %v", res.Status, res.Err)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusOK, "ok"},
		{StatusCompileError, "compile error"},
		{StatusRuntimeError, "runtime error"},
		{Status(9), "Status(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
