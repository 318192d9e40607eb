// Quill CLI - compiles and runs Quill programs
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/quill"
	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/pkg/bytecode"
)

// Exit codes follow sysexits.h.
const (
	exitUsage        = 64
	exitCompileError = 65
	exitNoInput      = 66
	exitRuntimeError = 70
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	resultColor = color.New(color.FgGreen)
	noteColor   = color.New(color.FgCyan)
)

func main() {
	verbose := flag.Int("v", 0, "Log verbosity (higher is more verbose)")
	expr := flag.String("e", "", "Evaluate the given source and print the result")
	disasm := flag.Bool("d", false, "Print the disassembly of each compiled chunk")
	trace := flag.Bool("trace", false, "Trace VM execution to stderr")
	fingerprint := flag.Bool("fingerprint", false, "Log the content hash of each compiled chunk")
	interactive := flag.Bool("i", false, "Start interactive REPL")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quill [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a Quill program. With no file and no -e, starts the REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quill -e '1 + 2 * 3'     # Evaluate an expression\n")
		fmt.Fprintf(os.Stderr, "  quill -d prog.ql         # Run a file, printing its bytecode\n")
		fmt.Fprintf(os.Stderr, "  quill                    # Run [source] entry from quill.toml, or the REPL\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}
	if m == nil {
		m = manifest.Default()
	}

	verbosity := m.Log.Verbosity
	if *verbose > verbosity {
		verbosity = *verbose
	}
	commonlog.Configure(verbosity, m.LogPath())

	cfg := quill.ConfigFromManifest(m, os.Stderr, os.Stdout)
	if *disasm {
		cfg.Listing = os.Stdout
	}
	if *trace {
		cfg.Trace = os.Stderr
	}
	if *fingerprint {
		cfg.Fingerprint = true
	}
	interp := quill.New(cfg)

	if *expr != "" {
		os.Exit(runSource(interp, *expr))
	}

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else if !*interactive {
		path = m.EntryPath()
	}

	if path != "" {
		os.Exit(runFile(interp, path))
	}

	runREPL(interp, os.Stdin, os.Stdout)
}

func runFile(interp *quill.Interpreter, path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitNoInput
	}
	return runSource(interp, string(source))
}

// runSource interprets source, prints the result or diagnostics, and
// returns the process exit code.
func runSource(interp *quill.Interpreter, source string) int {
	res := interp.Interpret(source)
	report(res, os.Stdout, os.Stderr)
	switch res.Status {
	case quill.StatusCompileError:
		return exitCompileError
	case quill.StatusRuntimeError:
		return exitRuntimeError
	}
	return 0
}

// report prints a result the way both the REPL and batch runs show it.
func report(res quill.Result, out, errOut io.Writer) {
	switch res.Status {
	case quill.StatusOK:
		resultColor.Fprintln(out, res.Text)
	case quill.StatusCompileError:
		var ce *compiler.CompileError
		if errors.As(res.Err, &ce) {
			for _, d := range ce.Diagnostics {
				errorColor.Fprintln(errOut, d.String())
			}
			return
		}
		errorColor.Fprintln(errOut, res.Err)
	case quill.StatusRuntimeError:
		var re *bytecode.RuntimeError
		if errors.As(res.Err, &re) {
			errorColor.Fprintf(errOut, "%v\n[line %d] in script\n", re.Err, re.Line)
			return
		}
		errorColor.Fprintln(errOut, res.Err)
	}
}

func runREPL(interp *quill.Interpreter, in io.Reader, out io.Writer) {
	noteColor.Fprintln(out, "Quill REPL (type 'exit' to quit, ':help' for commands)")

	scanner := bufio.NewScanner(in)
	var lineBuffer strings.Builder

	for {
		if lineBuffer.Len() == 0 {
			fmt.Fprint(out, ">> ")
		} else {
			fmt.Fprint(out, ".. ")
		}

		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := scanner.Text()

		if lineBuffer.Len() == 0 && (line == "exit" || line == "quit") {
			break
		}

		if lineBuffer.Len() == 0 && strings.HasPrefix(line, ":") {
			handleREPLCommand(line, out)
			continue
		}

		// Empty line executes accumulated input
		if line == "" {
			if input := strings.TrimSpace(lineBuffer.String()); input != "" {
				report(interp.Interpret(input), out, out)
			}
			lineBuffer.Reset()
			continue
		}

		if lineBuffer.Len() > 0 {
			lineBuffer.WriteString("\n")
		}
		lineBuffer.WriteString(line)

		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			report(interp.Interpret(lineBuffer.String()), out, out)
			lineBuffer.Reset()
		}
	}
}

func handleREPLCommand(line string, out io.Writer) {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	switch cmd {
	case "help", "h":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  :dis <source>  Show the bytecode for source without running it")
		fmt.Fprintln(out, "  :help          Show this help")
		fmt.Fprintln(out, "Input runs when a line ends with ';' or on an empty line.")
	case "dis", "d":
		chunk, err := quill.Compile(arg)
		if err != nil {
			errorColor.Fprintln(out, err)
			return
		}
		fmt.Fprint(out, chunk.Disassemble())
	default:
		errorColor.Fprintf(out, "Unknown command: %s\n", cmd)
	}
}
