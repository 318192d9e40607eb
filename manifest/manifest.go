// Package manifest handles quill.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "quill.toml"

// MaxStackSize bounds [vm] stack-size.
const MaxStackSize = 1 << 24

// Manifest represents a quill.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Source   Source         `toml:"source"`
	VM       VMConfig       `toml:"vm"`
	Compiler CompilerConfig `toml:"compiler"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the quill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures the program to run when no file is given.
type Source struct {
	Entry string `toml:"entry"`
}

// VMConfig configures the virtual machine.
type VMConfig struct {
	StackSize int  `toml:"stack-size"`
	Trace     bool `toml:"trace"`
}

// CompilerConfig configures the compiler.
type CompilerConfig struct {
	Disassemble bool `toml:"disassemble"`
	Fingerprint bool `toml:"fingerprint"` // Log each chunk's content hash
}

// LogConfig configures commonlog output.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// DefaultStackSize matches the VM's default operand stack.
const DefaultStackSize = 64000

// Default returns the configuration used when no quill.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.VM.StackSize == 0 {
		m.VM.StackSize = DefaultStackSize
	}
}

// Load parses a quill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return m, nil
}

// Parse decodes quill.toml content, applies defaults and validates it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a quill.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (m *Manifest) Validate() error {
	if m.VM.StackSize <= 0 {
		return errors.New("vm.stack-size must be positive")
	}
	if m.VM.StackSize > MaxStackSize {
		return fmt.Errorf("vm.stack-size %d exceeds maximum %d", m.VM.StackSize, MaxStackSize)
	}
	return nil
}

// EntryPath returns the absolute path of the entry source file, or "" if
// none is configured.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Source.Entry) || m.Dir == "" {
		return m.Source.Entry
	}
	return filepath.Join(m.Dir, m.Source.Entry)
}

// LogPath returns the log file path, or nil for stderr. The result feeds
// commonlog.Configure.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
