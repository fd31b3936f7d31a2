// Package manifest handles qpe.toml project configuration.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/qpe/rir"
	"github.com/cockroachdb/errors"
)

// FileName is the name of the project configuration file.
const FileName = "qpe.toml"

// Manifest represents a qpe.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Target  Target  `toml:"target"`
	Entry   Entry   `toml:"entry"`
	Output  Output  `toml:"output"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the qpe.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Target describes the machine programs are lowered for.
type Target struct {
	Capabilities string `toml:"capabilities"`
}

// Entry selects the callable lowered as the program entry.
type Entry struct {
	Callable string `toml:"callable"`
}

// Output configures where and how lowered programs are written.
type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// Log configures log verbosity.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Output formats.
const (
	FormatText = "text"
	FormatCBOR = "cbor"
)

// Default returns the configuration used when no qpe.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Target.Capabilities == "" {
		m.Target.Capabilities = "adaptive"
	}
	if m.Entry.Callable == "" {
		m.Entry.Callable = "Main"
	}
	if m.Output.Format == "" {
		m.Output.Format = FormatText
	}
}

// Load parses a qpe.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", dir)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a qpe.toml file,
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

func (m *Manifest) validate() error {
	if _, err := ParseCapabilities(m.Target.Capabilities); err != nil {
		return err
	}
	switch m.Output.Format {
	case FormatText, FormatCBOR:
	default:
		return errors.Newf("unknown output format %q", m.Output.Format)
	}
	return ValidateEntryName(m.Entry.Callable)
}

// ParseCapabilities parses a capability level name.
func ParseCapabilities(s string) (rir.Capabilities, error) {
	switch strings.ToLower(s) {
	case "base":
		return rir.Base, nil
	case "adaptive":
		return rir.Adaptive, nil
	}
	return 0, errors.Newf("unknown target capabilities %q", s)
}

// Config returns the lowering configuration for the target.
func (m *Manifest) Config() rir.Config {
	caps, err := ParseCapabilities(m.Target.Capabilities)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "manifest was not validated"))
	}
	return rir.Config{Capabilities: caps}
}

// OutputPath returns the configured output path, resolved against the
// manifest directory. It is empty when output goes to stdout.
func (m *Manifest) OutputPath() string {
	if m.Output.Path == "" || filepath.IsAbs(m.Output.Path) {
		return m.Output.Path
	}
	return filepath.Join(m.Dir, m.Output.Path)
}
