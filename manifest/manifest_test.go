package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/qpe/rir"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "teleport"
version = "0.1.0"

[target]
capabilities = "base"

[entry]
callable = "Teleport"

[output]
format = "cbor"
path = "out/teleport.rir"

[log]
verbosity = 2
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "teleport" {
		t.Errorf("project name = %q, want teleport", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if got := m.Config(); got.Capabilities != rir.Base {
		t.Errorf("Config().Capabilities = %s, want Base", got.Capabilities)
	}
	if m.Entry.Callable != "Teleport" {
		t.Errorf("entry callable = %q, want Teleport", m.Entry.Callable)
	}
	if m.Output.Format != FormatCBOR {
		t.Errorf("output format = %q, want cbor", m.Output.Format)
	}
	if want := filepath.Join(m.Dir, "out", "teleport.rir"); m.OutputPath() != want {
		t.Errorf("OutputPath() = %q, want %q", m.OutputPath(), want)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := m.Config(); got.Capabilities != rir.Adaptive {
		t.Errorf("default capabilities = %s, want Adaptive", got.Capabilities)
	}
	if m.Entry.Callable != "Main" {
		t.Errorf("default entry = %q, want Main", m.Entry.Callable)
	}
	if m.Output.Format != FormatText {
		t.Errorf("default format = %q, want text", m.Output.Format)
	}
	if m.OutputPath() != "" {
		t.Errorf("default OutputPath() = %q, want stdout", m.OutputPath())
	}

	d := Default()
	if d.Config() != m.Config() || d.Entry != m.Entry || d.Output != m.Output {
		t.Errorf("Default() = %+v, differs from an empty manifest", d)
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"capabilities", "[target]\ncapabilities = \"quantum\"\n"},
		{"format", "[output]\nformat = \"json\"\n"},
		{"entry", "[entry]\ncallable = \"__quantum__qis__h__body\"\n"},
		{"syntax", "[project\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			if m, err := Load(dir); err == nil {
				t.Errorf("Load succeeded with %+v, want an error", m)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no qpe.toml exists")
	}
}

func TestValidateEntryName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"Main", true},
		{"run_all2", true},
		{"", false},
		{"2fast", false},
		{"Main.start", false},
		{"__quantum__rt__qubit_allocate", false},
	}
	for _, tt := range tests {
		if err := ValidateEntryName(tt.name); (err == nil) != tt.ok {
			t.Errorf("ValidateEntryName(%q) = %v, want ok %v", tt.name, err, tt.ok)
		}
	}
}
