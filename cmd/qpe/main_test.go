package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rir"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"qpe"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// writeSampleFile writes a sample store into dir and returns its path.
func writeSampleFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".fir")
	if _, stderr, code := runCLI(t, "sample", "--out", path, name); code != 0 {
		t.Fatalf("sample %s exited %d: %s", name, code, stderr)
	}
	return path
}

func TestSamplesCommand(t *testing.T) {
	out, _, code := runCLI(t, "samples")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, name := range []string{"bell", "dynamic-branch", "nested-tuples", "repeat"} {
		if !strings.Contains(out, name) {
			t.Errorf("samples output missing %s:\n%s", name, out)
		}
	}
}

func TestSampleWritesDecodableStore(t *testing.T) {
	path := writeSampleFile(t, t.TempDir(), "bell")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	store, err := fir.UnmarshalStore(data)
	if err != nil {
		t.Fatalf("UnmarshalStore: %v", err)
	}
	if got := store.GetCallable(store.Entry).Name; got != "Main" {
		t.Errorf("entry = %s, want Main", got)
	}
}

func TestLowerText(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "bell")

	out, stderr, code := runCLI(t, "lower", "--manifest", dir, path)
	if code != 0 {
		t.Fatalf("lower exited %d: %s", code, stderr)
	}
	for _, want := range []string{fir.HName, fir.CXName, "capabilities: Adaptive", "num_qubits: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLowerUsesManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "repeat")
	toml := "[target]\ncapabilities = \"base\"\n\n[output]\nformat = \"cbor\"\npath = \"repeat.rir\"\n"
	if err := os.WriteFile(filepath.Join(dir, "qpe.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	if _, stderr, code := runCLI(t, "lower", "--manifest", dir, path); code != 0 {
		t.Fatalf("lower exited %d: %s", code, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "repeat.rir"))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := rir.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if prog.Config.Capabilities != rir.Base {
		t.Errorf("capabilities = %s, want Base", prog.Config.Capabilities)
	}
}

func TestLowerReportsUnsupportedBranch(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "dynamic-branch")

	_, stderr, code := runCLI(t, "lower", "--manifest", dir, "--capabilities", "base", path)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unsupported") {
		t.Errorf("stderr = %q, want an Unsupported error", stderr)
	}
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "dynamic-branch")

	out, stderr, code := runCLI(t, "analyze", "--manifest", dir, path)
	if code != 0 {
		t.Fatalf("analyze exited %d: %s", code, stderr)
	}
	if !strings.HasPrefix(out, "Main: Quantum") {
		t.Errorf("output = %q, want the quantum kind of Main", out)
	}
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"unknown sample", []string{"sample", "teleport"}},
		{"missing file", []string{"lower", "--manifest", dir, filepath.Join(dir, "absent.fir")}},
		{"no arguments", []string{"lower", "--manifest", dir}},
		{"bad capabilities", []string{"lower", "--manifest", dir, "--capabilities", "quantum", "x.fir"}},
		{"unknown entry", []string{"analyze", "--manifest", writeEntryManifest(t, "Teleport"), writeSampleFile(t, dir, "bell")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, stderr, code := runCLI(t, tt.args...); code != 1 || stderr == "" {
				t.Errorf("exit code = %d, stderr = %q, want a reported error", code, stderr)
			}
		})
	}
}

func writeEntryManifest(t *testing.T, entry string) string {
	t.Helper()
	dir := t.TempDir()
	content := "[entry]\ncallable = \"" + entry + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, "qpe.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}
