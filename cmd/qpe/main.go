// qpe lowers FIR programs to RIR through partial evaluation.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/manifest"
	"github.com/chazu/qpe/partialeval"
	"github.com/chazu/qpe/rca"
	"github.com/chazu/qpe/rir"
	"github.com/chazu/qpe/samples"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v2"
)

var (
	verboseFlag = &cli.IntFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log verbosity, 0 (quiet) to 4 (debug)",
	}
	manifestFlag = &cli.StringFlag{
		Name:  "manifest",
		Usage: "Directory to search upwards for qpe.toml",
		Value: ".",
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: text or cbor (overrides qpe.toml)",
	}
	outFlag = &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Output file (default stdout)",
	}
	capabilitiesFlag = &cli.StringFlag{
		Name:  "capabilities",
		Usage: "Target capabilities: base or adaptive (overrides qpe.toml)",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "qpe",
		Usage: "partially evaluate quantum programs into RIR",
		Flags: []cli.Flag{verboseFlag},
		Before: func(ctx *cli.Context) error {
			commonlog.Configure(ctx.Int(verboseFlag.Name), nil)
			return nil
		},
		Commands: []*cli.Command{
			lowerCommand,
			analyzeCommand,
			sampleCommand,
			samplesCommand,
		},
	}
}

var lowerCommand = &cli.Command{
	Name:      "lower",
	Usage:     "Lower a FIR store to an RIR program",
	ArgsUsage: "FILE",
	Flags:     []cli.Flag{manifestFlag, formatFlag, outFlag, capabilitiesFlag},
	Description: `
Reads a CBOR-encoded FIR package store, partially evaluates its entry
callable and writes the resulting program. Settings come from the nearest
qpe.toml above --manifest; flags override them.`,
	Action: lower,
}

var analyzeCommand = &cli.Command{
	Name:      "analyze",
	Usage:     "Print the runtime capability analysis of the entry callable",
	ArgsUsage: "FILE",
	Flags:     []cli.Flag{manifestFlag},
	Action:    analyze,
}

var sampleCommand = &cli.Command{
	Name:      "sample",
	Usage:     "Write a sample program as a CBOR-encoded FIR store",
	ArgsUsage: "NAME",
	Flags:     []cli.Flag{outFlag},
	Action:    writeSample,
}

var samplesCommand = &cli.Command{
	Name:  "samples",
	Usage: "List the sample programs",
	Action: func(ctx *cli.Context) error {
		for _, name := range samples.Names() {
			s, _ := samples.Get(name)
			fmt.Fprintf(ctx.App.Writer, "%-16s %s\n", name, s.Description)
		}
		return nil
	},
}

// loadManifest finds the nearest qpe.toml, falling back to the defaults.
func loadManifest(ctx *cli.Context) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(ctx.String(manifestFlag.Name))
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	if v := m.Log.Verbosity; v > ctx.Int(verboseFlag.Name) {
		commonlog.Configure(v, nil)
	}
	return m, nil
}

func readStore(ctx *cli.Context) (*fir.PackageStore, error) {
	if ctx.NArg() != 1 {
		return nil, errors.Newf("%s expects exactly one FILE argument", ctx.Command.Name)
	}
	path := ctx.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	store, err := fir.UnmarshalStore(data)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", path)
	}
	return store, nil
}

// entryRef resolves the configured entry callable in the store's entry
// package. The store's own entry is used when the default name is absent.
func entryRef(store *fir.PackageStore, m *manifest.Manifest) (fir.ItemRef, error) {
	pkg, ok := store.Packages[store.Entry.Package]
	if !ok {
		return fir.ItemRef{}, errors.Newf("entry package %d is not in the store", store.Entry.Package)
	}
	if id, ok := pkg.FindCallable(m.Entry.Callable); ok {
		return fir.ItemRef{Package: store.Entry.Package, Item: id}, nil
	}
	if m.Entry.Callable == manifest.Default().Entry.Callable {
		return store.Entry, nil
	}
	return fir.ItemRef{}, errors.Newf("entry callable %q not found", m.Entry.Callable)
}

func lower(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	if f := ctx.String(formatFlag.Name); f != "" {
		m.Output.Format = f
	}
	if c := ctx.String(capabilitiesFlag.Name); c != "" {
		if _, err := manifest.ParseCapabilities(c); err != nil {
			return err
		}
		m.Target.Capabilities = c
	}

	store, err := readStore(ctx)
	if err != nil {
		return err
	}
	entry, err := entryRef(store, m)
	if err != nil {
		return err
	}

	prog, err := partialeval.PartiallyEvaluate(store, entry, m.Config())
	if err != nil {
		return err
	}

	var data []byte
	switch m.Output.Format {
	case manifest.FormatText:
		data = []byte(prog.String())
	case manifest.FormatCBOR:
		if data, err = rir.Marshal(prog); err != nil {
			return err
		}
	default:
		return errors.Newf("unknown output format %q", m.Output.Format)
	}

	out := m.OutputPath()
	if o := ctx.String(outFlag.Name); o != "" {
		out = o
	}
	return writeOutput(ctx.App.Writer, out, data)
}

func analyze(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	store, err := readStore(ctx)
	if err != nil {
		return err
	}
	entry, err := entryRef(store, m)
	if err != nil {
		return err
	}
	props := rca.NewAnalyzer(store).AnalyzeCallable(entry, nil)
	fmt.Fprintf(ctx.App.Writer, "%s: %s\n", store.GetCallable(entry).Name, props.Output)
	return nil
}

func writeSample(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("sample expects exactly one NAME argument")
	}
	name := ctx.Args().First()
	s, ok := samples.Get(name)
	if !ok {
		return errors.Newf("unknown sample %q (see 'qpe samples')", name)
	}
	data, err := fir.MarshalStore(s.Build())
	if err != nil {
		return err
	}
	return writeOutput(ctx.App.Writer, ctx.String(outFlag.Name), data)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "cannot write %s", path)
	}
	return nil
}

// run executes the CLI and returns the process exit code. Assertion
// failures from the compiler are reported as internal errors.
func run(args []string, stdout, stderr io.Writer) (code int) {
	red := color.New(color.FgRed)
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok || !errors.IsAssertionFailure(err) {
				panic(r)
			}
			red.Fprintf(stderr, "internal compiler error: %v\n", err)
			code = 2
		}
	}()

	app := newApp()
	app.Writer = stdout
	app.ErrWriter = stderr
	if err := app.Run(args); err != nil {
		red.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
