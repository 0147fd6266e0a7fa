// Command rainflow counts the rainflow cycles of a load history stored
// in an xlsx workbook, a CSV file or a Google Sheets spreadsheet and
// prints the cycle table. Given a directory it analyses every workbook
// and CSV file inside and prints one summary row per file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/djangbahevans/RainflowCycleCounting/internal/chart"
	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	"github.com/djangbahevans/RainflowCycleCounting/internal/exporter"
	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
	"github.com/djangbahevans/RainflowCycleCounting/internal/loader"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts"
)

var errUsage = errors.New("usage: rainflow [flags] <file.xlsx|file.csv|dir> | rainflow -spreadsheet <id> [flags]")

type options struct {
	configFile  string
	logLevel    string
	sheet       string
	column      int
	skipRows    int
	binWidth    float64
	outDir      string
	writeCSV    bool
	writeHTML   bool
	maxPaths    int
	spreadsheet string
	quiet       bool
	version     bool
	input       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "rainflow:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("rainflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configFile, "config", "", "YAML config file (defaults to config.yaml in the working directory)")
	fs.StringVar(&o.logLevel, "log-level", "", "override the configured log level")
	fs.StringVar(&o.sheet, "sheet", "", "worksheet to read (defaults to the first sheet)")
	fs.IntVar(&o.column, "column", 0, "1-based column to read, 0 reads every column")
	fs.IntVar(&o.skipRows, "skip-rows", 0, "leading header cells to skip in each column")
	fs.Float64Var(&o.binWidth, "bin-width", 0, "histogram bin width (defaults to the configured width)")
	fs.StringVar(&o.outDir, "out", "", "directory for exported reports (defaults to the configured reports dir)")
	fs.BoolVar(&o.writeCSV, "csv", false, "export the cycle table, spectrum and histogram as CSV")
	fs.BoolVar(&o.writeHTML, "html", false, "export an HTML chart page")
	fs.IntVar(&o.maxPaths, "max-paths", chart.MaxLoopSeries, "rain paths drawn on the chart")
	fs.StringVar(&o.spreadsheet, "spreadsheet", "", "read a Google Sheets spreadsheet with this id instead of a file")
	fs.BoolVar(&o.quiet, "quiet", false, "skip the cycle table, print the summary only")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return o, nil
	}
	switch {
	case o.spreadsheet != "" && fs.NArg() == 0:
		o.input = o.spreadsheet
	case o.spreadsheet == "" && fs.NArg() == 1:
		o.input = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errUsage
	}
	return o, nil
}

func loadConfig(o *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.outDir != "" {
		cfg.Paths.ReportsDir = o.outDir
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	paths := config.ResolvePaths(cfg.Paths, cwd)
	paths.LogPathResolution(logger)

	start := time.Now()
	svc := services.NewAnalysisService(cfg.Analysis, logger)
	if o.spreadsheet == "" && isDir(o.input) {
		err = runBatch(ctx, svc, o, paths, logger, stdout)
	} else {
		err = runSingle(ctx, svc, cfg.Sheets, o, paths, logger, stdout)
	}
	if err != nil {
		return err
	}

	logger.DebugContext(ctx, "cli run finished",
		slog.String("input", o.input),
		slog.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(stdout, "Took %s\n", time.Since(start).Round(time.Microsecond))
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func runSingle(ctx context.Context, svc *services.AnalysisService, sheetsCfg config.SheetsConfig, o *options, paths *config.Paths, logger *slog.Logger, stdout io.Writer) error {
	a, err := analyze(ctx, svc, sheetsCfg, o)
	if err != nil {
		return err
	}

	if !o.quiet {
		printCycles(stdout, a)
		printSpectrum(stdout, a)
	}
	printSummary(stdout, a)
	return export(o, paths, logger, o.input, a, stdout)
}

// runBatch analyses every workbook and CSV file in the o.input directory.
// The first failure stops the batch.
func runBatch(ctx context.Context, svc *services.AnalysisService, o *options, paths *config.Paths, logger *slog.Logger, stdout io.Writer) error {
	inputs, err := loader.Discover(o.input)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no workbook or csv files in %s", o.input)
	}

	results := make([]*services.Analysis, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range inputs {
		g.Go(func() error {
			a, err := svc.AnalyzeFile(gctx, path, fileOptions(o), o.binWidth)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printBatch(stdout, results)
	for _, a := range results {
		if err := export(o, paths, logger, a.Name, a, stdout); err != nil {
			return err
		}
	}
	return nil
}

func export(o *options, paths *config.Paths, logger *slog.Logger, input string, a *services.Analysis, stdout io.Writer) error {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if o.writeCSV {
		if err := exportCSV(exporter.NewCSVWriter(paths, logger), base, a, stdout); err != nil {
			return err
		}
	}
	if o.writeHTML {
		if err := exportChart(paths, base, a, o.maxPaths, stdout); err != nil {
			return err
		}
	}
	return nil
}

func fileOptions(o *options) loader.Options {
	return loader.Options{
		Sheet:    o.sheet,
		Column:   o.column,
		SkipRows: o.skipRows,
	}
}

func analyze(ctx context.Context, svc *services.AnalysisService, sheetsCfg config.SheetsConfig, o *options) (*services.Analysis, error) {
	opts := fileOptions(o)
	if o.spreadsheet == "" {
		return svc.AnalyzeFile(ctx, o.input, opts, o.binWidth)
	}

	src, err := loader.NewSheetsLoader(ctx, sheetsOptions(sheetsCfg)...)
	if err != nil {
		return nil, err
	}
	return svc.AnalyzeSpreadsheet(ctx, src, o.spreadsheet, opts, o.binWidth)
}

func sheetsOptions(cfg config.SheetsConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	return opts
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func printCycles(w io.Writer, a *services.Analysis) {
	t := newTable(w, "Rainflow cycles: "+a.Name)
	t.AppendHeader(table.Row{"From", "To", "Range", "Cycles", "Kind", "Index", "Closed"})

	var total float64
	for _, row := range report.Table(a.Result) {
		t.AppendRow(table.Row{row.From, row.To, row.Range, row.Cycles, row.Kind.String(), row.Index, row.Closed})
		total += row.Cycles
	}
	t.AppendFooter(table.Row{"", "", "Total", total})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

func printSpectrum(w io.Writer, a *services.Analysis) {
	t := newTable(w, "Range spectrum")
	t.AppendHeader(table.Row{"Range", "Half cycles", "Cycles"})
	for _, b := range report.Spectrum(a.Result) {
		t.AppendRow(table.Row{b.Low, b.HalfCycles, b.Cycles()})
	}
	t.Render()

	if len(a.Bins) == 0 {
		return
	}
	h := newTable(w, "Range histogram")
	h.AppendHeader(table.Row{"Bin", "Half cycles", "Cycles"})
	for _, b := range a.Bins {
		h.AppendRow(table.Row{chart.BinLabel(b), b.HalfCycles, b.Cycles()})
	}
	h.Render()
}

func printBatch(w io.Writer, results []*services.Analysis) {
	t := newTable(w, "Batch summary")
	t.AppendHeader(table.Row{"File", "Samples", "Half cycles", "Full cycles", "Max range", "Digest"})

	var samples, halfCycles int
	for _, a := range results {
		s := report.Summarize(a.Result)
		t.AppendRow(table.Row{filepath.Base(a.Name), s.Samples, s.HalfCycles, s.FullCycles, s.MaxRange, a.Digest[:12]})
		samples += s.Samples
		halfCycles += s.HalfCycles
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(results)), samples, halfCycles})
	t.Render()
}

func printSummary(w io.Writer, a *services.Analysis) {
	s := report.Summarize(a.Result)
	t := newTable(w, "Summary")
	t.AppendRows([]table.Row{
		{"Samples", s.Samples},
		{"Extrema", s.Extrema},
		{"Peaks", s.Peaks},
		{"Valleys", s.Valleys},
		{"Half cycles", s.HalfCycles},
		{"Closed", s.Closed},
		{"Open", s.Open},
		{"Full cycles", s.FullCycles},
		{"Max range", s.MaxRange},
		{"Digest", a.Digest},
	})
	t.Render()
}

func exportCSV(w *exporter.CSVWriter, base string, a *services.Analysis, stdout io.Writer) error {
	written := make([]string, 0, 3)

	path, err := w.WriteCycles(base+"_cycles.csv", report.Table(a.Result))
	if err != nil {
		return fmt.Errorf("failed to export cycles: %w", err)
	}
	written = append(written, path)

	if path, err = w.WriteSpectrum(base+"_spectrum.csv", report.Spectrum(a.Result)); err != nil {
		return fmt.Errorf("failed to export spectrum: %w", err)
	}
	written = append(written, path)

	if len(a.Bins) > 0 {
		if path, err = w.WriteSpectrum(base+"_histogram.csv", a.Bins); err != nil {
			return fmt.Errorf("failed to export histogram: %w", err)
		}
		written = append(written, path)
	}

	for _, p := range written {
		fmt.Fprintln(stdout, "Wrote", p)
	}
	return nil
}

func exportChart(paths *config.Paths, base string, a *services.Analysis, maxPaths int, stdout io.Writer) error {
	path := paths.GetReportPath(base + "_chart.html")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := chart.Render(file, a.Result, a.Bins, chart.Options{Title: a.Name, MaxPaths: maxPaths}); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close chart file: %w", err)
	}

	fmt.Fprintln(stdout, "Wrote", path)
	return nil
}
