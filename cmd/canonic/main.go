package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/canonic/internal/config"
	"github.com/kailas-cloud/canonic/internal/domain"
	logpkg "github.com/kailas-cloud/canonic/internal/logger"
	"github.com/kailas-cloud/canonic/internal/repository/dataset"
	indexrepo "github.com/kailas-cloud/canonic/internal/repository/index"
	cleaningu "github.com/kailas-cloud/canonic/internal/usecase/cleaning"
	reportuc "github.com/kailas-cloud/canonic/internal/usecase/report"
	"github.com/kailas-cloud/canonic/internal/version"
)

var (
	envName  string
	cfgFile  string
	logLevel string

	catalogPath string
	indexOut    string

	inputPath   string
	columnName  string
	threshold   float64
	indexPath   string
	outDir      string
	changesPath string
	jsonOutput  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "canonic",
	Short: "Standardise entity names against a reference catalog",
	Long: `canonic maps free-text entity names (banks, companies, products) to their
canonical spelling by embedding them and picking the most similar catalog
variant above a confidence threshold.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the catalog index",
	Long: `Build the catalog index from a file whose first column holds variants and
second column holds canonical names. A single-column file maps every variant
to itself. The previous index is replaced entirely.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBuild(cmd.Context())
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Standardise one column of a dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClean(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "canonic %s\n", version.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Git commit: %s\n", version.Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "Build date: %s\n", version.Date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "environment name (local, dev, prod)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "explicit config file (overrides --env lookup)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	buildCmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog file (csv, tsv, xlsx, xls, txt)")
	buildCmd.Flags().StringVar(&indexOut, "out", "", "index artifact path (default from config)")
	_ = buildCmd.MarkFlagRequired("catalog")

	cleanCmd.Flags().StringVar(&inputPath, "input", "", "dataset to clean (csv, tsv, xlsx, xls)")
	cleanCmd.Flags().StringVar(&columnName, "column", "", "column to standardise")
	cleanCmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (default from config)")
	cleanCmd.Flags().StringVar(&indexPath, "index", "", "explicit index artifact (default from config)")
	cleanCmd.Flags().StringVar(&outDir, "out-dir", "", "output directory (default from config)")
	cleanCmd.Flags().StringVar(&changesPath, "changes", "", "also write the change log to this CSV file")
	cleanCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	_ = cleanCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates user-correctable failures from system ones.
func exitCode(err error) int {
	switch {
	case domain.IsInputError(err), domain.IsIndexError(err):
		return 2
	default:
		return 1
	}
}

func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(envName)
}

// setup loads config and the logger, letting mutate adjust config from flags.
func setup(ctx context.Context, mutate func(*config.Config)) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if mutate != nil {
		mutate(&cfg)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logpkg.NewLogger(envName, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func runBuild(ctx context.Context) error {
	a, err := setup(ctx, func(cfg *config.Config) {
		if indexOut != "" {
			cfg.Index.Path = indexOut
			cfg.Index.Storage = indexrepo.StorageFor(indexOut)
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()
	defer func() { _ = a.logger.Sync() }()

	res, err := a.catalog.BuildFromFile(ctx, catalogPath)
	if err != nil {
		return &statusError{status: cleaningu.StatusFor(err), err: err}
	}

	fmt.Println(res.Status)
	fmt.Printf("Index: %s (model %s)\n", res.Path, res.Model)
	return nil
}

func runClean(ctx context.Context) error {
	a, err := setup(ctx, func(cfg *config.Config) {
		if outDir != "" {
			cfg.Output.Dir = outDir
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()
	defer func() { _ = a.logger.Sync() }()

	res, err := a.cleaning.Clean(ctx, cleaningu.Request{
		DataPath:  inputPath,
		Column:    columnName,
		Threshold: threshold,
		IndexPath: indexPath,
	})
	if err != nil {
		return &statusError{status: cleaningu.StatusFor(err), err: err}
	}

	if changesPath != "" {
		if err := writeChanges(changesPath, res); err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toCleanOutput(res))
	}

	fmt.Println(res.Status)
	fmt.Printf("Output: %s\n", res.OutputPath)
	if len(res.Changes) == 0 {
		fmt.Println("No changes.")
		return nil
	}
	return printChanges(res)
}

// statusError carries the user-facing status line while keeping the cause matchable.
type statusError struct {
	status string
	err    error
}

func (e *statusError) Error() string { return e.status + " (" + e.err.Error() + ")" }

func (e *statusError) Unwrap() error { return e.err }

type cleanOutput struct {
	RunID    string         `json:"run_id"`
	Status   string         `json:"status"`
	Column   string         `json:"column"`
	Output   string         `json:"output"`
	Distinct int            `json:"distinct"`
	Changes  []changeOutput `json:"changes"`
}

type changeOutput struct {
	Original       string  `json:"original"`
	MatchedVariant string  `json:"matched_variant"`
	Resolved       string  `json:"resolved"`
	Confidence     float64 `json:"confidence"`
}

func toCleanOutput(res cleaningu.Result) cleanOutput {
	out := cleanOutput{
		RunID:    res.RunID,
		Status:   res.Status,
		Column:   res.Column,
		Output:   res.OutputPath,
		Distinct: res.Distinct,
		Changes:  make([]changeOutput, len(res.Changes)),
	}
	for i, c := range res.Changes {
		out.Changes[i] = changeOutput{
			Original:       c.Original,
			MatchedVariant: c.MatchedVariant,
			Resolved:       c.Resolved,
			Confidence:     c.Confidence,
		}
	}
	return out
}

func printChanges(res cleaningu.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		reportuc.ColOriginal, reportuc.ColMatchedVariant, reportuc.ColResolved, reportuc.ColConfidence)
	for _, c := range res.Changes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Original, c.MatchedVariant, c.Resolved, c.ConfidenceText())
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("print changes: %w", err)
	}
	return nil
}

func writeChanges(path string, res cleaningu.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create changes dir: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create changes file: %w", err)
	}
	if err := dataset.WriteCSV(f, reportuc.ChangeLog(res.Changes)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write changes: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close changes file: %w", err)
	}
	return nil
}
