package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codellm-devkit/swiftdiagram-go/internal/analyzer"
	"github.com/codellm-devkit/swiftdiagram-go/internal/output"
	"github.com/codellm-devkit/swiftdiagram-go/internal/server"
	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

const version = "1.0.0"

type config struct {
	input            string
	outputPath       string
	recursive        bool
	maxDepth         int
	excludeDirs      []string
	kindFilter       []string
	list             bool
	respectGitignore bool
	serve            bool
	port             int
	noTimestamp      bool
	verbose          bool
	quiet            bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:     "swiftdiagram-go",
		Short:   "Static analyzer that maps the type relationships of a Swift codebase",
		Version: version,
		Long: `swiftdiagram-go scans a directory of Swift sources, merges extensions
into their base types and emits a JSON relationship graph (inheritance,
conformance, composition, dependency) suitable for diagram tooling.
With --serve it also hosts an interactive browser viewer of the graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyConfigFile(cmd, &cfg)

			if err := validateConfig(&cfg); err != nil {
				logError("configuration error: %v", err)
				os.Exit(2)
			}
			return run(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.input, "input", "i", ".", "Path to the root of the Swift project to analyze")
	f.StringVarP(&cfg.outputPath, "output", "o", "", "Output file or directory (omit for stdout)")
	f.BoolVarP(&cfg.recursive, "recursive", "r", true, "Descend into subdirectories")
	f.IntVar(&cfg.maxDepth, "max-depth", -1, "Maximum directory depth from the root (negative = unlimited)")
	f.StringSliceVar(&cfg.excludeDirs, "exclude-dirs", nil, "Directory basenames to exclude (e.g. Pods,Carthage)")
	f.StringSliceVar(&cfg.kindFilter, "kind-filter", nil, "Restrict the listing to these kinds: class|struct|protocol|enum|actor|extension-only")
	f.BoolVar(&cfg.list, "list", false, "Print a flat listing of discovered types instead of the JSON graph")
	f.BoolVar(&cfg.respectGitignore, "respect-gitignore", false, "Additionally skip paths matched by the root .gitignore")
	f.BoolVar(&cfg.serve, "serve", false, "Host the browser viewer instead of writing output")
	f.IntVar(&cfg.port, "port", 8019, "Viewer port (with --serve)")
	f.BoolVar(&cfg.noTimestamp, "no-timestamp", false, "Omit generatedAt from metadata (reproducible output)")
	f.BoolVarP(&cfg.verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	f.BoolVarP(&cfg.quiet, "quiet", "q", false, "Suppress all non-error output")

	return cmd
}

// applyConfigFile carica .swiftdiagram.yaml (dalla radice del progetto o dalla
// directory corrente) come default: i flag passati esplicitamente vincono
// sempre sul file.
func applyConfigFile(cmd *cobra.Command, cfg *config) {
	v := viper.New()
	v.SetConfigName(".swiftdiagram")
	v.SetConfigType("yaml")
	v.AddConfigPath(cfg.input)
	v.AddConfigPath(".")
	v.SetEnvPrefix("SWIFTDIAGRAM")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// File assente o illeggibile: si procede con i soli flag.
		return
	}
	logVerbose(*cfg, "Using config file: %s", v.ConfigFileUsed())

	flags := cmd.Flags()
	if !flags.Changed("output") && v.IsSet("output") {
		cfg.outputPath = v.GetString("output")
	}
	if !flags.Changed("recursive") && v.IsSet("recursive") {
		cfg.recursive = v.GetBool("recursive")
	}
	if !flags.Changed("max-depth") && v.IsSet("max-depth") {
		cfg.maxDepth = v.GetInt("max-depth")
	}
	if !flags.Changed("exclude-dirs") && v.IsSet("exclude-dirs") {
		cfg.excludeDirs = v.GetStringSlice("exclude-dirs")
	}
	if !flags.Changed("respect-gitignore") && v.IsSet("respect-gitignore") {
		cfg.respectGitignore = v.GetBool("respect-gitignore")
	}
	if !flags.Changed("port") && v.IsSet("port") {
		cfg.port = v.GetInt("port")
	}
}

var validKinds = map[string]bool{
	string(schema.KindClass):         true,
	string(schema.KindStruct):        true,
	string(schema.KindProtocol):      true,
	string(schema.KindEnum):          true,
	string(schema.KindActor):         true,
	string(schema.KindExtensionOnly): true,
}

func validateConfig(cfg *config) error {
	absInput, err := filepath.Abs(cfg.input)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	cfg.input = absInput

	if _, err := os.Stat(cfg.input); os.IsNotExist(err) {
		return fmt.Errorf("input path does not exist: %s", cfg.input)
	}

	for _, k := range cfg.kindFilter {
		if !validKinds[k] {
			return fmt.Errorf("invalid kind-filter: %s (valid: class, struct, protocol, enum, actor, extension-only)", k)
		}
	}

	if cfg.serve && (cfg.port < 1 || cfg.port > 65535) {
		return fmt.Errorf("invalid port: %d", cfg.port)
	}
	return nil
}

func run(cfg config) error {
	startTime := time.Now()

	logVerbose(cfg, "Starting analysis...")
	logVerbose(cfg, "  Input: %s", cfg.input)
	logVerbose(cfg, "  Recursive: %v (max depth %d)", cfg.recursive, cfg.maxDepth)

	an := analyzer.New(analyzer.Options{
		Recursive:    cfg.recursive,
		MaxDepth:     cfg.maxDepth,
		ExcludedDirs: cfg.excludeDirs,
		UseGitignore: cfg.respectGitignore,
	})

	if cfg.serve {
		return runServe(cfg, an)
	}

	res, err := an.Analyze(context.Background(), cfg.input)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	reportIssues(cfg, res.Issues)
	logVerbose(cfg, "Graph: %d nodes, %d edges", res.Graph.NodeCount(), res.Graph.EdgeCount())

	if cfg.list {
		printListing(res.Types, cfg.kindFilter)
		return nil
	}

	doc := output.BuildDocument(res.Graph, res.Root, version, res.Issues, !cfg.noTimestamp)
	if err := output.Write(doc, output.Config{OutputPath: cfg.outputPath, Indent: true}); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logVerbose(cfg, "Analysis completed in %dms", time.Since(startTime).Milliseconds())
	return nil
}

// runServe esegue una prima analisi per fallire presto su una radice
// sbagliata, poi tiene il viewer in piedi fino a SIGINT/SIGTERM.
func runServe(cfg config, an *analyzer.Analyzer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := an.Analyze(ctx, cfg.input)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	reportIssues(cfg, res.Issues)

	srv := server.New(fmt.Sprintf(":%d", cfg.port), an, cfg.input, version)
	if !cfg.quiet {
		fmt.Fprintf(os.Stderr, "[info] serving viewer at http://localhost:%d (Ctrl-C to stop)\n", cfg.port)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// printListing stampa i tipi su stdout in forma piatta. Il filtro per kind
// agisce solo qui: il grafo resta costruito su tutti i tipi.
func printListing(types []schema.TypeInfo, kinds []string) {
	filtered := analyzer.FilterByKind(types, kinds)
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })

	for _, t := range filtered {
		where := "external"
		if t.Location.File != "" {
			where = fmt.Sprintf("%s:%d", t.Location.File, t.Location.Line)
		}
		fmt.Printf("%-14s %-40s %s\n", t.Kind, t.Name, where)
	}
}

func reportIssues(cfg config, issues []schema.Issue) {
	if cfg.quiet {
		return
	}
	for _, is := range issues {
		logWarning("%s: %s (%s)", is.Code, is.Message, is.File)
	}
}

// ============================================================================
// Helper functions
// ============================================================================

func logVerbose(cfg config, format string, args ...interface{}) {
	if cfg.verbose && !cfg.quiet {
		fmt.Fprintf(os.Stderr, "[info] "+format+"\n", args...)
	}
}

func logWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[warning] "+format+"\n", args...)
}

func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[error] "+format+"\n", args...)
}
