// Package main provides the CLI entry point for tc-transformer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer"
	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/config"
	"github.com/i-StarX/tc-transformer/pkg/transformer/llm"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/i-StarX/tc-transformer/pkg/transformer/metrics"
	"github.com/i-StarX/tc-transformer/pkg/transformer/output"
	"github.com/i-StarX/tc-transformer/pkg/transformer/server"
)

var (
	configFile   string
	envFile      string
	testURL      string
	outputPath   string
	format       string
	pretty       bool
	sheet        string
	cellRange    string
	usePrintArea bool
	reportPath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tc-transformer [input.xlsx]",
		Short: "Enrich manual test cases with UI locators",
		Long: `tc-transformer drives a browser through each group of a test-case sheet
and records the locator of every element the steps interact with.`,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")

	rootCmd.Flags().StringVar(&testURL, "url", "", "Base URL of the application under test (default: login URL)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.Flags().StringVar(&format, "format", "json", "Output format: json, xlsx")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	rootCmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default: first sheet)")
	rootCmd.Flags().StringVar(&cellRange, "range", "", "Cell range to read, e.g. A1:F40 or Sheet1!A1:F40")
	rootCmd.Flags().BoolVar(&usePrintArea, "print-area", false, "Read only the sheet's print area")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "Write the run report as JSON to this path")

	rootCmd.AddCommand(&cobra.Command{
		Use:          "serve",
		Short:        "Serve the HTTP API",
		Args:         cobra.NoArgs,
		RunE:         serve,
		SilenceUsage: true,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds everything built from configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	deps     transformer.Deps
	opts     transformer.Options
}

func setup() (*app, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.New(), configFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	launcher, err := browser.NewLauncher(browser.Options{
		Driver:        cfg.Browser.Driver,
		Headless:      cfg.Browser.Headless,
		ActionTimeout: cfg.Browser.ActionTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	azure := func(deployment string) *llm.AzureClient {
		return llm.NewAzureClient(llm.AzureOptions{
			Endpoint:   cfg.LLM.Endpoint,
			APIKey:     cfg.LLM.APIKey,
			APIVersion: cfg.LLM.APIVersion,
			Deployment: deployment,
			Timeout:    cfg.LLM.Timeout,
		}, logger)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		opts:     opts,
		deps: transformer.Deps{
			Launcher:   launcher,
			Codegen:    azure(cfg.LLM.CodegenDeployment),
			Extraction: azure(cfg.LLM.ExtractionDeployment),
			LoginURL:   cfg.Login.URL,
			Variables: map[string]string{
				"USERNAME": cfg.Login.Username,
				"PASSWORD": cfg.Login.Password,
			},
			Logger:  logger,
			Metrics: rec,
		},
	}, nil
}

func options(cfg *config.Config) (transformer.Options, error) {
	opts := transformer.DefaultOptions()

	mode, err := transformer.ParseMatchMode(cfg.Pipeline.MatchMode)
	if err != nil {
		return opts, err
	}
	policy, err := transformer.ParseMismatchPolicy(cfg.Pipeline.MismatchPolicy)
	if err != nil {
		return opts, err
	}
	attempts := cfg.Pipeline.RepairAttempts

	opts.MatchMode = mode
	opts.MismatchPolicy = policy
	opts.RepairAttempts = &attempts
	opts.MaxHTMLChars = cfg.Pipeline.MaxHTMLChars
	return opts, nil
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format = strings.ToLower(format)
	if format != "json" && format != "xlsx" {
		return fmt.Errorf("invalid format: %s (must be json or xlsx)", format)
	}
	if format == "xlsx" && outputPath == "" {
		return fmt.Errorf("--output is required for xlsx format")
	}

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	opts := rt.opts
	opts.BaseURL = testURL
	if opts.BaseURL == "" {
		opts.BaseURL = rt.cfg.Login.URL
	}
	opts.Sheet = sheet
	opts.Range = cellRange
	opts.UsePrintArea = usePrintArea

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := transformer.ProcessFile(ctx, inputPath, opts, rt.deps)
	if result != nil && result.Report != nil && reportPath != "" {
		if werr := writeReport(result, reportPath); werr != nil {
			rt.logger.Warn("write report", zap.Error(werr))
		}
	}
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if format == "xlsx" {
		if err := output.WriteXLSX(outputPath, "", result.Records); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	jsonData, err := output.ToJSON(result.Records, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Println(string(jsonData))
	}
	return nil
}

func writeReport(result *transformer.Result, path string) error {
	data, err := output.ReportToJSON(result.Report, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func serve(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	deps := rt.deps
	process := func(ctx context.Context, r io.Reader, name string, opts transformer.Options) (*transformer.Result, error) {
		return transformer.ProcessReader(ctx, r, name, opts, deps)
	}

	srv := server.New(server.Config{
		MaxConcurrentRuns: rt.cfg.Server.MaxConcurrentRuns,
		Options:           rt.opts,
		Gatherer:          rt.registry,
	}, process, rt.logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, rt.cfg.Server.Addr)
}
