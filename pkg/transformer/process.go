package transformer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/codegen"
	"github.com/i-StarX/tc-transformer/pkg/transformer/extract"
	"github.com/i-StarX/tc-transformer/pkg/transformer/llm"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/i-StarX/tc-transformer/pkg/transformer/metrics"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
	"github.com/i-StarX/tc-transformer/pkg/transformer/parser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/pipeline"
	"github.com/i-StarX/tc-transformer/pkg/transformer/sandbox"
)

// Deps are the external services a run talks to.
type Deps struct {
	// Launcher opens the browser session for a run.
	Launcher browser.Launcher
	// Codegen writes browser programs.
	Codegen llm.Completer
	// Extraction reads locators from page markup.
	Extraction llm.Completer
	// LoginURL is where the first group logs in. Defaults to Options.BaseURL.
	LoginURL string
	// Variables are substituted into generated programs, e.g. USERNAME and PASSWORD.
	Variables map[string]string
	Logger    *zap.Logger
	Metrics   *metrics.Recorder
}

// Result is the outcome of processing one table.
type Result struct {
	// Records are the projected output rows in table order.
	Records []models.Record
	Report  *models.RunReport
}

// Process enriches table with locators. A browser session is launched for the
// run and closed on every return path.
func Process(ctx context.Context, table *models.Table, opts Options, deps Deps) (*Result, error) {
	if deps.Launcher == nil || deps.Codegen == nil || deps.Extraction == nil {
		return nil, errors.New("transformer: launcher and completers are required")
	}
	logger := logging.Named(deps.Logger, "transformer")

	loginURL := deps.LoginURL
	if loginURL == "" {
		loginURL = opts.BaseURL
	}

	merger := pipeline.NewMerger(pipeline.MergeOptions{
		Mode:           opts.MatchMode,
		Policy:         opts.MismatchPolicy,
		RepairAttempts: opts.Repairs(),
	}, deps.Logger, deps.Metrics)

	p := pipeline.New(pipeline.Components{
		Synthesizer: codegen.NewSynthesizer(deps.Codegen, loginURL, deps.Logger),
		Executor:    sandbox.NewExecutor(deps.Variables, deps.Logger),
		Extractor:   extract.NewExtractor(deps.Extraction, opts.MaxHTMLChars, deps.Logger),
		Merger:      merger,
	}, opts.BaseURL, deps.Logger, deps.Metrics)

	session, err := deps.Launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("close browser session", zap.Error(cerr))
		}
	}()

	report, err := p.Run(ctx, session, table.Rows)
	if err != nil {
		return &Result{Report: report}, err
	}
	return &Result{Records: table.Project(), Report: report}, nil
}

// ProcessFile reads the test-case table from the workbook at path and
// processes it.
func ProcessFile(ctx context.Context, path string, opts Options, deps Deps) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	table, err := ReadTable(f, opts)
	if err != nil {
		return nil, err
	}
	table.BookName = filepath.Base(path)
	return Process(ctx, table, opts, deps)
}

// ProcessReader is ProcessFile for an uploaded workbook.
func ProcessReader(ctx context.Context, r io.Reader, name string, opts Options, deps Deps) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	table, err := ReadTable(f, opts)
	if err != nil {
		return nil, err
	}
	table.BookName = name
	return Process(ctx, table, opts, deps)
}

// ReadTable reads the test-case table selected by opts from f.
func ReadTable(f *excelize.File, opts Options) (*models.Table, error) {
	sheet := opts.Sheet
	var area *models.CellRange
	if opts.Range != "" {
		rangeSheet, r, err := parser.ParseRange(opts.Range)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if rangeSheet != "" {
			sheet = rangeSheet
		}
		area = r
	}

	if sheet == "" {
		if list := f.GetSheetList(); len(list) > 0 {
			sheet = list[0]
		}
	}
	if area == nil && opts.UsePrintArea {
		area = parser.PrintArea(f, sheet)
	}

	table, err := parser.ReadTable(f, sheet, area)
	if err != nil {
		if errors.Is(err, ErrMissingColumn) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return table, nil
}
