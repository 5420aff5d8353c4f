// Command converter turns an AGL MyUsageData export (CSV or XLSX) into a
// NEM12 interval-meter-data file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"nem12cli/internal/config"
	"nem12cli/internal/conversion"
	"nem12cli/internal/infrastructure"
	"nem12cli/pkg/contracts"
)

func main() {
	inPath := flag.String("in", "", "path to the input MyUsageData file (.csv or .xlsx)")
	outPath := flag.String("out", "", "path for the NEM12 output file (defaults to input path with a .nem12.csv extension)")
	interval := flag.Int("interval", 0, "interval length in minutes (5, 15 or 30); overrides config")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		cfg = config.Default()
	}
	if *interval != 0 {
		cfg.Conversion.IntervalLength = *interval
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid interval length %d: %v\n", *interval, err)
			os.Exit(1)
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.WithRunID(context.Background(), uuid.NewString())

	if cfg.Tracing.Enabled {
		tp, err := infrastructure.InitializeTracing(ctx, logger)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	output := *outPath
	if output == "" {
		output = deriveOutputPath(*inPath)
	}

	converter := conversion.New(logger, conversion.Options{
		IntervalLength:  cfg.Conversion.IntervalLength,
		FromParticipant: cfg.Conversion.FromParticipant,
		ToParticipant:   cfg.Conversion.ToParticipant,
	})

	fmt.Printf("Reading usage data from: %s\n", *inPath)
	stats, err := converter.Convert(ctx, *inPath, output)
	if err != nil {
		logger.ErrorContext(ctx, "Conversion failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if stats.RowsSkipped > 0 {
		fmt.Printf("Skipped %d rows due to missing or invalid data.\n", stats.RowsSkipped)
	}
	if stats.NoData {
		fmt.Println("No valid data rows processed.")
		return
	}

	fmt.Printf("Read %d rows, processed %d interval readings.\n", stats.RowsSeen, stats.RowsProcessed)
	fmt.Printf("Wrote %d streams and %d day records to: %s\n", stats.Streams, stats.DaysWritten, output)
	if stats.DaysSkipped > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d inconsistent day records.\n", stats.DaysSkipped)
	}
}

// deriveOutputPath swaps the input extension for a .nem12.csv one.
func deriveOutputPath(inPath string) string {
	return strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".nem12.csv"
}
