// Package conversion wires the usage reader and the NEM12 writer into a
// single sequential run: one input file in, one output file out.
package conversion

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nem12cli/internal/agl"
	apperrors "nem12cli/internal/errors"
	"nem12cli/internal/infrastructure"
	"nem12cli/internal/nem12"
	"nem12cli/pkg/contracts/domain"
)

// Options carries the run configuration the converter needs.
type Options struct {
	IntervalLength  int
	FromParticipant string
	ToParticipant   string
}

// Stats aggregates the counters of both pipeline stages. NoData is set when
// the input held no usable rows and no output file was produced.
type Stats struct {
	agl.ReadStats
	nem12.WriteStats
	NoData bool
}

// Converter runs the usage-to-NEM12 pipeline.
type Converter struct {
	logger *slog.Logger
	opts   Options
	tracer trace.Tracer
}

// New creates a Converter with the given options.
func New(logger *slog.Logger, opts Options) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		logger: logger,
		opts:   opts,
		tracer: infrastructure.Tracer(),
	}
}

// Convert reads the usage export at inputPath and writes a NEM12 file to
// outputPath. When the input contains no valid rows the run succeeds with
// Stats.NoData set and no output file is created.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	ctx, span := c.tracer.Start(ctx, "conversion.Convert",
		trace.WithAttributes(
			attribute.String("input.path", inputPath),
			attribute.String("output.path", outputPath),
			attribute.Int("interval.length", c.opts.IntervalLength),
		))
	defer span.End()

	stats := Stats{}

	spec, err := domain.NewIntervalSpec(c.opts.IntervalLength)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return stats, apperrors.NewValidationError(err.Error())
	}

	c.logger.InfoContext(ctx, "Reading usage data",
		"input", inputPath,
		"interval_length", spec.Length,
		"intervals_per_day", spec.PerDay)

	data, readStats, err := c.read(ctx, inputPath, spec)
	stats.ReadStats = readStats
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	if readStats.RowsSkipped > 0 {
		c.logger.InfoContext(ctx, "Skipped rows due to missing or invalid data",
			"skipped", readStats.RowsSkipped)
	}

	if data.Empty() {
		c.logger.InfoContext(ctx, "No valid data rows processed.")
		stats.NoData = true
		span.AddEvent("no valid data rows")
		return stats, nil
	}

	c.logger.InfoContext(ctx, "Finished reading usage data",
		"rows_seen", readStats.RowsSeen,
		"rows_processed", readStats.RowsProcessed,
		"nmis", len(data.NMIs()))

	writeStats, err := c.write(ctx, outputPath, data)
	stats.WriteStats = writeStats
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	c.logger.InfoContext(ctx, "Conversion complete",
		"output", outputPath,
		"streams", writeStats.Streams,
		"days_written", writeStats.DaysWritten,
		"days_skipped", writeStats.DaysSkipped)

	span.SetAttributes(
		attribute.Int("rows.processed", readStats.RowsProcessed),
		attribute.Int("days.written", writeStats.DaysWritten),
	)
	return stats, nil
}

func (c *Converter) read(ctx context.Context, inputPath string, spec domain.IntervalSpec) (*domain.UsageData, agl.ReadStats, error) {
	ctx, span := c.tracer.Start(ctx, "conversion.read")
	defer span.End()

	src, err := agl.OpenSource(inputPath)
	if err != nil {
		return nil, agl.ReadStats{}, err
	}
	defer src.Close()

	return agl.NewBucketizer(c.logger, spec).Read(ctx, src)
}

func (c *Converter) write(ctx context.Context, outputPath string, data *domain.UsageData) (nem12.WriteStats, error) {
	ctx, span := c.tracer.Start(ctx, "conversion.write")
	defer span.End()

	writer := nem12.NewWriter(c.logger, c.opts.FromParticipant, c.opts.ToParticipant)
	return writer.WriteFile(ctx, outputPath, data)
}
