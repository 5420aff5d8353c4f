// Package nem12 renders bucketed usage data as a NEM12 interval-meter
// exchange file: one 100 header record, a 200 record per data stream, a
// 300 record per day with readings, and a 900 trailer.
package nem12

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "nem12cli/internal/errors"
	"nem12cli/pkg/contracts/domain"
)

// Version is the format identifier carried in the 100 record.
const Version = "NEM12"

// maxConfigLength caps the NMIConfiguration field of a 200 record.
const maxConfigLength = 255

const (
	headerTimeLayout = "20060102150405"
)

// WriteStats summarises one rendering pass.
type WriteStats struct {
	Streams          int
	DaysWritten      int
	DaysSkipped      int
	TruncatedConfigs int
}

// Writer renders UsageData to NEM12. The zero value is not usable; create
// one with NewWriter.
type Writer struct {
	logger *slog.Logger
	from   string
	to     string

	// now is swappable so tests can pin the 100 record timestamp.
	now func() time.Time
}

// NewWriter creates a Writer that stamps 100 records with the given
// participant identifiers.
func NewWriter(logger *slog.Logger, from, to string) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger, from: from, to: to, now: time.Now}
}

// WriteFile renders data to a new file at path.
func (w *Writer) WriteFile(ctx context.Context, path string, data *domain.UsageData) (WriteStats, error) {
	file, err := os.Create(path)
	if err != nil {
		return WriteStats{}, apperrors.NewStorageError("failed to create output file", err)
	}

	stats, err := w.Write(ctx, file, data)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = apperrors.NewStorageError("failed to close output file", closeErr)
	}
	return stats, err
}

// Write renders data to out. Streams are emitted per meter identifier and
// suffix in ascending order; days in ascending date order. A day whose
// rendered slot count disagrees with the interval spec is reported and
// skipped without failing the run.
func (w *Writer) Write(ctx context.Context, out io.Writer, data *domain.UsageData) (WriteStats, error) {
	stats := WriteStats{}
	cw := csv.NewWriter(out)

	header := []string{"100", Version, w.now().Format(headerTimeLayout), w.from, w.to}
	if err := cw.Write(header); err != nil {
		return stats, apperrors.NewStorageError("failed to write header record", err)
	}

	for _, nmi := range data.NMIs() {
		suffixes := data.Suffixes(nmi)
		config := strings.Join(suffixes, "")
		if len(config) > maxConfigLength {
			config = config[:maxConfigLength]
			stats.TruncatedConfigs++
			w.logger.WarnContext(ctx, "NMI configuration string exceeds maximum length, truncating",
				"nmi", nmi, "suffix_count", len(suffixes))
		}

		for _, suffix := range suffixes {
			key := domain.StreamKey{NMI: nmi, Suffix: suffix}
			if err := w.writeStream(ctx, cw, data, key, config, &stats); err != nil {
				return stats, err
			}
		}
	}

	if err := cw.Write([]string{"900"}); err != nil {
		return stats, apperrors.NewStorageError("failed to write trailer record", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, apperrors.NewStorageError("failed to flush output", err)
	}
	return stats, nil
}

func (w *Writer) writeStream(ctx context.Context, cw *csv.Writer, data *domain.UsageData, key domain.StreamKey, config string, stats *WriteStats) error {
	meta := data.Streams[key]

	record := []string{
		"200", key.NMI, config, "",
		meta.Suffix, string(meta.Kind), meta.MeterSerial,
		meta.UOM, strconv.Itoa(meta.IntervalLength), meta.NextScheduledRead,
	}
	if err := cw.Write(record); err != nil {
		return apperrors.NewStorageError("failed to write stream record", err)
	}
	stats.Streams++

	for _, date := range data.Dates(key) {
		day := data.Days[domain.DayKey{Stream: key, Date: date}]
		if day.Empty() {
			continue
		}

		values, qualities := renderDay(day)
		if len(values) != data.Spec.PerDay {
			w.logger.ErrorContext(ctx, "Day has inconsistent interval count, skipping",
				"nmi", key.NMI, "suffix", key.Suffix, "date", date.String(),
				"expected", data.Spec.PerDay, "found", len(values))
			stats.DaysSkipped++
			continue
		}

		row := make([]string, 0, len(values)+6)
		row = append(row, "300", date.String())
		row = append(row, values...)
		row = append(row, string(domain.AggregateDayQuality(qualities)), "", "", "")
		if err := cw.Write(row); err != nil {
			return apperrors.NewStorageError("failed to write day record", err)
		}
		stats.DaysWritten++
	}

	return nil
}

// renderDay formats every slot of a day. Filled slots keep their value and
// quality (defaulted when the source carried none); empty slots are
// zero-padded and marked substituted.
func renderDay(day *domain.IntervalDay) ([]string, []domain.QualityCode) {
	values := make([]string, 0, len(day.Values))
	qualities := make([]domain.QualityCode, 0, len(day.Values))

	for i := range day.Values {
		if day.Filled[i] {
			values = append(values, fmt.Sprintf("%.3f", day.Values[i]))
			quality := day.Quality[i]
			if quality == "" {
				quality = domain.DefaultQuality
			}
			qualities = append(qualities, quality)
		} else {
			values = append(values, "0.000")
			qualities = append(qualities, domain.QualitySubstituted)
		}
	}

	return values, qualities
}
