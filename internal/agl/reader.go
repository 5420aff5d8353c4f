// Package agl reads AGL MyUsageData exports and buckets each row into
// per-day interval slots keyed by NMI and register suffix.
package agl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "nem12cli/internal/errors"
	"nem12cli/pkg/contracts/domain"
)

// Column headers expected in the usage export.
const (
	ColNMI          = "NMI"
	ColRegisterCode = "RegisterCode"
	ColStartDate    = "StartDate"
	ColReadValue    = "ProfileReadValue"
	ColQualityFlag  = "QualityFlag"
	ColDeviceNumber = "DeviceNumber"
)

// timestampLayout matches the export's StartDate column, e.g.
// "01/06/2024 12:30:00 AM" (day first).
const timestampLayout = "02/01/2006 03:04:05 PM"

var requiredColumns = []string{
	ColNMI, ColRegisterCode, ColStartDate, ColReadValue, ColQualityFlag, ColDeviceNumber,
}

// standardSuffix matches NEM12 register suffixes such as E1, B1 or Q12.
var standardSuffix = regexp.MustCompile(`(?i)^[EBVQKN][0-9]+$`)

// ReadStats summarises one pass over an input file.
type ReadStats struct {
	RowsSeen            int
	RowsProcessed       int
	RowsSkipped         int
	NonStandardSuffixes int
}

// Bucketizer accumulates usage rows into interval days. It owns the
// warn-once bookkeeping for non-standard register suffixes so repeated
// rows for the same stream produce a single diagnostic.
type Bucketizer struct {
	logger *slog.Logger
	spec   domain.IntervalSpec
	warned map[domain.StreamKey]struct{}
}

// NewBucketizer creates a Bucketizer for the given interval spec.
func NewBucketizer(logger *slog.Logger, spec domain.IntervalSpec) *Bucketizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bucketizer{
		logger: logger,
		spec:   spec,
		warned: make(map[domain.StreamKey]struct{}),
	}
}

// Read drains src and returns the bucketed usage data. Rows with missing
// required fields are skipped and counted rather than failing the run; a
// missing set of header columns is fatal.
func (b *Bucketizer) Read(ctx context.Context, src RowSource) (*domain.UsageData, ReadStats, error) {
	stats := ReadStats{}

	columns, err := mapColumns(src.Header())
	if err != nil {
		return nil, stats, err
	}

	data := domain.NewUsageData(b.spec)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, apperrors.NewParsingError(
				fmt.Sprintf("failed to read row %d", stats.RowsSeen+2), err)
		}

		stats.RowsSeen++
		if b.processRow(ctx, data, columns, row, &stats) {
			stats.RowsProcessed++
		} else {
			stats.RowsSkipped++
		}
	}

	return data, stats, nil
}

// mapColumns resolves the index of every required column from the header
// row. Column order in the export is not guaranteed.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("input file missing required columns: %s", strings.Join(missing, ", ")), nil)
	}
	return columns, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// processRow buckets a single data row. Returns true when the row
// contributed a reading.
func (b *Bucketizer) processRow(ctx context.Context, data *domain.UsageData, columns map[string]int, row []string, stats *ReadStats) bool {
	reading, ok := b.parseRow(ctx, columns, row)
	if !ok {
		return false
	}
	return b.bucket(ctx, data, reading, stats)
}

// parseRow turns a raw row into a Reading. A missing required field or an
// unparseable timestamp rejects the row; an unreadable value does not, it is
// recorded as zero with null quality rather than dropped.
func (b *Bucketizer) parseRow(ctx context.Context, columns map[string]int, row []string) (domain.Reading, bool) {
	nmi := cell(row, columns[ColNMI])
	register := cell(row, columns[ColRegisterCode])
	startDate := cell(row, columns[ColStartDate])
	rawValue := cell(row, columns[ColReadValue])
	rawQuality := cell(row, columns[ColQualityFlag])
	device := cell(row, columns[ColDeviceNumber])

	if nmi == "" || register == "" || startDate == "" || rawQuality == "" || device == "" {
		b.logger.DebugContext(ctx, "Skipping row with missing required fields",
			"nmi", nmi, "register", register, "start_date", startDate)
		return domain.Reading{}, false
	}

	ts, err := time.Parse(timestampLayout, startDate)
	if err != nil {
		b.logger.WarnContext(ctx, "Skipping row with unparseable timestamp",
			"nmi", nmi, "start_date", startDate)
		return domain.Reading{}, false
	}

	quality := domain.ParseQuality(rawQuality)
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		value = 0.0
		quality = domain.QualityNull
	}

	return domain.Reading{
		NMI:          nmi,
		RegisterCode: register,
		Timestamp:    ts,
		Value:        value,
		Quality:      quality,
		DeviceSerial: device,
	}, true
}

// bucket writes a parsed reading into its (stream, day, slot) cell,
// registering stream metadata on the first sighting of the pair.
func (b *Bucketizer) bucket(ctx context.Context, data *domain.UsageData, reading domain.Reading, stats *ReadStats) bool {
	slot, ok := b.spec.SlotFor(reading.Timestamp)
	if !ok {
		b.logger.WarnContext(ctx, "Timestamp maps outside the interval grid",
			"nmi", reading.NMI, "timestamp", reading.Timestamp, "interval_length", b.spec.Length)
		return false
	}

	suffix, ok := suffixOf(reading.RegisterCode)
	if !ok {
		b.logger.DebugContext(ctx, "Skipping row without an extractable suffix",
			"nmi", reading.NMI, "register", reading.RegisterCode)
		return false
	}

	key := domain.StreamKey{NMI: reading.NMI, Suffix: suffix}

	if !standardSuffix.MatchString(suffix) {
		if _, seen := b.warned[key]; !seen {
			b.warned[key] = struct{}{}
			stats.NonStandardSuffixes++
			b.logger.WarnContext(ctx, "Non-standard register suffix",
				"nmi", reading.NMI, "suffix", suffix, "register", reading.RegisterCode)
		}
	}

	data.PutStream(key, domain.NewStreamMeta(suffix, reading.DeviceSerial, b.spec.Length))

	day := data.Day(domain.DayKey{Stream: key, Date: domain.DateOf(reading.Timestamp)})
	day.Set(slot, reading.Value, reading.Quality)

	return true
}

// suffixOf returns the register suffix, the part of the register code after
// the last '#'. Codes without a '#' or with nothing after it carry no
// extractable suffix.
func suffixOf(register string) (string, bool) {
	idx := strings.LastIndex(register, "#")
	if idx < 0 {
		return "", false
	}
	suffix := register[idx+1:]
	return suffix, suffix != ""
}
