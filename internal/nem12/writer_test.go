package nem12

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nem12cli/pkg/contracts/domain"
)

func newTestWriter() *Writer {
	w := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)), "AGL", "Converter")
	w.now = func() time.Time {
		return time.Date(2024, 6, 2, 10, 20, 30, 0, time.UTC)
	}
	return w
}

func newUsage(t *testing.T, intervalLength int) *domain.UsageData {
	t.Helper()
	spec, err := domain.NewIntervalSpec(intervalLength)
	require.NoError(t, err)
	return domain.NewUsageData(spec)
}

func render(t *testing.T, data *domain.UsageData) ([]string, WriteStats) {
	t.Helper()
	var sb strings.Builder
	stats, err := newTestWriter().Write(context.Background(), &sb, data)
	require.NoError(t, err)
	out := strings.TrimRight(sb.String(), "\n")
	return strings.Split(out, "\n"), stats
}

func TestWrite_EmptyData(t *testing.T) {
	lines, stats := render(t, newUsage(t, 30))

	require.Len(t, lines, 2)
	assert.Equal(t, "100,NEM12,20240602102030,AGL,Converter", lines[0])
	assert.Equal(t, "900", lines[1])
	assert.Equal(t, WriteStats{}, stats)
}

func TestWrite_SingleReading(t *testing.T) {
	data := newUsage(t, 30)
	key := domain.StreamKey{NMI: "NMI123456", Suffix: "E1"}
	data.PutStream(key, domain.NewStreamMeta("E1", "DEV1", 30))
	day := data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}})
	day.Set(1, 1.234, domain.QualityActual)

	lines, stats := render(t, data)

	require.Len(t, lines, 4)
	assert.Equal(t, "200,NMI123456,E1,,E1,CONSUMPTION,DEV1,kWh,30,", lines[1])

	fields := strings.Split(lines[2], ",")
	require.Len(t, fields, 2+48+4)
	assert.Equal(t, "300", fields[0])
	assert.Equal(t, "20240601", fields[1])
	assert.Equal(t, "0.000", fields[2])
	assert.Equal(t, "1.234", fields[3])
	for _, f := range fields[4 : 2+48] {
		assert.Equal(t, "0.000", f)
	}
	// All-but-one slots are zero padding with substituted quality, so the
	// day quality collapses to S ahead of the actual reading.
	assert.Equal(t, "S", fields[2+48])
	assert.Equal(t, []string{"", "", ""}, fields[2+49:])

	assert.Equal(t, 1, stats.Streams)
	assert.Equal(t, 1, stats.DaysWritten)
}

func TestWrite_DayQualityFromFullDay(t *testing.T) {
	data := newUsage(t, 30)
	key := domain.StreamKey{NMI: "NMI1", Suffix: "E1"}
	data.PutStream(key, domain.NewStreamMeta("E1", "DEV1", 30))
	day := data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}})
	for i := 0; i < 48; i++ {
		day.Set(i, float64(i), domain.QualityActual)
	}
	day.Set(7, 7, domain.QualityFinal)

	lines, _ := render(t, data)
	fields := strings.Split(lines[2], ",")
	assert.Equal(t, "F", fields[2+48])
}

func TestWrite_SortsStreamsAndDates(t *testing.T) {
	data := newUsage(t, 30)
	for _, s := range []struct {
		nmi, suffix string
		date        domain.Date
	}{
		{"NMI2", "E1", domain.Date{Year: 2024, Month: 6, Day: 1}},
		{"NMI1", "E2", domain.Date{Year: 2024, Month: 6, Day: 2}},
		{"NMI1", "E2", domain.Date{Year: 2024, Month: 6, Day: 1}},
		{"NMI1", "B1", domain.Date{Year: 2024, Month: 6, Day: 1}},
	} {
		key := domain.StreamKey{NMI: s.nmi, Suffix: s.suffix}
		data.PutStream(key, domain.NewStreamMeta(s.suffix, "DEV", 30))
		data.Day(domain.DayKey{Stream: key, Date: s.date}).Set(0, 1, domain.QualityActual)
	}

	lines, stats := render(t, data)

	assert.Equal(t, 3, stats.Streams)
	assert.Equal(t, 4, stats.DaysWritten)

	assert.True(t, strings.HasPrefix(lines[1], "200,NMI1,B1E2,,B1,GENERATION,"))
	assert.True(t, strings.HasPrefix(lines[2], "300,20240601,"))
	assert.True(t, strings.HasPrefix(lines[3], "200,NMI1,B1E2,,E2,CONSUMPTION,"))
	assert.True(t, strings.HasPrefix(lines[4], "300,20240601,"))
	assert.True(t, strings.HasPrefix(lines[5], "300,20240602,"))
	assert.True(t, strings.HasPrefix(lines[6], "200,NMI2,E1,,E1,CONSUMPTION,"))
	assert.True(t, strings.HasPrefix(lines[7], "300,20240601,"))
	assert.Equal(t, "900", lines[8])
}

func TestWrite_TruncatesLongConfig(t *testing.T) {
	data := newUsage(t, 30)
	// 100 three-character suffixes concatenate to 300 characters.
	for i := 0; i < 100; i++ {
		suffix := "N" + string(rune('0'+i/10)) + string(rune('0'+i%10))
		key := domain.StreamKey{NMI: "NMI1", Suffix: suffix}
		data.PutStream(key, domain.NewStreamMeta(suffix, "DEV", 30))
		data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}}).
			Set(0, 1, domain.QualityActual)
	}

	lines, stats := render(t, data)

	assert.Equal(t, 1, stats.TruncatedConfigs)
	fields := strings.Split(lines[1], ",")
	assert.Len(t, fields[2], 255)
}

func TestWrite_DropsEmptyDay(t *testing.T) {
	data := newUsage(t, 30)
	key := domain.StreamKey{NMI: "NMI1", Suffix: "E1"}
	data.PutStream(key, domain.NewStreamMeta("E1", "DEV1", 30))
	data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}})

	lines, stats := render(t, data)

	require.Len(t, lines, 3)
	assert.Equal(t, 0, stats.DaysWritten)
	assert.True(t, strings.HasPrefix(lines[1], "200,"))
	assert.Equal(t, "900", lines[2])
}

func TestWrite_SkipsInconsistentDay(t *testing.T) {
	data := newUsage(t, 30)
	key := domain.StreamKey{NMI: "NMI1", Suffix: "E1"}
	data.PutStream(key, domain.NewStreamMeta("E1", "DEV1", 30))

	// A day allocated for the wrong slot count renders the wrong number of
	// intervals and must be dropped without failing the run.
	bad := domain.NewIntervalDay(24)
	bad.Set(0, 1, domain.QualityActual)
	data.Days[domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}}] = bad

	good := data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 2}})
	good.Set(0, 2, domain.QualityActual)

	lines, stats := render(t, data)

	assert.Equal(t, 1, stats.DaysSkipped)
	assert.Equal(t, 1, stats.DaysWritten)
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "300,20240602,"))
}

func TestWrite_FifteenMinuteIntervals(t *testing.T) {
	data := newUsage(t, 15)
	key := domain.StreamKey{NMI: "NMI1", Suffix: "E1"}
	data.PutStream(key, domain.NewStreamMeta("E1", "DEV1", 15))
	data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}}).
		Set(95, 0.5, domain.QualityActual)

	lines, _ := render(t, data)

	fields := strings.Split(lines[2], ",")
	require.Len(t, fields, 2+96+4)
	assert.Equal(t, "0.500", fields[2+95])
	assert.True(t, strings.HasPrefix(lines[1], "200,NMI1,E1,,E1,CONSUMPTION,DEV1,kWh,15,"))
}

func TestWriteFile(t *testing.T) {
	data := newUsage(t, 30)
	key := domain.StreamKey{NMI: "NMI1", Suffix: "E1"}
	data.PutStream(key, domain.NewStreamMeta("E1", "DEV1", 30))
	data.Day(domain.DayKey{Stream: key, Date: domain.Date{Year: 2024, Month: 6, Day: 1}}).
		Set(0, 1, domain.QualityActual)

	path := filepath.Join(t.TempDir(), "out.nem12.csv")
	stats, err := newTestWriter().WriteFile(context.Background(), path, data)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DaysWritten)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "100,NEM12,"))
	assert.True(t, strings.HasSuffix(strings.TrimRight(string(content), "\n"), "900"))
}
