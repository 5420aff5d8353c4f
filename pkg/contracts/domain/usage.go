package domain

import (
	"fmt"
	"sort"
	"time"
)

// Reading is one parsed row of the AGL MyUsageData export. Readings are
// consumed into a UsageData bucket immediately after parsing.
type Reading struct {
	NMI          string      `json:"nmi"`
	RegisterCode string      `json:"register_code"`
	Timestamp    time.Time   `json:"timestamp"`
	Value        float64     `json:"value"`
	Quality      QualityCode `json:"quality"`
	DeviceSerial string      `json:"device_serial"`
}

// IntervalSpec fixes the interval length of a conversion run and the derived
// number of slots per day.
type IntervalSpec struct {
	Length int // minutes
	PerDay int
}

// NewIntervalSpec derives the per-day slot count from an interval length.
// The length must divide a day evenly.
func NewIntervalSpec(lengthMinutes int) (IntervalSpec, error) {
	if lengthMinutes <= 0 || 1440%lengthMinutes != 0 {
		return IntervalSpec{}, fmt.Errorf("interval length %d does not divide a day evenly", lengthMinutes)
	}
	return IntervalSpec{Length: lengthMinutes, PerDay: 1440 / lengthMinutes}, nil
}

// SlotFor maps a timestamp to its time-of-day bucket. Slot i covers
// [i*Length, (i+1)*Length) minutes past midnight. The second return is false
// when the computed slot is out of range.
func (s IntervalSpec) SlotFor(t time.Time) (int, bool) {
	minutes := t.Hour()*60 + t.Minute()
	slot := minutes / s.Length
	if slot < 0 || slot >= s.PerDay {
		return 0, false
	}
	return slot, true
}

// Date is a calendar day, comparable and free of location baggage so it can
// key maps safely.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar day from a timestamp.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String renders the date in the NEM12 YYYYMMDD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// StreamKey identifies one metering data stream.
type StreamKey struct {
	NMI    string
	Suffix string
}

// DayKey identifies one day of one stream.
type DayKey struct {
	Stream StreamKey
	Date   Date
}

// IntervalDay holds one calendar day of interval values for a stream. The
// three slices are parallel and fixed-length; Filled is the explicit absence
// sentinel so gap-filling never has to guess from a placeholder value.
type IntervalDay struct {
	Values  []float64
	Filled  []bool
	Quality []QualityCode
}

// NewIntervalDay allocates an empty day with the given slot count.
func NewIntervalDay(perDay int) *IntervalDay {
	return &IntervalDay{
		Values:  make([]float64, perDay),
		Filled:  make([]bool, perDay),
		Quality: make([]QualityCode, perDay),
	}
}

// Set writes a value and quality into a slot, overwriting any prior value.
// Last write wins; duplicate readings for the same slot are not a conflict.
func (d *IntervalDay) Set(slot int, value float64, quality QualityCode) {
	d.Values[slot] = value
	d.Filled[slot] = true
	d.Quality[slot] = quality
}

// Empty reports whether no slot of the day holds a reading.
func (d *IntervalDay) Empty() bool {
	for _, f := range d.Filled {
		if f {
			return false
		}
	}
	return true
}

// UsageData is the bucketed result of a read pass and the writer's input:
// per-day interval arrays plus first-seen stream metadata, all owned by a
// single sequential conversion run.
type UsageData struct {
	Spec    IntervalSpec
	Days    map[DayKey]*IntervalDay
	Streams map[StreamKey]StreamMeta
}

// NewUsageData creates an empty bucket structure for one run.
func NewUsageData(spec IntervalSpec) *UsageData {
	return &UsageData{
		Spec:    spec,
		Days:    make(map[DayKey]*IntervalDay),
		Streams: make(map[StreamKey]StreamMeta),
	}
}

// Day returns the interval day for a key, allocating it on first use.
func (u *UsageData) Day(key DayKey) *IntervalDay {
	day, ok := u.Days[key]
	if !ok {
		day = NewIntervalDay(u.Spec.PerDay)
		u.Days[key] = day
	}
	return day
}

// HasStream reports whether metadata for the stream has been recorded.
func (u *UsageData) HasStream(key StreamKey) bool {
	_, ok := u.Streams[key]
	return ok
}

// PutStream records stream metadata. The first sighting wins; subsequent
// calls for the same key are ignored.
func (u *UsageData) PutStream(key StreamKey, meta StreamMeta) {
	if _, ok := u.Streams[key]; ok {
		return
	}
	u.Streams[key] = meta
}

// Empty reports whether the run produced no bucketed readings at all.
func (u *UsageData) Empty() bool {
	return len(u.Days) == 0
}

// NMIs returns every meter identifier with at least one stream, ascending.
func (u *UsageData) NMIs() []string {
	seen := make(map[string]bool)
	var nmis []string
	for key := range u.Streams {
		if !seen[key.NMI] {
			seen[key.NMI] = true
			nmis = append(nmis, key.NMI)
		}
	}
	sort.Strings(nmis)
	return nmis
}

// Suffixes returns the observed suffixes for a meter, ascending.
func (u *UsageData) Suffixes(nmi string) []string {
	var suffixes []string
	for key := range u.Streams {
		if key.NMI == nmi {
			suffixes = append(suffixes, key.Suffix)
		}
	}
	sort.Strings(suffixes)
	return suffixes
}

// Dates returns the calendar days holding data for a stream, ascending.
func (u *UsageData) Dates(key StreamKey) []Date {
	var dates []Date
	for dayKey := range u.Days {
		if dayKey.Stream == key {
			dates = append(dates, dayKey.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
