package domain

import "strings"

// StreamKind classifies a metering data stream for the MDM data stream
// identifier field of a NEM12 200 record.
type StreamKind string

const (
	StreamConsumption StreamKind = "CONSUMPTION"
	StreamGeneration  StreamKind = "GENERATION"
	StreamReactive    StreamKind = "REACTIVE"
	// StreamInterval is the generic fallback for suffixes that match no
	// known prefix.
	StreamInterval StreamKind = "INTERVAL"
)

// UnitKWH is the unit of measure emitted for every stream.
const UnitKWH = "kWh"

// KindForSuffix classifies a register suffix by its leading character,
// case-insensitive, first match wins:
//
//	B        -> GENERATION
//	E or V   -> CONSUMPTION
//	Q or K   -> REACTIVE
//	anything -> INTERVAL
func KindForSuffix(suffix string) StreamKind {
	if suffix == "" {
		return StreamInterval
	}
	switch strings.ToUpper(suffix[:1]) {
	case "B":
		return StreamGeneration
	case "E", "V":
		return StreamConsumption
	case "Q", "K":
		return StreamReactive
	default:
		return StreamInterval
	}
}

// StreamMeta describes one (NMI, suffix) data stream. It is created from the
// first reading seen for the pair and never mutated afterwards, even when a
// later reading would imply a different serial or classification.
type StreamMeta struct {
	Suffix         string     `json:"suffix"`
	Kind           StreamKind `json:"kind"`
	MeterSerial    string     `json:"meter_serial"`
	UOM            string     `json:"uom"`
	IntervalLength int        `json:"interval_length"`
	// NextScheduledRead is carried for the 200 record layout but the source
	// export never supplies one.
	NextScheduledRead string `json:"next_scheduled_read,omitempty"`
}

// NewStreamMeta infers the metadata for a stream from its first reading.
func NewStreamMeta(suffix, meterSerial string, intervalLength int) StreamMeta {
	return StreamMeta{
		Suffix:         suffix,
		Kind:           KindForSuffix(suffix),
		MeterSerial:    meterSerial,
		UOM:            UnitKWH,
		IntervalLength: intervalLength,
	}
}
