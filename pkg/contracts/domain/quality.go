package domain

// QualityCode is a NEM12 quality method flag attached to an interval value.
type QualityCode string

const (
	// QualityActual marks a value read directly from the meter.
	QualityActual QualityCode = "A"
	// QualityFinal marks a final substituted value.
	QualityFinal QualityCode = "F"
	// QualityEstimate marks a forward estimate.
	QualityEstimate QualityCode = "E"
	// QualitySubstituted marks a value substituted for a missing reading.
	QualitySubstituted QualityCode = "S"
	// QualityNull marks a null or suspect value.
	QualityNull QualityCode = "N"
)

// DefaultQuality is used when the source flag is unknown or an interval
// carries no quality information at all.
const DefaultQuality = QualityEstimate

// ParseQuality maps a source quality flag to a QualityCode. Flags outside
// the known set fall back to the default quality.
func ParseQuality(flag string) QualityCode {
	switch QualityCode(flag) {
	case QualityActual, QualityFinal, QualityEstimate, QualitySubstituted, QualityNull:
		return QualityCode(flag)
	default:
		return DefaultQuality
	}
}

// dayQualityPriority is the fixed precedence used to collapse the distinct
// per-interval codes of a day into a single day-level quality method.
// The first code present wins, regardless of how many intervals carry it.
var dayQualityPriority = []QualityCode{
	QualityNull,
	QualitySubstituted,
	QualityEstimate,
	QualityFinal,
	QualityActual,
}

// AggregateDayQuality returns the day-level quality method for a set of
// per-interval codes. Empty codes are ignored; if no interval carries a code
// the default quality applies.
func AggregateDayQuality(codes []QualityCode) QualityCode {
	present := make(map[QualityCode]bool, len(codes))
	for _, c := range codes {
		if c != "" {
			present[c] = true
		}
	}
	if len(present) == 0 {
		return DefaultQuality
	}
	for _, c := range dayQualityPriority {
		if present[c] {
			return c
		}
	}
	return DefaultQuality
}
