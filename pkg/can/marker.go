package can

// MarkerType classifies a physical bit for display.
type MarkerType int

const (
	// MarkIdle is a recessive bit while the bus is idle.
	MarkIdle MarkerType = iota
	// MarkFrameStart is the start of frame bit.
	MarkFrameStart
	// MarkBit is a data carrying bit.
	MarkBit
	// MarkDominant is a fixed or flag bit read dominant.
	MarkDominant
	// MarkRecessive is a fixed or flag bit read recessive.
	MarkRecessive
	// MarkStuffBit is a removed stuff bit.
	MarkStuffBit
	// MarkStuffError is the sixth identical bit of a run.
	MarkStuffError
	// MarkFormError is a fixed form bit with the wrong level.
	MarkFormError
	// MarkNack is a recessive ACK slot.
	MarkNack
	// MarkError is a bit received during error recovery.
	MarkError
)

func (m MarkerType) String() string {
	switch m {
	case MarkIdle:
		return "idle"
	case MarkFrameStart:
		return "start"
	case MarkBit:
		return "bit"
	case MarkDominant:
		return "dominant"
	case MarkRecessive:
		return "recessive"
	case MarkStuffBit:
		return "stuff"
	case MarkStuffError:
		return "stuff error"
	case MarkFormError:
		return "form error"
	case MarkNack:
		return "nack"
	case MarkError:
		return "error"
	default:
		return "?"
	}
}

// Marker annotates the bit sampled at Sample.
type Marker struct {
	Sample uint64
	Type   MarkerType
}

// levelMarker returns the marker of a flag bit.
func levelMarker(recessive bool) MarkerType {
	if recessive {
		return MarkRecessive
	}
	return MarkDominant
}
