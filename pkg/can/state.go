package can

import (
	"canscope/pkg/crc15"
	"canscope/pkg/stuffing"
)

// fieldState is the position of the decoder in the frame structure.
type fieldState int

const (
	stateIdle fieldState = iota
	stateIdentifier
	stateExtendedIdentifier
	stateControl
	stateData
	stateCRC
	stateCRCDelimiter
	stateAck
	stateEndOfFrame
	stateIntermission
	stateError
)

func (s fieldState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateIdentifier:
		return "identifier"
	case stateExtendedIdentifier:
		return "extended identifier"
	case stateControl:
		return "control"
	case stateData:
		return "data"
	case stateCRC:
		return "crc"
	case stateCRCDelimiter:
		return "crc delimiter"
	case stateAck:
		return "ack"
	case stateEndOfFrame:
		return "end of frame"
	case stateIntermission:
		return "intermission"
	case stateError:
		return "error"
	default:
		return "?"
	}
}

// Field lengths in bits.
const (
	identifierBits         = 11
	extendedIdentifierBits = 18
	dlcBits                = 4
	crcBits                = 15
	endOfFrameBits         = 7
	intermissionBits       = 3
	// idleBits is the run of recessive bits that ends error recovery.
	idleBits = 11
	// maxDataLength is the largest payload of a classical CAN frame.
	maxDataLength = 8
)

// state is the complete mutable decoding context.
type state struct {
	field fieldState
	// index is the position of the bit within the current field.
	index int
	// stuff tracks the run of identical bits.
	stuff stuffing.Tracker
	// destuffing is set while inside the stuffed region.
	destuffing bool
	crc        crc15.CRC

	identifier  uint32
	remote      bool
	dlc         uint8
	length      uint8
	reservedErr bool
	data        [maxDataLength]byte
	computed    uint16
	transmitted uint16
	nacked      bool
	stuffBits   uint64

	// frameStart is the sample of the start of frame bit.
	frameStart uint64
	// fieldStart is the first sample of the field being decoded.
	fieldStart uint64

	reason  Reason
	errorAt uint64
}

// idleState is the state before any frame: bus recessive, no destuffing.
func idleState() state {
	return state{field: stateIdle, stuff: stuffing.Start(true)}
}
