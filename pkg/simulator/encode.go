// Package simulator synthesizes CAN traffic: it encodes frames into stuffed
// bit sequences and renders pseudo-random frames into capture recordings.
package simulator

import (
	"canscope/pkg/crc15"
	"canscope/pkg/stuffing"
)

// Frame is the content of a frame to transmit.
type Frame struct {
	ID       uint32
	Extended bool
	Remote   bool
	// DLC is the data length code; values above 15 are limited to 15.
	DLC  uint8
	Data []byte
	// Nack leaves the ACK slot recessive.
	Nack bool
}

// Length returns the number of data bytes carried by the frame.
func (f Frame) Length() int {
	if f.Remote {
		return 0
	}
	if f.DLC > 8 {
		return 8
	}
	return int(f.DLC)
}

// Encoded is a frame as it appears on the bus, from start of frame to the
// end of intermission. false is dominant.
type Encoded struct {
	Bits []bool
	// StuffedLength is the length of the stuffed region (start of frame
	// through CRC sequence, stuff bits included).
	StuffedLength int
	// StuffPositions are the indexes of the stuff bits.
	StuffPositions []int
	CRC            uint16
}

// Encode builds the bit sequence of f.
func Encode(f Frame) Encoded {
	enc := stuffing.NewEncoder()
	var crc crc15.CRC

	put := func(bit bool) {
		crc = crc.Feed(bit)
		enc.Stuffed(bit)
	}
	putValue := func(v uint32, n int) {
		for i := n - 1; i >= 0; i-- {
			put(v&(1<<uint(i)) != 0)
		}
	}

	dlc := f.DLC
	if dlc > 15 {
		dlc = 15
	}

	put(false) // SOF
	if f.Extended {
		putValue(f.ID>>18, 11)
		put(true) // SRR
		put(true) // IDE
		putValue(f.ID, 18)
	} else {
		putValue(f.ID, 11)
	}
	put(f.Remote) // RTR
	put(false)    // IDE or R1
	put(false)    // R0
	putValue(uint32(dlc), 4)

	for i := 0; i < f.Length(); i++ {
		var b byte
		if i < len(f.Data) {
			b = f.Data[i]
		}
		putValue(uint32(b), 8)
	}

	sum := uint16(crc)
	putValue(uint32(sum), 15)
	stuffedLength := len(enc.Bits())

	enc.Raw(true)   // CRC delimiter
	enc.Raw(f.Nack) // ACK slot
	enc.Raw(true)   // ACK delimiter
	for i := 0; i < 7+3; i++ {
		enc.Raw(true) // EOF, intermission
	}

	return Encoded{
		Bits:           enc.Bits(),
		StuffedLength:  stuffedLength,
		StuffPositions: enc.Positions,
		CRC:            sum,
	}
}
