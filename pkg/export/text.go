// Package export renders decoded CAN fields as text, CSV and PDF reports.
package export

import (
	"fmt"
	"strings"

	"canscope/pkg/can"
)

// Text returns the display text of a field. Bubble text is the short label
// shown above the waveform; tabular text lists only identifiers, data,
// CRC errors and the frame summary, indented below the identifier. The CRC
// shown is the one computed over the received bits.
func Text(f can.Field, bubble bool, s can.Settings) string {
	var sb strings.Builder
	indent := func() {
		if !bubble {
			sb.WriteString("  ")
		}
	}

	switch v := f.(type) {
	case can.StandardIdentifier:
		fmt.Fprintf(&sb, "Std %s idf: 0x%03X\n", frameType(v.IsData), v.ID)
	case can.ExtendedIdentifier:
		fmt.Fprintf(&sb, "Ext %s idf: 0x%08X\n", frameType(v.IsData), v.ID)
	case can.Control:
		if bubble {
			fmt.Fprintf(&sb, "Ctrl: %d\n", v.DeclaredLength)
		}
	case can.DataByte:
		indent()
		fmt.Fprintf(&sb, "D%d: 0x%02X\n", v.Index, v.Value)
	case can.Crc:
		switch {
		case !v.Valid():
			indent()
			fmt.Fprintf(&sb, "CRC: 0x%04X (error)\n", v.Computed)
		case bubble:
			fmt.Fprintf(&sb, "CRC: 0x%04X\n", v.Computed)
		}
	case can.Ack:
		if bubble {
			if v.Nacked {
				sb.WriteString("NAK\n")
			} else {
				sb.WriteString("ACK\n")
			}
		}
	case can.Eof:
		if bubble {
			sb.WriteString("EOF\n")
		}
	case can.Intermission:
		if bubble {
			sb.WriteString("IFS\n")
			break
		}
		bits, us := FrameLength(v.DurationSamples, s)
		fmt.Fprintf(&sb, "  Length: %d bits (%d µs)\n", bits, us)
		fmt.Fprintf(&sb, "  %d stuff bit%s\n", v.StuffBitCount, plural(v.StuffBitCount))
	default:
		sb.WriteString("Error\n")
	}
	return sb.String()
}

// FrameLength converts a frame duration in samples to bits, rounded to the
// nearest bit, and to microseconds.
func FrameLength(samples uint64, s can.Settings) (bits, us uint64) {
	if spb := s.SamplesPerBit(); spb > 0 {
		bits = (samples + spb/2) / spb
	}
	if s.SampleRate > 0 {
		us = samples * 1000000 / uint64(s.SampleRate)
	}
	return bits, us
}

func frameType(isData bool) string {
	if isData {
		return "Data"
	}
	return "Remote"
}

func plural(n uint64) string {
	if n > 1 {
		return "s"
	}
	return ""
}
