package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"canscope/pkg/can"
)

// WriteCSV writes one row per field: the start time in seconds relative to
// the first sample, and the main value of the field.
func WriteCSV(w io.Writer, fields []can.Field, sampleRate uint32) error {
	if sampleRate == 0 {
		return ErrNoSampleRate
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Time [s]", "Value"}); err != nil {
		return err
	}
	for _, f := range fields {
		t := float64(f.Bounds().Start) / float64(sampleRate)
		if err := cw.Write([]string{strconv.FormatFloat(t, 'f', 9, 64), Value(f)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Value returns the main value of a field in hexadecimal.
func Value(f can.Field) string {
	switch v := f.(type) {
	case can.StandardIdentifier:
		return fmt.Sprintf("0x%03X", v.ID)
	case can.ExtendedIdentifier:
		return fmt.Sprintf("0x%08X", v.ID)
	case can.Control:
		return fmt.Sprintf("0x%X", v.DeclaredLength)
	case can.DataByte:
		return fmt.Sprintf("0x%02X", v.Value)
	case can.Crc:
		return fmt.Sprintf("0x%04X", v.Computed)
	case can.Ack:
		if v.Nacked {
			return "0x1"
		}
		return "0x0"
	case can.Intermission:
		return fmt.Sprintf("0x%X", v.StuffBitCount)
	case can.DecodeError:
		return v.Reason.String()
	default:
		return "0x0"
	}
}
