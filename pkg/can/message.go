package can

import (
	"fmt"
	"strings"
)

// Identifier limits.
const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
)

// Message is a complete frame assembled from its fields.
type Message struct {
	ID       uint32 `json:"id"`
	Extended bool   `json:"extended"`
	Remote   bool   `json:"remote"`
	// DLC is the declared data length code as transmitted.
	DLC       uint8  `json:"dlc"`
	Data      []byte `json:"data"`
	CRC       uint16 `json:"crc"`
	Acked     bool   `json:"acked"`
	StuffBits uint64 `json:"stuffBits"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	// Valid is false when the frame ended with a DecodeError.
	Valid bool   `json:"valid"`
	Error Reason `json:"error,omitempty"`
}

// String formats the message like candump: "123#ABCD", "1FFFFFFF#R".
func (m Message) String() string {
	var sb strings.Builder
	if m.Extended {
		fmt.Fprintf(&sb, "%08X#", m.ID)
	} else {
		fmt.Fprintf(&sb, "%03X#", m.ID)
	}
	if m.Remote {
		sb.WriteString("R")
	} else {
		fmt.Fprintf(&sb, "%X", m.Data)
	}
	if !m.Valid {
		fmt.Fprintf(&sb, " (%s)", m.Error)
	}
	return sb.String()
}

// Assembler is a Sink that groups the fields of each frame into a Message.
// Frames aborted before their identifier is known are dropped.
type Assembler struct {
	// OnMessage is called for every completed or aborted frame.
	OnMessage func(Message)

	cur     Message
	started bool
}

// AddField adds a field to the frame being assembled.
func (a *Assembler) AddField(f Field) {
	switch v := f.(type) {
	case StandardIdentifier:
		a.cur = Message{ID: uint32(v.ID), Remote: !v.IsData, Start: v.Start}
		a.started = true
	case ExtendedIdentifier:
		a.cur = Message{ID: v.ID, Extended: true, Remote: !v.IsData, Start: v.Start}
		a.started = true
	case Control:
		a.cur.DLC = v.DeclaredLength
	case DataByte:
		a.cur.Data = append(a.cur.Data, v.Value)
	case Crc:
		a.cur.CRC = v.Transmitted
	case Ack:
		a.cur.Acked = !v.Nacked
	case Intermission:
		a.cur.StuffBits = v.StuffBitCount
		a.cur.End = v.End
		a.cur.Valid = true
		a.flush()
	case DecodeError:
		a.cur.End = v.End
		a.cur.Error = v.Reason
		a.flush()
	}
}

// AddMarker ignores markers.
func (a *Assembler) AddMarker(Marker) {}

func (a *Assembler) flush() {
	if a.started && a.OnMessage != nil {
		a.OnMessage(a.cur)
	}
	a.cur = Message{}
	a.started = false
}
