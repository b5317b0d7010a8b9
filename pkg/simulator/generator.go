package simulator

import (
	"errors"
	"fmt"

	"canscope/pkg/can"
	"canscope/pkg/capture"

	"github.com/womat/debug"
)

// FrameTypes selects the generated frame formats.
type FrameTypes int

const (
	AllFrameTypes FrameTypes = iota
	OnlyStandardData
	OnlyExtendedData
	OnlyStandardRemote
	OnlyExtendedRemote
)

// AckMode selects the generated ACK slot level.
type AckMode int

const (
	AckDominant AckMode = iota
	AckRecessive
	AckRandom
)

// Validity selects whether frames are corrupted.
type Validity int

const (
	ValidFrames Validity = iota
	// OneRandomErrorBit toggles one bit of the stuffed region of every frame.
	OneRandomErrorBit
)

var frameTypeNames = map[string]FrameTypes{
	"all":        AllFrameTypes,
	"std-data":   OnlyStandardData,
	"ext-data":   OnlyExtendedData,
	"std-remote": OnlyStandardRemote,
	"ext-remote": OnlyExtendedRemote,
}

var ackModeNames = map[string]AckMode{
	"dominant":  AckDominant,
	"recessive": AckRecessive,
	"random":    AckRandom,
}

// ParseFrameTypes returns the frame type selection named s.
func ParseFrameTypes(s string) (FrameTypes, error) {
	if t, ok := frameTypeNames[s]; ok {
		return t, nil
	}
	return AllFrameTypes, fmt.Errorf("%w: frame types %q", ErrInvalidParam, s)
}

// ParseAckMode returns the ACK slot mode named s.
func ParseAckMode(s string) (AckMode, error) {
	if a, ok := ackModeNames[s]; ok {
		return a, nil
	}
	return AckDominant, fmt.Errorf("%w: ack mode %q", ErrInvalidParam, s)
}

// idleBits is the recessive gap before every frame.
const idleBits = 11

var ErrInvalidParam = errors.New("invalid parameters")

// Options configure a Generator.
type Options struct {
	Settings can.Settings
	Seed     uint32
	Types    FrameTypes
	Ack      AckMode
	Validity Validity
}

// Generated describes one frame of a generated recording.
type Generated struct {
	Frame Frame
	// Start is the sample number of the start of frame bit.
	Start uint64
	// Toggled is the index of the corrupted bit, or -1.
	Toggled int
}

// Generator produces pseudo-random frames. The sequence only depends on the seed.
type Generator struct {
	opts Options
	seed uint32
}

// NewGenerator returns a generator for opts.
func NewGenerator(opts Options) (*Generator, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Types < AllFrameTypes || opts.Types > OnlyExtendedRemote ||
		opts.Ack < AckDominant || opts.Ack > AckRandom {
		return nil, ErrInvalidParam
	}
	return &Generator{opts: opts, seed: opts.Seed}, nil
}

// random is a linear congruential generator; only its high half is used
// since the low bits have short periods.
func (g *Generator) random() uint32 {
	g.seed = 8253729*g.seed + 2396403
	return g.seed >> 16
}

func (g *Generator) coin() bool {
	return g.random()&1 != 0
}

// Next returns the next random frame.
func (g *Generator) Next() Frame {
	var f Frame
	switch g.opts.Types {
	case AllFrameTypes:
		f.Extended = g.coin()
		f.Remote = g.coin()
	case OnlyExtendedData:
		f.Extended = true
	case OnlyStandardRemote:
		f.Remote = true
	case OnlyExtendedRemote:
		f.Extended = true
		f.Remote = true
	}

	f.ID = g.random()<<16 | g.random()
	if f.Extended {
		f.ID &= can.MaxExtendedID
	} else {
		f.ID &= can.MaxStandardID
	}
	f.DLC = uint8(g.random() % 9)

	if !f.Remote {
		f.Data = make([]byte, f.DLC)
		for i := range f.Data {
			f.Data[i] = uint8(g.random())
		}
	}

	switch g.opts.Ack {
	case AckRecessive:
		f.Nack = true
	case AckRandom:
		f.Nack = g.coin()
	}
	return f
}

// Render appends an encoded frame to b, preceded by the idle gap. toggle is
// the index of a bit to invert, or -1.
func Render(b *capture.Builder, s can.Settings, e Encoded, toggle int) (start uint64) {
	spb := s.SamplesPerBit()
	line := func(recessive bool) bool { return recessive != s.Inverted }

	b.Hold(line(true), idleBits*spb)
	start = b.Now()
	for i, bit := range e.Bits {
		if i == toggle {
			bit = !bit
		}
		b.Hold(line(bit), spb)
	}
	return start
}

// Recording generates n frames and returns the capture with the frame list.
func (g *Generator) Recording(n int) (*capture.Recording, []Generated) {
	s := g.opts.Settings
	b := capture.NewBuilder(s.SampleRate, !s.Inverted)
	out := make([]Generated, 0, n)

	for i := 0; i < n; i++ {
		f := g.Next()
		e := Encode(f)

		toggle := -1
		if g.opts.Validity == OneRandomErrorBit {
			// inside the stuffed region, never the start of frame bit
			toggle = 1 + int(g.random()%uint32(e.StuffedLength-1))
		}

		start := Render(b, s, e, toggle)
		out = append(out, Generated{Frame: f, Start: start, Toggled: toggle})
	}
	// trailing idle so the last intermission is complete
	b.Hold(!s.Inverted, idleBits*s.SamplesPerBit())

	debug.DebugLog.Printf("generated %d frames, %d samples", n, b.Now())
	return b.Recording(), out
}
