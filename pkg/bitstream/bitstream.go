// Package bitstream converts an edge driven digital channel into one bit per
// nominal bit period.
//
// The phase reference is restarted on every edge (hard synchronization), so
// the timing error between transmitter and receiver clocks never accumulates
// over more than one run of identical bits.
package bitstream

import (
	"context"
	"errors"

	"canscope/pkg/port"

	"github.com/womat/debug"
)

// ErrInvalidParam is returned for a zero bit period.
var ErrInvalidParam = errors.New("invalid samples per bit")

// Bit is one physical bit. Value true is recessive, false is dominant, after
// polarity normalization.
type Bit struct {
	Value  bool
	Sample uint64
}

// Extractor samples a channel in the centre of each bit period.
type Extractor struct {
	// SamplesPerBit is the nominal bit period in samples.
	SamplesPerBit uint64
	// Inverted swaps the dominant and recessive levels.
	Inverted bool
}

// New returns an extractor for the given rates (floor division).
func New(sampleRateHz, bitRateHz uint32, inverted bool) (*Extractor, error) {
	if bitRateHz == 0 || sampleRateHz/bitRateHz == 0 {
		return nil, ErrInvalidParam
	}
	return &Extractor{SamplesPerBit: uint64(sampleRateHz / bitRateHz), Inverted: inverted}, nil
}

// BitCount returns how many bit periods fit between two edges, rounded to the
// nearest integer.
func (e *Extractor) BitCount(start, nextEdge uint64) uint64 {
	if nextEdge <= start {
		return 0
	}
	return (nextEdge - start + e.SamplesPerBit/2) / e.SamplesPerBit
}

// level normalizes the channel level: true means recessive.
func (e *Extractor) level(ch port.Channel) bool {
	return ch.BitState() != e.Inverted
}

// Run walks the channel edge by edge and calls fn for every bit. It first
// skips a dominant level present at the start of the channel, so that the
// first dominant transition seen is a start of frame. Run returns nil when the
// channel is exhausted and ctx.Err() when cancelled; cancellation is checked
// between edges.
func (e *Extractor) Run(ctx context.Context, ch port.Channel, fn func(Bit)) error {
	if e.SamplesPerBit == 0 {
		return ErrInvalidParam
	}

	if !e.level(ch) {
		debug.DebugLog.Printf("channel starts dominant at sample %d, skip to next edge", ch.SampleNumber())
		if !ch.AdvanceToNextEdge() {
			return nil
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		value := e.level(ch)
		start := ch.SampleNumber()
		next, more := ch.SampleOfNextEdge()

		n := e.BitCount(start, next)
		for i := uint64(0); i < n; i++ {
			fn(Bit{Value: value, Sample: start + i*e.SamplesPerBit + e.SamplesPerBit/2})
		}

		if !more || !ch.AdvanceToNextEdge() {
			return nil
		}
	}
}
