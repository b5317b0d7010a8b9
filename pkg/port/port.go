// Package port holds the definition of a sampled digital input line.
package port

import "time"

// EventType indicates the type of change to the line level.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high transition.
	RisingEdge
	// FallingEdge indicates a high to low transition.
	FallingEdge
)

// Event is a single edge seen on the line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

// Level returns the line level after the edge.
func (e Event) Level() bool {
	return e.Type == RisingEdge
}

// Channel is a sampled digital channel that is walked edge by edge.
//
// BitState and SampleNumber describe the current position. SampleOfNextEdge
// returns the sample number of the following transition; ok is false when the
// channel has no further edge, in which case the returned sample is the last
// sample of the channel. AdvanceToNextEdge moves the position onto that edge
// and returns false once the channel is exhausted.
type Channel interface {
	BitState() bool
	SampleNumber() uint64
	SampleOfNextEdge() (sample uint64, ok bool)
	AdvanceToNextEdge() bool
}
