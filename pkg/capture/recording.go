// Package capture holds sampled CAN channels: finite recordings loaded from
// files and live streams fed by edge events.
package capture

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoSampleRate is returned for a recording without sample rate.
	ErrNoSampleRate = errors.New("recording without sample rate")
	// ErrUnsortedEdges is returned when edges are not strictly increasing.
	ErrUnsortedEdges = errors.New("edges not strictly increasing")
)

// Recording is a finite digital channel described by its initial level and
// the sample numbers of its transitions. It implements port.Channel.
type Recording struct {
	// SampleRate is the sample rate of the capture device in Hz.
	SampleRate uint32 `yaml:"samplerate"`
	// Initial is the line level at sample 0 (true = high).
	Initial bool `yaml:"initial"`
	// Edges holds the sample numbers of all transitions.
	Edges []uint64 `yaml:"edges"`
	// Length is the number of samples of the capture.
	Length uint64 `yaml:"length"`

	// next is the index of the next edge.
	next int
}

// NewRecording returns a recording positioned on sample 0.
func NewRecording(sampleRate uint32, initial bool, edges []uint64, length uint64) *Recording {
	return &Recording{SampleRate: sampleRate, Initial: initial, Edges: edges, Length: length}
}

// Validate checks the recording is usable as a channel.
func (r *Recording) Validate() error {
	if r.SampleRate == 0 {
		return ErrNoSampleRate
	}
	if !sort.SliceIsSorted(r.Edges, func(i, j int) bool { return r.Edges[i] < r.Edges[j] }) {
		return ErrUnsortedEdges
	}
	for i := 1; i < len(r.Edges); i++ {
		if r.Edges[i] == r.Edges[i-1] {
			return fmt.Errorf("edge %d at sample %d: %w", i, r.Edges[i], ErrUnsortedEdges)
		}
	}
	if n := len(r.Edges); n > 0 && r.Length <= r.Edges[n-1] {
		r.Length = r.Edges[n-1] + 1
	}
	return nil
}

// Rewind positions the recording on sample 0.
func (r *Recording) Rewind() {
	r.next = 0
}

// BitState returns the line level at the current position.
func (r *Recording) BitState() bool {
	return r.Initial != (r.next%2 == 1)
}

// SampleNumber returns the current position.
func (r *Recording) SampleNumber() uint64 {
	if r.next == 0 {
		return 0
	}
	return r.Edges[r.next-1]
}

// SampleOfNextEdge returns the sample number of the next transition, or the
// end of the recording with ok false.
func (r *Recording) SampleOfNextEdge() (uint64, bool) {
	if r.next < len(r.Edges) {
		return r.Edges[r.next], true
	}
	return r.Length, false
}

// AdvanceToNextEdge moves onto the next transition.
func (r *Recording) AdvanceToNextEdge() bool {
	if r.next >= len(r.Edges) {
		return false
	}
	r.next++
	return true
}

// Builder creates a recording from levels held for a number of samples.
type Builder struct {
	rec   *Recording
	level bool
	now   uint64
}

// NewBuilder starts a recording at the given level.
func NewBuilder(sampleRate uint32, initial bool) *Builder {
	return &Builder{rec: NewRecording(sampleRate, initial, nil, 0), level: initial}
}

// Hold drives the line to level for n samples, adding an edge if needed.
func (b *Builder) Hold(level bool, n uint64) {
	if n == 0 {
		return
	}
	if level != b.level {
		b.rec.Edges = append(b.rec.Edges, b.now)
		b.level = level
	}
	b.now += n
}

// Now returns the current sample number.
func (b *Builder) Now() uint64 {
	return b.now
}

// Recording returns the built recording.
func (b *Builder) Recording() *Recording {
	b.rec.Length = b.now
	b.rec.next = 0
	return b.rec
}
