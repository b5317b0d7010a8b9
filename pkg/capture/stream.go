package capture

import (
	"sync"
	"time"

	"canscope/pkg/port"

	"github.com/womat/debug"
)

// Stream is an unbounded channel fed by live edge events. Reading the next
// edge blocks until the edge is received, the event source is closed or the
// stream is closed.
type Stream struct {
	rate uint32
	// tail is the number of samples reported after the last edge when the
	// source ends.
	tail uint64

	rx   <-chan port.Event
	quit chan struct{}
	once sync.Once

	t0      time.Duration
	started bool

	level   bool
	sample  uint64
	pending *port.Event
	ended   bool
}

// NewStream returns a stream on the events in rx. initial is the line level
// before the first event.
func NewStream(rx <-chan port.Event, sampleRate uint32, initial bool, tail uint64) *Stream {
	return &Stream{
		rate:  sampleRate,
		tail:  tail,
		rx:    rx,
		quit:  make(chan struct{}),
		level: initial,
	}
}

// Close unblocks a pending read; the stream then reports its end.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.quit) })
	return nil
}

// toSample converts an event timestamp into a sample number relative to the
// first event.
func (s *Stream) toSample(t time.Duration) uint64 {
	if !s.started {
		s.t0 = t
		s.started = true
	}
	d := t - s.t0
	if d < 0 {
		d = 0
	}
	sec := uint64(d / time.Second)
	ns := uint64(d % time.Second)
	return sec*uint64(s.rate) + ns*uint64(s.rate)/uint64(time.Second)
}

// BitState returns the current line level.
func (s *Stream) BitState() bool {
	return s.level
}

// SampleNumber returns the sample number of the current edge.
func (s *Stream) SampleNumber() uint64 {
	return s.sample
}

func (s *Stream) receive() {
	if s.pending != nil || s.ended {
		return
	}
	select {
	case evt, open := <-s.rx:
		if !open {
			debug.DebugLog.Print("edge source closed")
			s.ended = true
			return
		}
		s.pending = &evt
	case <-s.quit:
		s.ended = true
	}
}

// SampleOfNextEdge blocks until the next edge is known.
func (s *Stream) SampleOfNextEdge() (uint64, bool) {
	s.receive()
	if s.pending == nil {
		return s.sample + s.tail, false
	}
	next := s.toSample(s.pending.Timestamp)
	if next < s.sample {
		next = s.sample
	}
	return next, true
}

// AdvanceToNextEdge moves onto the next edge.
func (s *Stream) AdvanceToNextEdge() bool {
	next, ok := s.SampleOfNextEdge()
	if !ok {
		return false
	}
	s.level = s.pending.Level()
	s.sample = next
	s.pending = nil
	return true
}
