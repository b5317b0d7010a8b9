// Package raspberry watches a GPIO input line and reports every edge with a
// timestamp, as raw material for a sampled channel.
//
// Two drivers are available: "gpiod" uses the GPIO character device and
// receives kernel timestamps; "gpiomem" maps /dev/gpiomem and timestamps the
// edges when the interrupt is serviced.
package raspberry

import (
	"errors"
	"sync"

	"canscope/pkg/port"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrNotSupported = errors.New("gpio driver not supported on this platform")
)

// Driver names.
const (
	DriverGpiod   = "gpiod"
	DriverGpiomem = "gpiomem"
)

// eventBuffer is the number of edges buffered between the edge handler and
// the reader.
const eventBuffer = 4096

// Source is an input line delivering edge events.
type Source interface {
	// Events returns the edge events; the channel is closed by Close.
	Events() <-chan port.Event
	// Level returns the current line level.
	Level() (bool, error)
	Close() error
}

type bias int

const (
	biasNone bias = iota
	biasPullUp
	biasPullDown
)

func parseTerminator(terminator string) (bias, error) {
	switch terminator {
	case "pullup":
		return biasPullUp, nil
	case "pulldown":
		return biasPullDown, nil
	case "none", "":
		return biasNone, nil
	default:
		return biasNone, ErrInvalidParam
	}
}

// Open requests gpio on the given driver. chip is only used by gpiod.
func Open(driver, chip string, gpio int, terminator string) (Source, error) {
	b, err := parseTerminator(terminator)
	if err != nil {
		return nil, err
	}
	if gpio < 0 {
		return nil, ErrInvalidParam
	}

	switch driver {
	case DriverGpiod:
		return openLine(chip, gpio, b)
	case DriverGpiomem:
		return openPin(gpio, b)
	default:
		return nil, ErrInvalidParam
	}
}

// edgeQueue hands events from the edge handler to the reader without blocking
// the handler. push and close may run on different goroutines.
type edgeQueue struct {
	C       chan port.Event
	overrun uint64
	closed  bool
	mu      sync.Mutex
}

func newEdgeQueue() *edgeQueue {
	return &edgeQueue{C: make(chan port.Event, eventBuffer)}
}

// push queues evt and reports false if the buffer was full. Events pushed
// after close are dropped.
func (q *edgeQueue) push(evt port.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return true
	}
	select {
	case q.C <- evt:
		return true
	default:
		q.overrun++
		return false
	}
}

// close closes C once.
func (q *edgeQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.C)
	}
}
