package raspberry

import (
	"canscope/pkg/port"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

// Line is a line requested from a GPIO character device.
type Line struct {
	chip  *gpiod.Chip
	line  *gpiod.Line
	queue *edgeQueue
}

func openLine(chip string, gpio int, b bias) (Source, error) {
	c, err := gpiod.NewChip(chip)
	if err != nil {
		return nil, err
	}

	l := &Line{chip: c, queue: newEdgeQueue()}

	// handler runs in the gpiod event goroutine
	handler := func(evt gpiod.LineEvent) {
		e := port.Event{Timestamp: evt.Timestamp, Type: port.FallingEdge}
		if evt.Type == gpiod.LineEventRisingEdge {
			e.Type = port.RisingEdge
		}
		if !l.queue.push(e) {
			debug.ErrorLog.Printf("edge buffer overrun on line %d (%d edges lost)", gpio, l.queue.overrun)
		}
	}

	opts := []gpiod.LineReqOption{gpiod.WithEventHandler(handler), gpiod.WithBothEdges, gpiod.AsInput}
	switch b {
	case biasPullUp:
		opts = append(opts, gpiod.WithPullUp)
	case biasPullDown:
		opts = append(opts, gpiod.WithPullDown)
	}

	if l.line, err = c.RequestLine(gpio, opts...); err != nil {
		_ = c.Close()
		return nil, err
	}

	debug.DebugLog.Printf("gpiod line %s:%d requested", chip, gpio)
	return l, nil
}

// Events returns the edge events of the line.
func (l *Line) Events() <-chan port.Event {
	return l.queue.C
}

// Level returns the current line level.
func (l *Line) Level() (bool, error) {
	v, err := l.line.Value()
	return v == 1, err
}

// Close releases the line and the chip. It waits for a running edge
// handler to return, so it must not be called from the handler.
func (l *Line) Close() error {
	err := l.line.Close()
	l.queue.close()
	if e := l.chip.Close(); err == nil {
		err = e
	}
	return err
}
