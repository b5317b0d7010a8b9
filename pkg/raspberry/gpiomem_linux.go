package raspberry

import (
	"sync"
	"time"

	"canscope/pkg/port"

	"github.com/warthog618/gpio"
	"github.com/womat/debug"
)

// Pin is a line watched through the memory mapped GPIO registers.
type Pin struct {
	pin   *gpio.Pin
	start time.Time
	queue *edgeQueue
	// level is the last reported level, used to classify the edge.
	level bool
	mu    sync.Mutex
}

func openPin(p int, b bias) (Source, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	pin := &Pin{pin: gpio.NewPin(p), start: time.Now(), queue: newEdgeQueue()}
	pin.pin.Input()
	switch b {
	case biasPullUp:
		pin.pin.PullUp()
	case biasPullDown:
		pin.pin.PullDown()
	default:
		pin.pin.PullNone()
	}
	pin.level = bool(pin.pin.Read())

	if err := pin.pin.Watch(gpio.EdgeBoth, pin.handler); err != nil {
		_ = gpio.Close()
		return nil, err
	}

	debug.DebugLog.Printf("gpiomem pin %d watched", p)
	return pin, nil
}

func (p *Pin) handler(g *gpio.Pin) {
	t := time.Since(p.start)

	p.mu.Lock()
	defer p.mu.Unlock()

	// a missed edge shows up as an unchanged level
	level := bool(g.Read())
	if level == p.level {
		level = !level
	}
	p.level = level

	e := port.Event{Timestamp: t, Type: port.FallingEdge}
	if level {
		e.Type = port.RisingEdge
	}
	if !p.queue.push(e) {
		debug.ErrorLog.Printf("edge buffer overrun on pin %d (%d edges lost)", g.Pin(), p.queue.overrun)
	}
}

// Events returns the edge events of the pin.
func (p *Pin) Events() <-chan port.Event {
	return p.queue.C
}

// Level returns the current line level.
func (p *Pin) Level() (bool, error) {
	return bool(p.pin.Read()), nil
}

// Close removes the watch and unmaps the GPIO memory.
func (p *Pin) Close() error {
	p.pin.Unwatch()
	p.queue.close()
	return gpio.Close()
}
