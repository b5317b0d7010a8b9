// Package stuffing tracks CAN bit stuffing: after five consecutive bits of
// the same level the transmitter inserts one bit of the opposite level.
package stuffing

// MaxRun is the longest legal run of identical bits inside the stuffed region.
const MaxRun = 5

// Action tells what to do with a bit entered in a Tracker.
type Action int

const (
	// Forward means the bit is a protocol bit.
	Forward Action = iota
	// Discard means the bit is a stuff bit and has to be dropped.
	Discard
	// Violation means the bit is the sixth identical bit in a row.
	Violation
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Discard:
		return "stuff bit"
	case Violation:
		return "stuff error"
	default:
		return "unknown"
	}
}

// Tracker counts consecutive bits of the same polarity.
type Tracker struct {
	// Run is the number of consecutive bits equal to Last.
	Run int
	// Last is the polarity of the current run.
	Last bool
}

// Start returns a tracker whose run consists of the given bit.
func Start(bit bool) Tracker {
	return Tracker{Run: 1, Last: bit}
}

// Feed classifies a received bit and returns the updated tracker.
func (t Tracker) Feed(bit bool) (Tracker, Action) {
	switch {
	case t.Run == MaxRun && bit != t.Last:
		return Tracker{Run: 1, Last: bit}, Discard
	case t.Run == MaxRun:
		return Tracker{Run: t.Run + 1, Last: bit}, Violation
	case bit == t.Last:
		return Tracker{Run: t.Run + 1, Last: bit}, Forward
	default:
		return Tracker{Run: 1, Last: bit}, Forward
	}
}

// Observe updates the run without any stuffing rule, as done while waiting
// for bus idle.
func (t Tracker) Observe(bit bool) Tracker {
	if bit != t.Last {
		return Tracker{Run: 1, Last: bit}
	}
	t.Run++
	return t
}

// Encoder inserts stuff bits into a bit sequence.
type Encoder struct {
	run  int
	last bool
	out  []bool
	// Positions holds the index of every inserted stuff bit.
	Positions []int
}

// NewEncoder returns an encoder in the state preceding a start of frame
// (the bus was recessive).
func NewEncoder() *Encoder {
	return &Encoder{run: 1, last: true}
}

// Stuffed appends a bit of the stuffed region, followed by a stuff bit when
// it completes a run of five.
func (e *Encoder) Stuffed(bit bool) {
	e.out = append(e.out, bit)
	if bit != e.last {
		e.last = bit
		e.run = 1
		return
	}
	e.run++
	if e.run == MaxRun {
		e.last = !e.last
		e.Positions = append(e.Positions, len(e.out))
		e.out = append(e.out, e.last)
		e.run = 1
	}
}

// Raw appends a bit outside the stuffed region.
func (e *Encoder) Raw(bit bool) {
	e.out = append(e.out, bit)
}

// Bits returns the encoded sequence.
func (e *Encoder) Bits() []bool {
	return e.out
}

// Stuff returns bits with stuff bits inserted, starting from a recessive bus.
func Stuff(bits []bool) []bool {
	e := NewEncoder()
	for _, b := range bits {
		e.Stuffed(b)
	}
	return e.Bits()
}

// Destuff removes stuff bits from a sequence starting at a start of frame.
// It returns the protocol bits, the number of removed bits and the index of
// the first violating bit, or -1.
func Destuff(bits []bool) (out []bool, removed int, violation int) {
	violation = -1
	if len(bits) == 0 {
		return nil, 0, violation
	}
	t := Start(bits[0])
	out = append(out, bits[0])
	for i, b := range bits[1:] {
		var a Action
		t, a = t.Feed(b)
		switch a {
		case Forward:
			out = append(out, b)
		case Discard:
			removed++
		case Violation:
			return out, removed, i + 1
		}
	}
	return out, removed, violation
}
