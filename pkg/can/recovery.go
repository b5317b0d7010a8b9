package can

import (
	"canscope/pkg/bitstream"

	"github.com/womat/debug"
)

// enterError abandons the current frame. at is the sample of the offending
// bit, start the first sample of the DecodeError field.
func (d *Decoder) enterError(r Reason, at, start uint64) {
	debug.DebugLog.Printf("%s in %s at sample %d", r, d.st.field, at)

	d.st.destuffing = false
	d.st.reason = r
	d.st.errorAt = at
	d.st.fieldStart = start
	d.next(stateError)
}

// waitForIdle waits for bus idle: eleven consecutive recessive raw bits.
func (d *Decoder) waitForIdle(b bitstream.Bit) {
	d.mark(b, MarkError)

	if !b.Value || d.st.stuff.Run < idleBits {
		return
	}

	d.sink.AddField(DecodeError{Span: d.span(b), Reason: d.st.reason, At: d.st.errorAt})
	debug.DebugLog.Printf("bus idle at sample %d, %s recovered", b.Sample, d.st.reason)
	d.next(stateIdle)
}

// Flush ends the input. An error still waiting for bus idle is emitted as a
// DecodeError ending with the last bit, and the decoder goes idle. Any other
// incomplete frame is dropped without a field.
func (d *Decoder) Flush() {
	if d.st.field != stateError {
		d.st = idleState()
		return
	}

	d.sink.AddField(DecodeError{
		Span:   Span{Start: d.st.fieldStart, End: d.last + d.spb/2},
		Reason: d.st.reason,
		At:     d.st.errorAt,
	})
	debug.DebugLog.Printf("input ended during %s recovery at sample %d", d.st.reason, d.last)
	d.st = idleState()
}
