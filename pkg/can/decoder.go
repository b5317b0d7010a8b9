// Package can decodes a CAN 2.0B bit stream into frame fields.
//
// Bits from the bit extractor go through the de-stuffer into a finite state
// machine that follows the frame structure: identifier, optional extended
// identifier, control, data, CRC, delimiters, ACK, end of frame and
// intermission. Any protocol violation switches to error recovery, which
// waits for eleven recessive bits (bus idle) before a new frame is accepted.
package can

import (
	"context"

	"canscope/pkg/bitstream"
	"canscope/pkg/port"
	"canscope/pkg/stuffing"

	"github.com/womat/debug"
)

// Decoder is a CAN 2.0B bit level decoder. It is not safe for concurrent use.
type Decoder struct {
	settings Settings
	spb      uint64
	sink     Sink
	st       state
	// last is the sample of the last bit entered.
	last uint64
}

// NewDecoder returns a decoder sending its results to sink.
func NewDecoder(s Settings, sink Sink) (*Decoder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{settings: s, spb: s.SamplesPerBit(), sink: sink, st: idleState()}, nil
}

// Decode extracts the bits of ch and decodes them until the channel is
// exhausted or ctx is cancelled. An exhausted channel flushes a pending
// error.
func (d *Decoder) Decode(ctx context.Context, ch port.Channel) error {
	x, err := bitstream.New(d.settings.SampleRate, d.settings.BitRate, d.settings.Inverted)
	if err != nil {
		return err
	}
	if err = x.Run(ctx, ch, d.EnterBit); err != nil {
		return err
	}
	d.Flush()
	return nil
}

// EnterBit feeds one physical bit. Inside the stuffed region stuff bits are
// removed and a sixth identical bit starts error recovery. Outside of it the
// run of identical bits is still counted, for bus idle detection.
func (d *Decoder) EnterBit(b bitstream.Bit) {
	d.last = b.Sample

	if !d.st.destuffing {
		d.st.stuff = d.st.stuff.Observe(b.Value)
		d.decodeFrameBit(b)
		return
	}

	var action stuffing.Action
	d.st.stuff, action = d.st.stuff.Feed(b.Value)

	switch action {
	case stuffing.Discard:
		d.mark(b, MarkStuffBit)
		d.st.stuffBits++
	case stuffing.Violation:
		d.mark(b, MarkStuffError)
		d.enterError(ReasonStuffing, b.Sample, b.Sample)
	default:
		d.decodeFrameBit(b)
	}
}

// decodeFrameBit dispatches a protocol bit on the current field.
func (d *Decoder) decodeFrameBit(b bitstream.Bit) {
	debug.TraceLog.Printf("%s[%d] sample %d: %v", d.st.field, d.st.index, b.Sample, b.Value)

	switch d.st.field {
	case stateIdle:
		d.idle(b)
	case stateIdentifier:
		d.identifier(b)
	case stateExtendedIdentifier:
		d.extendedIdentifier(b)
	case stateControl:
		d.control(b)
	case stateData:
		d.dataField(b)
	case stateCRC:
		d.crcField(b)
	case stateCRCDelimiter:
		d.crcDelimiter(b)
	case stateAck:
		d.ack(b)
	case stateEndOfFrame:
		d.endOfFrame(b)
	case stateIntermission:
		d.intermission(b)
	case stateError:
		d.waitForIdle(b)
	}
}

func (d *Decoder) mark(b bitstream.Bit, t MarkerType) {
	d.sink.AddMarker(Marker{Sample: b.Sample, Type: t})
}

// bitEnd returns the last sample of the bit period of b.
func (d *Decoder) bitEnd(b bitstream.Bit) uint64 {
	return b.Sample + d.spb/2
}

// span closes the current field at the end of bit b; the next field starts there.
func (d *Decoder) span(b bitstream.Bit) Span {
	s := Span{Start: d.st.fieldStart, End: d.bitEnd(b)}
	d.st.fieldStart = s.End
	return s
}

// next moves to the given field with the bit index reset.
func (d *Decoder) next(f fieldState) {
	d.st.field = f
	d.st.index = 0
}

func (d *Decoder) feedCRC(b bitstream.Bit) {
	d.st.crc = d.st.crc.Feed(b.Value)
}

func bitValue(b bitstream.Bit) uint32 {
	if b.Value {
		return 1
	}
	return 0
}

func (d *Decoder) idle(b bitstream.Bit) {
	if b.Value {
		d.mark(b, MarkIdle)
		return
	}

	// start of frame
	d.st = idleState()
	d.st.destuffing = true
	d.st.stuff = stuffing.Start(false)
	d.feedCRC(b)
	d.st.frameStart = b.Sample
	d.st.fieldStart = d.bitEnd(b)
	d.mark(b, MarkFrameStart)
	d.next(stateIdentifier)
}

// identifier handles the 11 identifier bits, RTR (or SRR) and IDE.
func (d *Decoder) identifier(b bitstream.Bit) {
	d.feedCRC(b)
	d.st.index++

	switch {
	case d.st.index <= identifierBits:
		d.mark(b, MarkBit)
		d.st.identifier = d.st.identifier<<1 | bitValue(b)
	case d.st.index == identifierBits+1:
		d.mark(b, levelMarker(b.Value))
		d.st.remote = b.Value
	default:
		d.mark(b, levelMarker(b.Value))
		if b.Value {
			d.next(stateExtendedIdentifier)
			return
		}
		d.sink.AddField(StandardIdentifier{
			Span:   d.span(b),
			ID:     uint16(d.st.identifier),
			IsData: !d.st.remote,
		})
		d.next(stateControl)
	}
}

// extendedIdentifier handles the 18 identifier extension bits, RTR and R1.
func (d *Decoder) extendedIdentifier(b bitstream.Bit) {
	d.feedCRC(b)
	d.st.index++

	switch {
	case d.st.index <= extendedIdentifierBits:
		d.mark(b, MarkBit)
		d.st.identifier = d.st.identifier<<1 | bitValue(b)
	case d.st.index == extendedIdentifierBits+1:
		d.mark(b, levelMarker(b.Value))
		d.st.remote = b.Value
	default:
		// R1 must be dominant
		if b.Value {
			d.mark(b, MarkFormError)
		} else {
			d.mark(b, MarkDominant)
		}
		d.sink.AddField(ExtendedIdentifier{
			Span:   d.span(b),
			ID:     d.st.identifier,
			IsData: !d.st.remote,
		})
		if b.Value {
			d.enterError(ReasonForm, b.Sample, b.Sample)
			return
		}
		d.next(stateControl)
	}
}

// control handles R0 and the data length code.
func (d *Decoder) control(b bitstream.Bit) {
	d.feedCRC(b)
	d.st.index++

	if d.st.index == 1 {
		// a recessive R0 is reported, decoding goes on
		if b.Value {
			debug.DebugLog.Printf("recessive reserved bit R0 at sample %d", b.Sample)
			d.mark(b, MarkFormError)
			d.st.reservedErr = true
			return
		}
		d.mark(b, MarkDominant)
		return
	}

	d.mark(b, MarkBit)
	d.st.dlc = d.st.dlc<<1 | uint8(bitValue(b))
	if d.st.index < 1+dlcBits {
		return
	}

	d.sink.AddField(Control{Span: d.span(b), DeclaredLength: d.st.dlc, ReservedError: d.st.reservedErr})
	d.st.length = d.st.dlc
	if d.st.length > maxDataLength {
		d.st.length = maxDataLength
	}
	d.st.computed = uint16(d.st.crc)

	if d.st.length == 0 || d.st.remote {
		d.next(stateCRC)
		return
	}
	d.next(stateData)
}

// dataField accumulates the data bytes, most significant bit first.
func (d *Decoder) dataField(b bitstream.Bit) {
	d.feedCRC(b)
	d.mark(b, MarkBit)

	i := d.st.index / 8
	d.st.data[i] = d.st.data[i]<<1 | uint8(bitValue(b))
	d.st.index++

	if d.st.index%8 == 0 {
		d.sink.AddField(DataByte{Span: d.span(b), Value: d.st.data[i], Index: uint8(i)})
	}
	if d.st.index == 8*int(d.st.length) {
		d.st.computed = uint16(d.st.crc)
		d.next(stateCRC)
	}
}

// crcField receives the CRC sequence; the residue is zero for a correct frame.
func (d *Decoder) crcField(b bitstream.Bit) {
	d.feedCRC(b)
	d.mark(b, MarkBit)
	d.st.transmitted = d.st.transmitted<<1 | uint16(bitValue(b))
	d.st.index++

	if d.st.index < crcBits {
		return
	}

	residue := uint16(d.st.crc)
	field := Crc{Span: d.span(b), Transmitted: d.st.transmitted, Computed: d.st.computed, Residue: residue}
	d.sink.AddField(field)

	if residue != 0 {
		d.enterError(ReasonCRC, b.Sample, field.End)
		return
	}
	d.next(stateCRCDelimiter)
}

// crcDelimiter ends the stuffed region.
func (d *Decoder) crcDelimiter(b bitstream.Bit) {
	d.st.destuffing = false

	if !b.Value {
		d.mark(b, MarkFormError)
		d.enterError(ReasonForm, b.Sample, b.Sample)
		return
	}

	d.mark(b, MarkRecessive)
	d.st.fieldStart = d.bitEnd(b)
	d.next(stateAck)
}

// ack handles the ACK slot and the ACK delimiter. A recessive slot is
// reported but is not an error.
func (d *Decoder) ack(b bitstream.Bit) {
	d.st.index++

	if d.st.index == 1 {
		d.st.nacked = b.Value
		if b.Value {
			d.mark(b, MarkNack)
		} else {
			d.mark(b, MarkDominant)
		}
		return
	}

	d.sink.AddField(Ack{Span: d.span(b), Nacked: d.st.nacked, DelimiterError: !b.Value})
	if !b.Value {
		d.mark(b, MarkFormError)
		d.enterError(ReasonForm, b.Sample, b.Sample)
		return
	}

	d.mark(b, MarkRecessive)
	d.next(stateEndOfFrame)
}

func (d *Decoder) endOfFrame(b bitstream.Bit) {
	if !b.Value {
		d.mark(b, MarkFormError)
		d.enterError(ReasonForm, b.Sample, b.Sample)
		return
	}

	d.mark(b, MarkRecessive)
	d.st.index++
	if d.st.index == endOfFrameBits {
		d.sink.AddField(Eof{Span: d.span(b)})
		d.next(stateIntermission)
	}
}

func (d *Decoder) intermission(b bitstream.Bit) {
	if !b.Value {
		d.mark(b, MarkFormError)
		d.enterError(ReasonForm, b.Sample, b.Sample)
		return
	}

	d.mark(b, MarkRecessive)
	d.st.index++
	if d.st.index == intermissionBits {
		d.sink.AddField(Intermission{
			Span:            d.span(b),
			DurationSamples: b.Sample - d.st.frameStart,
			StuffBitCount:   d.st.stuffBits,
		})
		d.next(stateIdle)
	}
}
