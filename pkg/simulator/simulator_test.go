package simulator

import (
	"errors"
	"os"
	"testing"

	"canscope/pkg/can"
	"canscope/pkg/crc15"
	"canscope/pkg/stuffing"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

var settings = can.Settings{BitRate: 500000, SampleRate: 4000000}

func TestEncode_StandardFrame(t *testing.T) {
	f := Frame{ID: 0x123, DLC: 2, Data: []byte{0xAB, 0xCD}}
	e := Encode(f)

	protocol, removed, violation := stuffing.Destuff(e.Bits[:e.StuffedLength])
	if violation != -1 {
		t.Fatalf("stuff violation at %d", violation)
	}
	if removed != len(e.StuffPositions) {
		t.Fatalf("removed=%d want %d", removed, len(e.StuffPositions))
	}
	// SOF, 11 ID, RTR, IDE, R0, 4 DLC, 16 data, 15 CRC
	if len(protocol) != 1+11+3+4+16+15 {
		t.Fatalf("protocol bits=%d", len(protocol))
	}
	if crc15.CRC(0).FeedBits(protocol) != 0 {
		t.Fatal("crc residue not zero")
	}
	if e.CRC != crc15.Checksum(protocol[:len(protocol)-15]) {
		t.Fatalf("crc=%#04x", e.CRC)
	}
	// CRC delimiter, ACK slot, ACK delimiter, EOF, intermission
	if len(e.Bits) != e.StuffedLength+13 {
		t.Fatalf("bits=%d stuffed=%d", len(e.Bits), e.StuffedLength)
	}
	if e.Bits[e.StuffedLength+1] {
		t.Fatal("ACK slot not dominant")
	}
}

func TestEncode_Nack(t *testing.T) {
	e := Encode(Frame{ID: 1, Nack: true})
	for i, b := range e.Bits[e.StuffedLength:] {
		if !b {
			t.Fatalf("tail bit %d dominant", i)
		}
	}
}

func TestEncode_ExtendedRemote(t *testing.T) {
	e := Encode(Frame{ID: 0x1FFFFFFF, Extended: true, Remote: true, DLC: 4, Data: []byte{1, 2, 3, 4}})
	protocol, _, violation := stuffing.Destuff(e.Bits[:e.StuffedLength])
	if violation != -1 {
		t.Fatalf("stuff violation at %d", violation)
	}
	// SOF, 11 ID, SRR, IDE, 18 ID, RTR, R1, R0, 4 DLC, 15 CRC
	if len(protocol) != 1+11+2+18+3+4+15 {
		t.Fatalf("protocol bits=%d", len(protocol))
	}
	if !protocol[12] || !protocol[13] || !protocol[32] {
		t.Fatal("SRR, IDE or RTR not recessive")
	}
}

func TestNewGenerator(t *testing.T) {
	if _, err := NewGenerator(Options{Settings: can.Settings{BitRate: 0}}); !errors.Is(err, can.ErrInvalidBitRate) {
		t.Errorf("NewGenerator() err=%v", err)
	}
	if _, err := NewGenerator(Options{Settings: settings, Ack: AckMode(7)}); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("NewGenerator() err=%v", err)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a, _ := NewGenerator(Options{Settings: settings, Seed: 99})
	b, _ := NewGenerator(Options{Settings: settings, Seed: 99})
	c, _ := NewGenerator(Options{Settings: settings, Seed: 100})

	var differs bool
	for i := 0; i < 50; i++ {
		fa, fb, fc := a.Next(), b.Next(), c.Next()
		if fa.ID != fb.ID || fa.DLC != fb.DLC || string(fa.Data) != string(fb.Data) || fa.Extended != fb.Extended {
			t.Fatalf("frame %d: %+v != %+v", i, fa, fb)
		}
		if fa.ID != fc.ID {
			differs = true
		}
	}
	if !differs {
		t.Fatal("different seeds produced the same identifiers")
	}
}

func TestGenerator_FrameTypes(t *testing.T) {
	tests := []struct {
		types            FrameTypes
		extended, remote bool
	}{
		{OnlyStandardData, false, false},
		{OnlyExtendedData, true, false},
		{OnlyStandardRemote, false, true},
		{OnlyExtendedRemote, true, true},
	}
	for _, tt := range tests {
		g, err := NewGenerator(Options{Settings: settings, Seed: 5, Types: tt.types, Ack: AckRecessive})
		if err != nil {
			t.Fatalf("NewGenerator() err=%v", err)
		}
		for i := 0; i < 20; i++ {
			f := g.Next()
			if f.Extended != tt.extended || f.Remote != tt.remote || !f.Nack {
				t.Fatalf("types %d: frame %+v", tt.types, f)
			}
			if f.DLC > 8 {
				t.Fatalf("dlc %d", f.DLC)
			}
			if tt.remote && f.Data != nil {
				t.Fatalf("remote frame with data %v", f.Data)
			}
			if !tt.extended && f.ID > can.MaxStandardID {
				t.Fatalf("standard id %#x", f.ID)
			}
		}
	}
}

func TestGenerator_RecordingWithErrors(t *testing.T) {
	g, _ := NewGenerator(Options{Settings: settings, Seed: 3, Validity: OneRandomErrorBit})
	rec, frames := g.Recording(20)
	if len(frames) != 20 {
		t.Fatalf("frames=%d", len(frames))
	}
	spb := settings.SamplesPerBit()
	var last uint64
	for i, f := range frames {
		if f.Toggled < 1 || f.Toggled >= Encode(f.Frame).StuffedLength {
			t.Fatalf("frame %d toggled %d outside the stuffed region", i, f.Toggled)
		}
		if f.Start < last+idleBits*spb {
			t.Fatalf("frame %d starts at %d, previous ended at %d", i, f.Start, last)
		}
		last = f.Start + uint64(len(Encode(f.Frame).Bits))*spb
	}
	if rec.Length != last+idleBits*spb {
		t.Fatalf("length=%d want %d", rec.Length, last+idleBits*spb)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
}

func TestParseOptions(t *testing.T) {
	if got, err := ParseFrameTypes("ext-remote"); err != nil || got != OnlyExtendedRemote {
		t.Errorf("ParseFrameTypes()=%v,%v", got, err)
	}
	if _, err := ParseFrameTypes("fd"); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("ParseFrameTypes() err=%v", err)
	}
	if got, err := ParseAckMode("random"); err != nil || got != AckRandom {
		t.Errorf("ParseAckMode()=%v,%v", got, err)
	}
	if _, err := ParseAckMode("maybe"); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("ParseAckMode() err=%v", err)
	}
}
