package bitstream

import (
	"context"
	"errors"
	"os"
	"testing"

	"canscope/pkg/capture"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func collect(t *testing.T, e *Extractor, r *capture.Recording) []Bit {
	t.Helper()
	var bits []Bit
	if err := e.Run(context.Background(), r, func(b Bit) { bits = append(bits, b) }); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	return bits
}

func TestNew(t *testing.T) {
	if _, err := New(1000000, 0, false); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("New() zero bit rate err=%v", err)
	}
	if _, err := New(100, 125000, false); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("New() sample rate below bit rate err=%v", err)
	}
	e, err := New(1000000, 125000, true)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if e.SamplesPerBit != 8 || !e.Inverted {
		t.Fatalf("New()=%+v", e)
	}
}

func TestExtractor_BitCount(t *testing.T) {
	e := &Extractor{SamplesPerBit: 10}
	tests := []struct {
		start, next, want uint64
	}{
		{0, 10, 1},
		{0, 14, 1},
		{0, 15, 2},
		{100, 104, 0},
		{100, 105, 1},
		{100, 100, 0},
		{100, 90, 0},
		{0, 57, 6},
	}
	for _, tt := range tests {
		if got := e.BitCount(tt.start, tt.next); got != tt.want {
			t.Errorf("BitCount(%d, %d)=%d want %d", tt.start, tt.next, got, tt.want)
		}
	}
}

func TestExtractor_Run(t *testing.T) {
	// recessive 3 bits, dominant 2 bits, recessive 1 bit, dominant 1 bit
	r := capture.NewRecording(1000, true, []uint64{30, 50, 60}, 70)
	bits := collect(t, &Extractor{SamplesPerBit: 10}, r)

	want := []Bit{
		{true, 5}, {true, 15}, {true, 25},
		{false, 35}, {false, 45},
		{true, 55},
		{false, 65},
	}
	if len(bits) != len(want) {
		t.Fatalf("bits=%v want %v", bits, want)
	}
	for i := range want {
		if bits[i] != want[i] {
			t.Errorf("bit %d=%+v want %+v", i, bits[i], want[i])
		}
	}
}

func TestExtractor_HardResync(t *testing.T) {
	// the transmitter runs 20% slow: edges at 12 samples per bit,
	// nominal bit period 10 samples
	r := capture.NewRecording(1000, true, []uint64{12, 36, 48}, 60)
	bits := collect(t, &Extractor{SamplesPerBit: 10}, r)

	// 12 → 1 bit, 24 → 2 bits, 12 → 1 bit, 12 → 1 bit
	want := []bool{true, false, false, true, false}
	if len(bits) != len(want) {
		t.Fatalf("bits=%v want %v", bits, want)
	}
	for i := range want {
		if bits[i].Value != want[i] {
			t.Errorf("bit %d=%v want %v", i, bits[i].Value, want[i])
		}
	}
	// every run is sampled relative to its own edge
	if bits[1].Sample != 17 || bits[2].Sample != 27 || bits[3].Sample != 41 {
		t.Errorf("samples=%v", bits)
	}
}

func TestExtractor_Inverted(t *testing.T) {
	r := capture.NewRecording(1000, false, []uint64{20}, 40)
	bits := collect(t, &Extractor{SamplesPerBit: 10, Inverted: true}, r)

	want := []bool{true, true, false, false}
	if len(bits) != len(want) {
		t.Fatalf("bits=%v want %v", bits, want)
	}
	for i := range want {
		if bits[i].Value != want[i] {
			t.Errorf("bit %d=%v want %v", i, bits[i].Value, want[i])
		}
	}
}

func TestExtractor_SkipsInitialDominant(t *testing.T) {
	r := capture.NewRecording(1000, false, []uint64{25, 45}, 55)
	bits := collect(t, &Extractor{SamplesPerBit: 10}, r)

	if len(bits) != 3 || !bits[0].Value || bits[0].Sample != 30 || bits[2].Value {
		t.Fatalf("bits=%v", bits)
	}
}

func TestExtractor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := capture.NewRecording(1000, true, []uint64{10}, 20)

	err := (&Extractor{SamplesPerBit: 10}).Run(ctx, r, func(Bit) { t.Fatal("bit after cancel") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() err=%v want context.Canceled", err)
	}
}

func TestExtractor_ZeroPeriod(t *testing.T) {
	r := capture.NewRecording(1000, true, nil, 20)
	if err := (&Extractor{}).Run(context.Background(), r, func(Bit) {}); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("Run() err=%v", err)
	}
}
