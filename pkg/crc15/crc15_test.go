package crc15

import (
	"testing"

	"github.com/sigurn/crc16"
)

// CRC-15/CAN expressed as a 16 bit CRC: the generator multiplied by x.
var can16Table = crc16.MakeTable(crc16.Params{
	Poly:   Polynomial << 1,
	Init:   0x0000,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x0000,
	Name:   "CRC-15/CAN-x2",
})

func bytesToBits(b []byte) []bool {
	bits := make([]bool, 0, len(b)*8)
	for _, v := range b {
		for i := 7; i >= 0; i-- {
			bits = append(bits, v&(1<<uint(i)) != 0)
		}
	}
	return bits
}

func TestChecksum_CheckValue(t *testing.T) {
	// catalogue check value of CRC-15/CAN over "123456789"
	if got := Checksum(bytesToBits([]byte("123456789"))); got != 0x059E {
		t.Fatalf("Checksum(123456789)=%#04x want 0x059e", got)
	}
}

func TestChecksum_MatchesTableDriven(t *testing.T) {
	tests := [][]byte{
		{0x00},
		{0xFF},
		{0x12, 0x34},
		{0xAB, 0xCD, 0xEF, 0x01, 0x23},
		[]byte("CAN 2.0B"),
	}
	for _, in := range tests {
		want := crc16.Checksum(in, can16Table) >> 1
		if got := Checksum(bytesToBits(in)); got != want {
			t.Errorf("Checksum(% x)=%#04x want %#04x", in, got, want)
		}
	}
}

func TestFeed_ResidueIsZero(t *testing.T) {
	msg := bytesToBits([]byte{0x24, 0x6A, 0xBC, 0xD0})
	c := CRC(0).FeedBits(msg)
	if got := c.FeedValue(uint32(c), 15); got != 0 {
		t.Fatalf("residue=%#04x want 0", got)
	}
}

func TestFeed_SingleBitFlipDetected(t *testing.T) {
	msg := bytesToBits([]byte{0x24, 0x6A, 0xBC, 0xD0, 0x55})
	crc := CRC(0).FeedBits(msg)
	for i := range msg {
		flipped := append([]bool(nil), msg...)
		flipped[i] = !flipped[i]
		if got := CRC(0).FeedBits(flipped).FeedValue(uint32(crc), 15); got == 0 {
			t.Errorf("flip of bit %d not detected", i)
		}
	}
}

func TestFeedValue_MSBFirst(t *testing.T) {
	want := CRC(0).FeedBits([]bool{true, false, true, true})
	if got := CRC(0).FeedValue(0xB, 4); got != want {
		t.Fatalf("FeedValue(0xB,4)=%#04x want %#04x", got, want)
	}
}
