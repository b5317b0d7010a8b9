// Package crc15 implements the 15 bit cyclic redundancy check of CAN 2.0.
package crc15

const (
	// Polynomial is the CAN generator x^15+x^14+x^10+x^8+x^7+x^4+x^3+1 without its leading term.
	Polynomial = 0x4599
	// Mask keeps the accumulator at 15 bits.
	Mask = 0x7FFF
)

// CRC is the accumulator of the CRC-15 engine. The zero value is the initial state.
type CRC uint16

// Feed returns the accumulator after entering one bit (true = recessive = 1).
func (c CRC) Feed(bit bool) CRC {
	bit14 := c&(1<<14) != 0
	c = (c << 1) & Mask
	if bit != bit14 {
		c ^= Polynomial
	}
	return c
}

// FeedBits enters the bits in order.
func (c CRC) FeedBits(bits []bool) CRC {
	for _, b := range bits {
		c = c.Feed(b)
	}
	return c
}

// FeedValue enters the n low order bits of v, most significant bit first.
func (c CRC) FeedValue(v uint32, n int) CRC {
	for i := n - 1; i >= 0; i-- {
		c = c.Feed(v&(1<<uint(i)) != 0)
	}
	return c
}

// Checksum computes the CRC-15 of a bit sequence.
func Checksum(bits []bool) uint16 {
	return uint16(CRC(0).FeedBits(bits))
}
