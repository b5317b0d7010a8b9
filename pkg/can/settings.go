package can

import (
	"errors"
	"fmt"
)

const (
	// MaxBitRate is the highest supported CAN bit rate in bit/s.
	MaxBitRate = 1000 * 1000
	// DefaultBitRate is used when no bit rate is configured.
	DefaultBitRate = 125 * 1000
	// oversampling is the minimum number of samples per bit.
	oversampling = 5
)

var (
	ErrInvalidBitRate   = errors.New("invalid bit rate")
	ErrSampleRateTooLow = errors.New("sample rate too low")
)

// Settings are the decoder parameters.
type Settings struct {
	// BitRate is the CAN bit rate in bit/s.
	BitRate uint32 `yaml:"bitrate"`
	// SampleRate is the sample rate of the capture device in Hz.
	SampleRate uint32 `yaml:"samplerate"`
	// Inverted selects a high dominant level.
	Inverted bool `yaml:"inverted"`
}

// MinimumSampleRate returns the lowest sample rate the bit rate can be decoded with.
func (s Settings) MinimumSampleRate() uint64 {
	return uint64(s.BitRate) * oversampling
}

// SamplesPerBit returns the nominal bit period in samples.
func (s Settings) SamplesPerBit() uint64 {
	if s.BitRate == 0 {
		return 0
	}
	return uint64(s.SampleRate / s.BitRate)
}

// Validate checks the bit rate range and the minimum sample rate.
func (s Settings) Validate() error {
	if s.BitRate < 1 || s.BitRate > MaxBitRate {
		return fmt.Errorf("%w: %d bit/s (1..%d)", ErrInvalidBitRate, s.BitRate, MaxBitRate)
	}
	if uint64(s.SampleRate) < s.MinimumSampleRate() {
		return fmt.Errorf("%w: %d Hz, at least %d Hz needed for %d bit/s",
			ErrSampleRateTooLow, s.SampleRate, s.MinimumSampleRate(), s.BitRate)
	}
	return nil
}
