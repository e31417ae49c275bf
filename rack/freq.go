package rack

import (
	"math"
	"time"
)

// Freq defines the type of a sample rate.
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
)

// DefaultSampleRate is the rate racks run at unless told otherwise.
const DefaultSampleRate = 48 * KHz

// SampleTime returns the time between two consecutive frames in seconds.
func (f Freq) SampleTime() float32 {
	if f <= 0 {
		panic("sample rate must be positive")
	}

	return float32(1.0 / f)
}

// Frame converts a time since the start of the run to the index of the frame
// being processed at that time.
func (f Freq) Frame(d time.Duration) uint64 {
	if d < 0 {
		panic("negative duration")
	}

	return uint64(math.Floor(d.Seconds() * float64(f)))
}

// Frames returns the number of frames needed to cover the given duration,
// rounding up.
func (f Freq) Frames(d time.Duration) uint64 {
	if d < 0 {
		panic("negative duration")
	}

	return uint64(math.Ceil(d.Seconds()*float64(f) - 1e-9))
}

// Duration returns the time covered by n frames.
func (f Freq) Duration(n uint64) time.Duration {
	if f <= 0 {
		panic("sample rate must be positive")
	}

	return time.Duration(float64(n) / float64(f) * float64(time.Second))
}
