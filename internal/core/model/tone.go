package model

import (
	"math/rand"
	"time"
)

// Waveform names the oscillator shape of a tone.
type Waveform string

const (
	WaveSquare   Waveform = "square"
	WaveTriangle Waveform = "triangle"
)

// Valid reports whether the waveform is one the sinks can render.
func (wave Waveform) Valid() bool {
	return wave == WaveSquare || wave == WaveTriangle
}

// Tone describes one cue sent to an audio sink.
type Tone struct {
	Frequency  float64
	Duration   time.Duration
	Volume     int
	Waveform   Waveform
	Randomness float64
}

// DefaultCue is the periodic reminder tone.
func DefaultCue() Tone {
	return Tone{
		Frequency:  90,
		Duration:   time.Second,
		Waveform:   WaveSquare,
		Randomness: 0.1,
	}
}

// DefaultPreBeep is the two-tone attention pattern played when suppression is lifted.
func DefaultPreBeep() []Tone {
	return []Tone{
		{Frequency: 340, Duration: 250 * time.Millisecond, Waveform: WaveTriangle},
		{Frequency: 220, Duration: 250 * time.Millisecond, Waveform: WaveTriangle},
	}
}

// Jittered perturbs the frequency by Randomness*(u-0.5) with u uniform in [0,1).
// The returned tone has Randomness cleared since it has been applied.
func (tone Tone) Jittered(rng *rand.Rand) Tone {
	if tone.Randomness > 0 && rng != nil {
		tone.Frequency *= 1 + tone.Randomness*(rng.Float64()-0.5)
	}
	tone.Randomness = 0
	return tone
}

// Range defines a duration range with random sampling.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Random returns a duration drawn uniformly from [Min, Max).
func (value Range) Random(rng *rand.Rand) time.Duration {
	if value.Max <= value.Min {
		return value.Min
	}
	delta := value.Max - value.Min
	return value.Min + time.Duration(rng.Int63n(int64(delta)))
}
