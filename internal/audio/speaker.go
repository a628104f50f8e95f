package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/speaker"
	"golang.org/x/sync/singleflight"

	"sitebeep/internal/core/model"
)

const (
	speakerSampleRate = beep.SampleRate(44100)
	speakerBuffer     = 100 * time.Millisecond
)

// SpeakerSink synthesises tones on the local output device. The device is
// opened on first use; concurrent first callers share one in-flight open and
// a failed open is retried by the next cue.
type SpeakerSink struct {
	sampleRate beep.SampleRate
	open       func(beep.SampleRate, int) error
	play       func(...beep.Streamer)

	flight singleflight.Group
	mu     sync.Mutex
	ready  bool
	opens  int
}

// NewSpeakerSink returns a sink playing through the default output device.
func NewSpeakerSink() *SpeakerSink {
	return newSpeakerSink(speakerSampleRate, speaker.Init, speaker.Play)
}

func newSpeakerSink(sampleRate beep.SampleRate, open func(beep.SampleRate, int) error, play func(...beep.Streamer)) *SpeakerSink {
	return &SpeakerSink{sampleRate: sampleRate, open: open, play: play}
}

func (sink *SpeakerSink) Play(ctx context.Context, tone model.Tone) error {
	if err := sink.ensureOpen(ctx); err != nil {
		return err
	}
	streamer, err := toneStreamer(sink.sampleRate, tone)
	if err != nil {
		return err
	}
	sink.play(streamer)
	return nil
}

func (sink *SpeakerSink) ensureOpen(ctx context.Context) error {
	if sink.isReady() {
		return nil
	}

	result := sink.flight.DoChan("speaker", func() (any, error) {
		if sink.isReady() {
			return nil, nil
		}
		if err := sink.open(sink.sampleRate, sink.sampleRate.N(speakerBuffer)); err != nil {
			return nil, fmt.Errorf("open speaker: %w", err)
		}
		sink.mu.Lock()
		sink.ready = true
		sink.opens++
		sink.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-result:
		return res.Err
	}
}

func (sink *SpeakerSink) isReady() bool {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.ready
}

func toneStreamer(sampleRate beep.SampleRate, tone model.Tone) (beep.Streamer, error) {
	var (
		oscillator beep.Streamer
		err        error
	)
	switch tone.Waveform {
	case model.WaveTriangle:
		oscillator, err = generators.TriangleTone(sampleRate, tone.Frequency)
	default:
		oscillator, err = generators.SquareTone(sampleRate, tone.Frequency)
	}
	if err != nil {
		return nil, fmt.Errorf("%s tone at %.1fHz: %w", tone.Waveform, tone.Frequency, err)
	}

	return &effects.Volume{
		Streamer: beep.Take(sampleRate.N(tone.Duration), oscillator),
		Base:     2,
		Volume:   gainExponent(tone.Volume),
	}, nil
}

// gainExponent maps volume 1..100 to a base-2 exponent so that the linear
// gain is volume/100.
func gainExponent(volume int) float64 {
	if volume <= 0 {
		volume = 1
	}
	if volume > model.MaxVolume {
		volume = model.MaxVolume
	}
	return math.Log2(float64(volume) / float64(model.MaxVolume))
}
