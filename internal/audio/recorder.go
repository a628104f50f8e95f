package audio

import (
	"context"
	"sync"

	"sitebeep/internal/core/model"
)

// Recorder is a Sink that keeps every tone it is given.
type Recorder struct {
	mu     sync.Mutex
	tones  []model.Tone
	err    error
	played chan model.Tone
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{played: make(chan model.Tone, 64)}
}

func (recorder *Recorder) Play(_ context.Context, tone model.Tone) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.err != nil {
		return recorder.err
	}
	recorder.tones = append(recorder.tones, tone)
	select {
	case recorder.played <- tone:
	default:
	}
	return nil
}

// Played delivers each recorded tone as it arrives.
func (recorder *Recorder) Played() <-chan model.Tone {
	return recorder.played
}

// Tones returns every recorded tone in order.
func (recorder *Recorder) Tones() []model.Tone {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return append([]model.Tone(nil), recorder.tones...)
}

// FailWith makes Play return err until called again with nil.
func (recorder *Recorder) FailWith(err error) {
	recorder.mu.Lock()
	recorder.err = err
	recorder.mu.Unlock()
}
