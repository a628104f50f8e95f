package audio

import (
	"context"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"sitebeep/internal/core/model"
)

// SystemSink uses the platform beep. Waveform and volume are not controllable.
type SystemSink struct {
	beep func(freq float64, duration int) error
	log  zerolog.Logger
}

// NewSystemSink returns a sink backed by the system beep.
func NewSystemSink(logger zerolog.Logger) *SystemSink {
	return &SystemSink{beep: beeep.Beep, log: logger}
}

func (sink *SystemSink) Play(ctx context.Context, tone model.Tone) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	go func() {
		if err := sink.beep(tone.Frequency, int(tone.Duration.Milliseconds())); err != nil {
			sink.log.Error().Err(err).Msg("system beep failed")
		}
	}()
	return nil
}
