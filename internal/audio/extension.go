package audio

import (
	"context"
	"fmt"

	"sitebeep/internal/core/model"
)

// PlaySoundType is the message type the extension's offscreen document handles.
const PlaySoundType = "playSound"

// PlaySound is the audio effect delivered to the extension. Duration is in ms.
type PlaySound struct {
	Type      string  `json:"type"`
	Volume    int     `json:"volume"`
	Frequency float64 `json:"frequency"`
	Duration  int64   `json:"duration"`
	WaveType  string  `json:"waveType"`
}

// EffectSender delivers a fire-and-forget message to the extension.
type EffectSender interface {
	Send(message any) error
}

// ExtensionSink forwards tones to the extension, which renders them in a
// hidden playback document.
type ExtensionSink struct {
	sender EffectSender
}

// NewExtensionSink returns a sink writing PlaySound effects to sender.
func NewExtensionSink(sender EffectSender) *ExtensionSink {
	return &ExtensionSink{sender: sender}
}

func (sink *ExtensionSink) Play(ctx context.Context, tone model.Tone) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	effect := PlaySound{
		Type:      PlaySoundType,
		Volume:    tone.Volume,
		Frequency: tone.Frequency,
		Duration:  tone.Duration.Milliseconds(),
		WaveType:  string(tone.Waveform),
	}
	if err := sink.sender.Send(effect); err != nil {
		return fmt.Errorf("send playSound: %w", err)
	}
	return nil
}
