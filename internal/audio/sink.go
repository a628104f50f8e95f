// Package audio renders cue tones. Every sink returns from Play promptly and
// lets playback run asynchronously.
package audio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sitebeep/internal/core/model"
)

// Kind names a Sink implementation.
type Kind string

const (
	KindExtension Kind = "extension"
	KindSpeaker   Kind = "speaker"
	KindSystem    Kind = "system"
)

// Sink plays a single tone.
type Sink interface {
	Play(ctx context.Context, tone model.Tone) error
}

// New returns the sink for kind. sender is only used by KindExtension.
func New(kind Kind, sender EffectSender, logger zerolog.Logger) (Sink, error) {
	switch kind {
	case KindExtension, "":
		if sender == nil {
			return nil, fmt.Errorf("extension sink needs a message channel")
		}
		return NewExtensionSink(sender), nil
	case KindSpeaker:
		return NewSpeakerSink(), nil
	case KindSystem:
		return NewSystemSink(logger), nil
	default:
		return nil, fmt.Errorf("unknown audio sink %q", kind)
	}
}
