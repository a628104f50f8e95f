package beeper

import (
	"context"
	"time"

	"sitebeep/internal/core/model"
)

// BeepOption configures BeepIfActive.
type BeepOption func(*beepOptions)

type beepOptions struct {
	delay time.Duration
}

// WithDelay defers the evaluation by delay. A newer delayed request, StopLoop
// or any disable supersedes a pending one.
func WithDelay(delay time.Duration) BeepOption {
	return func(options *beepOptions) {
		options.delay = delay
	}
}

// StartLoop begins periodic cue evaluation. Calling it while the loop is
// running is a no-op.
func (beeper *Beeper) StartLoop() {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	if beeper.loopRunning {
		return
	}
	beeper.loopRunning = true
	beeper.loopGen++
	beeper.scheduleTickLocked(beeper.loopGen)
	beeper.log.Debug().Msg("loop started")
	beeper.emitStateLocked()
}

// StopLoop cancels the pending tick and any pending delayed cue.
func (beeper *Beeper) StopLoop() {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	beeper.stopLoopLocked()
}

// LoopRunning reports whether the periodic loop is armed.
func (beeper *Beeper) LoopRunning() bool {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	return beeper.loopRunning
}

func (beeper *Beeper) stopLoopLocked() {
	beeper.cancelSettleLocked()
	if !beeper.loopRunning {
		return
	}
	beeper.loopRunning = false
	beeper.loopGen++
	if beeper.loopTimer != nil {
		beeper.loopTimer.Stop()
		beeper.loopTimer = nil
	}
	beeper.log.Debug().Msg("loop stopped")
	beeper.emitStateLocked()
}

func (beeper *Beeper) scheduleTickLocked(gen uint64) {
	delay := beeper.config.Interval.Random(beeper.rng)
	beeper.loopTimer = beeper.clock.AfterFunc(delay, func() {
		beeper.tick(gen)
	})
}

// tick runs one loop iteration. The running flag and generation are checked
// after the wait and again after the cue, since StopLoop can land at either point.
func (beeper *Beeper) tick(gen uint64) {
	beeper.mu.Lock()
	if !beeper.loopRunning || gen != beeper.loopGen {
		beeper.mu.Unlock()
		return
	}
	beeper.loopTimer = nil
	beeper.mu.Unlock()

	beeper.BeepIfActive(context.Background())

	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	if beeper.loopRunning && gen == beeper.loopGen {
		beeper.scheduleTickLocked(gen)
	}
}

// BeepIfActive plays the periodic cue if the Beeper is effectively active.
// It reports whether a cue was delivered; delayed requests report false.
func (beeper *Beeper) BeepIfActive(ctx context.Context, opts ...BeepOption) bool {
	var options beepOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.delay > 0 {
		beeper.mu.Lock()
		beeper.armSettleLocked(options.delay)
		beeper.mu.Unlock()
		return false
	}

	beeper.mu.Lock()
	eligible := beeper.effectiveActiveLocked()
	tone := beeper.config.Cue
	tone.Volume = beeper.volume
	tone = tone.Jittered(beeper.rng)
	beeper.log.Debug().
		Bool("enabled", beeper.active).
		Bool("muted", beeper.muted).
		Str("suppression", beeper.suppression.Kind.String()).
		Msg("beep if active")
	beeper.mu.Unlock()

	if !eligible || beeper.systemLocked() {
		return false
	}
	return beeper.deliver(ctx, tone)
}

// PreBeepIfActive plays the two-tone attention pattern under the same gating
// as BeepIfActive. Tones play in order on a separate goroutine, separated by
// the preceding tone's duration. It reports whether the pattern was started.
func (beeper *Beeper) PreBeepIfActive(ctx context.Context) bool {
	beeper.mu.Lock()
	eligible := beeper.effectiveActiveLocked()
	tones := make([]model.Tone, len(beeper.config.PreBeep))
	for i, tone := range beeper.config.PreBeep {
		tone.Volume = beeper.volume
		tones[i] = tone.Jittered(beeper.rng)
	}
	beeper.mu.Unlock()

	if !eligible || beeper.systemLocked() {
		return false
	}

	beeper.log.Debug().Msg("pre-beep")
	go beeper.playPattern(ctx, tones)
	return true
}

func (beeper *Beeper) playPattern(ctx context.Context, tones []model.Tone) {
	for i, tone := range tones {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-beeper.clock.After(tones[i-1].Duration):
			}
		}
		if !beeper.deliver(ctx, tone) {
			return
		}
	}
}

// deliver hands a tone to the sink. Sink failures are logged and swallowed;
// the next natural tick is the retry.
func (beeper *Beeper) deliver(ctx context.Context, tone model.Tone) bool {
	if err := beeper.sink.Play(ctx, tone); err != nil {
		beeper.log.Error().Err(err).Float64("frequency", tone.Frequency).Msg("cue delivery failed")
		beeper.emit(Event{
			Type:    EventCueError,
			Tone:    tone,
			Message: err.Error(),
			At:      beeper.clock.Now(),
		})
		return false
	}
	beeper.emit(Event{
		Type: EventCue,
		Tone: tone,
		At:   beeper.clock.Now(),
	})
	return true
}

func (beeper *Beeper) armSettleLocked(delay time.Duration) {
	beeper.cancelSettleLocked()
	gen := beeper.settleGen
	beeper.settle = beeper.clock.AfterFunc(delay, func() {
		beeper.mu.Lock()
		if gen != beeper.settleGen || beeper.settle == nil {
			beeper.mu.Unlock()
			return
		}
		beeper.settle = nil
		beeper.mu.Unlock()
		beeper.BeepIfActive(context.Background())
	})
}

func (beeper *Beeper) cancelSettleLocked() {
	if beeper.settle != nil {
		beeper.settle.Stop()
		beeper.settle = nil
	}
	beeper.settleGen++
}
