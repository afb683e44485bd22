package timeline

import (
	"errors"
	"fmt"
)

// FitPlan describes how to transform a synthesized clip so its duration
// equals the slot exactly. Steps apply in order: tempo adjustment, trim,
// trailing silence pad.
type FitPlan struct {
	// Tempo is the playback speed factor (1 = unchanged, 2 = twice as fast).
	Tempo float64
	// TrimTo truncates the tempo-adjusted clip to this many seconds;
	// zero means no trim.
	TrimTo float64
	// PadSilence appends this many seconds of trailing silence.
	PadSilence float64
	// ImperfectFit marks plans that had to truncate speech because the
	// clip exceeded what the compression cap allows.
	ImperfectFit bool
}

// OutputDuration returns the duration the plan produces for the given clip.
func (p FitPlan) OutputDuration(clipDuration float64) float64 {
	d := clipDuration
	if p.Tempo > 0 {
		d = clipDuration / p.Tempo
	}
	if p.TrimTo > 0 && d > p.TrimTo {
		d = p.TrimTo
	}
	return d + p.PadSilence
}

// PlanFit computes the transformation that makes a clip of clipDuration
// occupy slotDuration exactly.
//
// Policy: clips longer than the slot are time-compressed by the smallest
// factor that reaches the slot, capped at maxCompression. Beyond the cap the
// clip is truncated at the slot boundary and flagged as an imperfect fit.
// Clips shorter than the slot are never stretched, only padded with trailing
// silence. Within tolerance the clip passes through with at most a hair of
// padding.
func PlanFit(clipDuration, slotDuration, maxCompression, tolerance float64) (FitPlan, error) {
	if slotDuration <= 0 {
		return FitPlan{}, fmt.Errorf("plan fit: slot duration %v must be positive", slotDuration)
	}
	if clipDuration < 0 {
		return FitPlan{}, errors.New("plan fit: clip duration must not be negative")
	}
	if maxCompression < 1 {
		maxCompression = 1
	}
	if tolerance < 0 {
		tolerance = 0
	}

	plan := FitPlan{Tempo: 1}

	switch {
	case clipDuration == 0:
		// Nothing was synthesized; the whole slot becomes silence.
		plan.PadSilence = slotDuration
	case clipDuration > slotDuration+tolerance:
		needed := clipDuration / slotDuration
		if needed <= maxCompression {
			plan.Tempo = needed
		} else {
			plan.Tempo = maxCompression
			plan.TrimTo = slotDuration
			plan.ImperfectFit = true
		}
	case clipDuration < slotDuration:
		plan.PadSilence = slotDuration - clipDuration
	}
	return plan, nil
}
