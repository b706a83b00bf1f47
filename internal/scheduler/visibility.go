package scheduler

import "github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"

// Decision is the output of the visibility state machine.
type Decision struct {
	// Show is true when scan results should be surfaced to the user.
	Show bool

	// Placeholder is true when scanning is paused and the presentation
	// should render a neutral badge instead of scores.
	Placeholder bool
}

// VisibilityInputs are the facts the visibility state machine decides on.
// All fields are plain values; Decide never consults external state.
type VisibilityInputs struct {
	// HasResult is true once at least one scan has completed.
	HasResult bool

	// TopScore is the highest score of the last completed scan.
	// Accepted in [0,1] or percentage form.
	TopScore float64

	// Threshold is the surfacing threshold, in [0,1] or percentage form.
	Threshold float64

	// ForceShow is true when the user explicitly asked to see results.
	ForceShow bool

	// OverlayClosed is true when the user dismissed the overlay this
	// session.
	OverlayClosed bool

	// Expanded is true when preferences default to the expanded
	// presentation.
	Expanded bool

	// Paused is true when scanning is paused by preference.
	Paused bool
}

// Decide computes the visibility decision. It is a pure function: identical
// inputs always produce the identical decision, so callers can compare
// against the previous decision and skip presentation work when nothing
// changed.
//
// The rules, in order of precedence:
//   - A user dismissal (OverlayClosed) suppresses everything except an
//     explicit ForceShow.
//   - Paused scanning renders a placeholder; ForceShow still surfaces the
//     last result underneath it.
//   - Otherwise results show when the top score crosses the threshold, when
//     the user forced them, or when preferences default to expanded.
func Decide(in VisibilityInputs) Decision {
	if in.Paused {
		return Decision{
			Show:        in.ForceShow && in.HasResult,
			Placeholder: true,
		}
	}

	if in.OverlayClosed && !in.ForceShow {
		return Decision{}
	}

	show := in.ForceShow
	if in.HasResult {
		score := model.NormalizeScore(in.TopScore)
		threshold := model.NormalizeScore(in.Threshold)
		if score >= threshold {
			show = true
		}
	}
	if in.Expanded && !in.OverlayClosed {
		show = true
	}

	return Decision{Show: show && in.HasResult}
}
