// Package reputation tracks how well each specialist has been performing.
//
// Scores move by a fixed step on every critique verdict and stay inside [Floor, Ceiling].
// Stores apply updates atomically so concurrent walks never lose a nudge.
package reputation

import (
	"math"

	"github.com/aretw0/cognito/pkg/domain"
)

const (
	Neutral = domain.NeutralReputation
	Step    = 0.05
	Floor   = 0.1
	Ceiling = 1.0
)

// Nudge moves score one step up on PASS and one step down on FAIL.
func Nudge(score float64, v domain.Verdict) float64 {
	if v == domain.VerdictPass {
		score = math.Min(Ceiling, score+Step)
	} else {
		score = math.Max(Floor, score-Step)
	}
	return math.Round(score*100) / 100
}

// Nudger returns an update function suitable for ports.ReputationStore.Update.
func Nudger(v domain.Verdict) func(float64) float64 {
	return func(current float64) float64 { return Nudge(current, v) }
}
