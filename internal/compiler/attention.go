package compiler

// Attention weights are per-tag reinforcement scores in [0,1]. They act
// as a fractional tie-breaker on top of integer section priorities, so a
// well-exercised tag can win a tie but never leapfrog a priority tier.

const (
	// DefaultBoost is added per use, capped at 1.0.
	DefaultBoost = 0.1
	// DecayFactor is the per-boot multiplier when none is configured.
	DecayFactor = 0.95
	// decayFloor: weights below this are removed entirely.
	decayFloor = 0.01
)

// Boost increases a tag's weight by amount (DefaultBoost when <= 0),
// capped at 1.0.
func Boost(weights map[string]float64, tag string, amount float64) {
	if tag == "" {
		return
	}
	if amount <= 0 {
		amount = DefaultBoost
	}
	w := weights[tag] + amount
	if w > 1.0 {
		w = 1.0
	}
	weights[tag] = w
}

// Decay applies the exponential forgetting curve to every weight,
// multiplying by factor (DecayFactor when outside (0,1)). It ticks on
// boots, not wall-clock time: elapsed time between boots is irrelevant,
// only how many boots happened.
func Decay(weights map[string]float64, factor float64) {
	if factor <= 0 || factor >= 1 {
		factor = DecayFactor
	}
	for tag, w := range weights {
		w *= factor
		if w < decayFloor {
			delete(weights, tag)
			continue
		}
		weights[tag] = w
	}
}
