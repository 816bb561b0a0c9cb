package gacha

import (
	"crypto/rand"
	"math"
	"math/big"

	"github.com/garagemint/garagemint/internal/errors"
)

// RandomSource supplies uniform values in [0, 1). It is injected so draws are
// reproducible in tests.
type RandomSource interface {
	Float64() float64
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

const cryptoPrecision = 1 << 53

func (CryptoSource) Float64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(cryptoPrecision))
	if err != nil {
		// crypto/rand failing means the process cannot safely continue
		// serving draws.
		panic("gacha: crypto randomness unavailable: " + err.Error())
	}
	return float64(n.Int64()) / cryptoPrecision
}

// SelectReward draws one entry from the weighted list. Weights are
// unnormalised; the draw is uniform over [0, totalWeight) and the entries are
// walked in order, so ordering only decides float tie-breaks, not fairness.
// An empty list or a non-positive total weight is a catalog bug and fails
// with a configuration error.
func SelectReward(rewards []RewardEntry, src RandomSource) (RewardEntry, error) {
	if len(rewards) == 0 {
		return RewardEntry{}, errors.Configuration("reward list is empty")
	}

	var total float64
	for _, reward := range rewards {
		if reward.Probability > 0 {
			total += reward.Probability
		}
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return RewardEntry{}, errors.Configuration("reward weights sum to a non-positive total")
	}

	target := src.Float64() * total
	var cumulative float64
	for _, reward := range rewards {
		if reward.Probability <= 0 {
			continue
		}
		cumulative += reward.Probability
		if target < cumulative {
			return reward, nil
		}
	}

	// Float accumulation can land exactly on total; the last weighted entry
	// owns that edge.
	for i := len(rewards) - 1; i >= 0; i-- {
		if rewards[i].Probability > 0 {
			return rewards[i], nil
		}
	}
	return RewardEntry{}, errors.Configuration("reward weights sum to a non-positive total")
}
