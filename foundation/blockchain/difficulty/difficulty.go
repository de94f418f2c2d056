// Package difficulty provides the retarget policies that decide the proof of
// work difficulty required for the next block.
package difficulty

import (
	"fmt"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/genesis"
)

// List of different difficulty strategies.
const (
	StrategyRetarget = "retarget"
	StrategyFixed    = "fixed"
)

// Map of different difficulty strategies with their constructors.
var strategies = map[string]func(g genesis.Genesis) Func{
	StrategyRetarget: retarget,
	StrategyFixed:    fixed,
}

// Func defines a function that returns the difficulty a block at the
// specified index must meet. The chain holds the blocks before index and is
// the only input, so the result is the same on every node with that chain.
type Func func(chain []database.Block, index uint64) uint

// Retrieve returns the specified difficulty strategy function configured
// from the genesis parameters.
func Retrieve(strategy string, g genesis.Genesis) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn(g), nil
}

// =============================================================================

// retarget keeps the difficulty stable between adjustment intervals. At each
// interval boundary the time taken by the last interval is compared to the
// expected time and the difficulty moves one step toward the target.
func retarget(g genesis.Genesis) Func {
	interval := g.AdjustmentInterval
	expected := int64(interval * g.BlockInterval)

	clamp := func(d uint) uint {
		switch {
		case d < g.MinDifficulty:
			return g.MinDifficulty
		case d > g.MaxDifficulty:
			return g.MaxDifficulty
		}
		return d
	}

	return func(chain []database.Block, index uint64) uint {
		if index <= 1 || uint64(len(chain)) < index {
			return g.MinDifficulty
		}

		latest := chain[index-1]
		if index%interval != 0 || index < interval {
			return clamp(latest.Difficulty)
		}

		taken := latest.Timestamp - chain[index-interval].Timestamp

		switch {
		case taken < expected/2:
			return clamp(latest.Difficulty + 1)
		case taken > expected*2 && latest.Difficulty > 0:
			return clamp(latest.Difficulty - 1)
		}

		return clamp(latest.Difficulty)
	}
}

// fixed always requires the minimum difficulty.
func fixed(g genesis.Genesis) Func {
	return func(chain []database.Block, index uint64) uint {
		return g.MinDifficulty
	}
}
