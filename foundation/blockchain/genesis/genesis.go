// Package genesis maintains access to the chain parameters every node must
// agree on.
package genesis

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date               time.Time `json:"date"`
	MiningReward       uint64    `json:"mining_reward"`       // Amount minted to the miner of a block.
	FeePerTransaction  uint64    `json:"fee_per_transaction"` // Fee minted per transaction mined into a block.
	TransPerBlock      uint16    `json:"trans_per_block"`     // The maximum number of pending transactions in a block, 0 for no limit.
	DifficultyStrategy string    `json:"difficulty_strategy"` // Name of the retarget policy.
	BlockInterval      uint64    `json:"block_interval"`      // Target number of seconds between blocks.
	AdjustmentInterval uint64    `json:"adjustment_interval"` // Number of blocks between difficulty adjustments.
	MinDifficulty      uint      `json:"min_difficulty"`      // Difficulty never drops below this value.
	MaxDifficulty      uint      `json:"max_difficulty"`      // Difficulty never rises above this value.
}

// Default returns the parameters used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:               time.Unix(1465154705, 0).UTC(),
		MiningReward:       5000000000,
		FeePerTransaction:  1,
		TransPerBlock:      0,
		DifficultyStrategy: "retarget",
		BlockInterval:      1,
		AdjustmentInterval: 5,
		MinDifficulty:      0,
		MaxDifficulty:      20,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file keep
// their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters make sense together.
func (g Genesis) Validate() error {
	if g.AdjustmentInterval == 0 {
		return errors.New("adjustment interval must be greater than zero")
	}

	if g.BlockInterval == 0 {
		return errors.New("block interval must be greater than zero")
	}

	if g.MaxDifficulty < g.MinDifficulty {
		return errors.New("max difficulty is less than min difficulty")
	}

	if g.MaxDifficulty > 64 {
		return errors.New("max difficulty can't exceed the hash length")
	}

	return nil
}
