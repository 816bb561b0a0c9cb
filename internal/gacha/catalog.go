// Package gacha implements the box catalog, the weighted reward draw and the
// draw-and-mint settlement pipeline.
package gacha

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/garagemint/garagemint/internal/errors"
)

// RewardEntry is one possible outcome of a box. Probability is a positive
// weight, not necessarily normalised to 100.
type RewardEntry struct {
	ModelName   string  `yaml:"model_name" json:"model_name"`
	Series      string  `yaml:"series" json:"series"`
	Rarity      string  `yaml:"rarity" json:"rarity"`
	Probability float64 `yaml:"probability" json:"probability"`
}

// Box is a purchasable unit yielding one randomly drawn reward.
type Box struct {
	CostCoins int64         `yaml:"cost_coins"`
	Rewards   []RewardEntry `yaml:"rewards"`
}

// Catalog is the immutable box configuration, loaded once at startup.
type Catalog struct {
	StartingCoins int64          `yaml:"starting_coins"`
	Boxes         map[string]Box `yaml:"boxes"`
}

// LoadCatalog reads and validates a catalog YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks the catalog invariants: at least one box, every box with a
// non-negative cost and at least one positively weighted reward.
func (c *Catalog) Validate() error {
	if len(c.Boxes) == 0 {
		return errors.Configuration("catalog defines no boxes")
	}
	if c.StartingCoins < 0 {
		return errors.Configuration("starting_coins must be non-negative")
	}
	for name, box := range c.Boxes {
		if box.CostCoins < 0 {
			return errors.Configuration(fmt.Sprintf("box %q: cost_coins must be non-negative", name))
		}
		if len(box.Rewards) == 0 {
			return errors.Configuration(fmt.Sprintf("box %q: no rewards configured", name))
		}
		for i, reward := range box.Rewards {
			if reward.Probability <= 0 {
				return errors.Configuration(fmt.Sprintf("box %q: reward %d (%s) has non-positive probability", name, i, reward.ModelName))
			}
			if reward.ModelName == "" {
				return errors.Configuration(fmt.Sprintf("box %q: reward %d has no model name", name, i))
			}
		}
	}
	return nil
}

// Box returns the definition for a box type.
func (c *Catalog) Box(boxType string) (Box, bool) {
	box, ok := c.Boxes[boxType]
	return box, ok
}

// Types returns all box types in sorted order.
func (c *Catalog) Types() []string {
	types := make([]string, 0, len(c.Boxes))
	for name := range c.Boxes {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
