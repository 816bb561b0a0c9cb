package gacha

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/garagemint/garagemint/internal/errors"
)

const sampleCatalog = `
starting_coins: 500
boxes:
  street:
    cost_coins: 100
    rewards:
      - model_name: Road Runner
        series: street
        rarity: common
        probability: 70
      - model_name: Night Drifter
        series: street
        rarity: rare
        probability: 30
  legends:
    cost_coins: 400
    rewards:
      - model_name: Gold Phantom
        series: legends
        rarity: legendary
        probability: 100
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, sampleCatalog))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if catalog.StartingCoins != 500 {
		t.Fatalf("expected 500 starting coins, got %d", catalog.StartingCoins)
	}

	types := catalog.Types()
	if len(types) != 2 || types[0] != "legends" || types[1] != "street" {
		t.Fatalf("unexpected types %v", types)
	}

	box, ok := catalog.Box("street")
	if !ok {
		t.Fatal("street box missing")
	}
	if box.CostCoins != 100 || len(box.Rewards) != 2 {
		t.Fatalf("unexpected street box %+v", box)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCatalogValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no boxes", "starting_coins: 100\nboxes: {}\n"},
		{"negative starting coins", "starting_coins: -1\nboxes:\n  a:\n    cost_coins: 1\n    rewards:\n      - model_name: X\n        probability: 1\n"},
		{"negative cost", "boxes:\n  a:\n    cost_coins: -5\n    rewards:\n      - model_name: X\n        probability: 1\n"},
		{"no rewards", "boxes:\n  a:\n    cost_coins: 1\n    rewards: []\n"},
		{"zero probability", "boxes:\n  a:\n    cost_coins: 1\n    rewards:\n      - model_name: X\n        probability: 0\n"},
		{"missing model name", "boxes:\n  a:\n    cost_coins: 1\n    rewards:\n      - probability: 1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tc.content))
			if !errors.IsCode(err, errors.CodeConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestCatalogFreeBoxAllowed(t *testing.T) {
	content := "boxes:\n  promo:\n    cost_coins: 0\n    rewards:\n      - model_name: Freebie\n        probability: 1\n"
	catalog, err := LoadCatalog(writeCatalog(t, content))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	box, _ := catalog.Box("promo")
	if box.CostCoins != 0 {
		t.Fatalf("expected free box, got cost %d", box.CostCoins)
	}
}
