package car

import "time"

// Car is a minted collectible. A row exists only for mints confirmed on
// chain; it is never mutated after creation.
type Car struct {
	ID         string    `json:"id"`
	TokenID    string    `json:"token_id"`
	OwnerID    string    `json:"owner_id"`
	ModelName  string    `json:"model_name"`
	Series     string    `json:"series"`
	Rarity     string    `json:"rarity"`
	MintTxHash string    `json:"mint_tx_hash"`
	MintedAt   time.Time `json:"minted_at"`
}
