package user

import "time"

// User is a player identified by the external identity provider's subject id.
// Coins are debited only by draw settlement.
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Coins         int64     `json:"coins"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
