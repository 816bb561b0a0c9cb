package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/garagemint/garagemint/internal/logging"
)

// CarMinter mints car NFTs on the NEP-11 garage contract. The mint runs under
// the platform's minter account; ownership is assigned to the player's wallet
// in the same transaction.
type CarMinter struct {
	client        *Client
	contractHash  string
	minterAddress string
	log           *logging.Logger
}

// MinterConfig holds the contract binding for the car minter.
type MinterConfig struct {
	ContractHash  string
	MinterAddress string
}

// NewCarMinter creates a minter bound to the garage contract.
func NewCarMinter(client *Client, cfg MinterConfig, log *logging.Logger) (*CarMinter, error) {
	if client == nil {
		return nil, fmt.Errorf("client required")
	}
	if cfg.ContractHash == "" {
		return nil, fmt.Errorf("contract hash required")
	}
	if cfg.MinterAddress == "" {
		return nil, fmt.Errorf("minter address required")
	}
	if log == nil {
		log = logging.NewDefault("chain-minter")
	}
	return &CarMinter{
		client:        client,
		contractHash:  cfg.ContractHash,
		minterAddress: cfg.MinterAddress,
		log:           log,
	}, nil
}

// Mint invokes the garage contract's mint method and waits for execution.
// Returns the transaction hash once the VM halts successfully.
func (m *CarMinter) Mint(ctx context.Context, walletAddress, tokenID, modelName, series string) (string, error) {
	params := []ContractParam{
		NewHash160Param(walletAddress),
		NewIntegerParam(tokenID),
		NewStringParam(modelName),
		NewStringParam(series),
	}
	signers := []Signer{{Account: m.minterAddress, Scopes: "CalledByEntry"}}

	result, err := m.client.InvokeFunctionAndWait(ctx, m.contractHash, "mint", params, signers, true)
	if err != nil {
		return "", err
	}

	if result.VMState != "HALT" {
		exception := ""
		if result.AppLog != nil && len(result.AppLog.Executions) > 0 {
			exception = result.AppLog.Executions[0].Exception
		}
		return "", fmt.Errorf("mint reverted with state %s: %s", result.VMState, exception)
	}

	m.log.WithFields(map[string]interface{}{
		"token_id": tokenID,
		"tx_hash":  result.TxHash,
		"wallet":   walletAddress,
	}).Info("car minted on chain")

	return result.TxHash, nil
}

// OwnerOf returns the script hash owning a token, for reconciliation tooling.
func (m *CarMinter) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	params := []ContractParam{NewIntegerParam(tokenID)}

	result, err := m.client.InvokeFunction(ctx, m.contractHash, "ownerOf", params, nil)
	if err != nil {
		return "", err
	}
	if result.State != "HALT" {
		return "", fmt.Errorf("ownerOf failed: %s", result.Exception)
	}
	if len(result.Stack) == 0 {
		return "", fmt.Errorf("ownerOf returned empty stack")
	}
	return ParseHash160(result.Stack[0])
}

// TotalSupply returns the number of cars minted by the contract.
func (m *CarMinter) TotalSupply(ctx context.Context) (*big.Int, error) {
	result, err := m.client.InvokeFunction(ctx, m.contractHash, "totalSupply", nil, nil)
	if err != nil {
		return nil, err
	}
	if result.State != "HALT" {
		return nil, fmt.Errorf("totalSupply failed: %s", result.Exception)
	}
	if len(result.Stack) == 0 {
		return nil, fmt.Errorf("totalSupply returned empty stack")
	}
	return ParseInteger(result.Stack[0])
}
