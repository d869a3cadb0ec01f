package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetSlot returns the current slot.
func (c *Client) GetSlot(ctx context.Context, commitment string) (int64, error) {
	params := []interface{}{
		map[string]string{"commitment": commitment},
	}
	result, err := c.call(ctx, "getSlot", params)
	if err != nil {
		return 0, fmt.Errorf("getSlot: %w", err)
	}

	var slot int64
	if err := json.Unmarshal(result, &slot); err != nil {
		return 0, fmt.Errorf("unmarshal slot: %w", err)
	}
	return slot, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	params := []interface{}{
		address,
		map[string]string{"commitment": "confirmed"},
	}
	result, err := c.call(ctx, "getBalance", params)
	if err != nil {
		return 0, fmt.Errorf("getBalance(%s): %w", address, err)
	}

	var wrapped contextual[uint64]
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return 0, fmt.Errorf("unmarshal balance: %w", err)
	}
	return wrapped.Value, nil
}

// GetTokenAccountsByOwner returns the owner's token accounts for a mint.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error) {
	params := []interface{}{
		owner,
		map[string]string{"mint": mint},
		map[string]interface{}{"encoding": "jsonParsed", "commitment": "confirmed"},
	}
	result, err := c.call(ctx, "getTokenAccountsByOwner", params)
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner(%s): %w", owner, err)
	}

	var wrapped contextual[[]TokenAccount]
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal token accounts: %w", err)
	}
	return wrapped.Value, nil
}

// SendTransaction broadcasts a base64-encoded signed transaction and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	params := []interface{}{
		signedTxBase64,
		map[string]interface{}{"encoding": "base64"},
	}
	result, err := c.call(ctx, "sendTransaction", params)
	if err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}

	var signature string
	if err := json.Unmarshal(result, &signature); err != nil {
		return "", fmt.Errorf("unmarshal signature: %w", err)
	}
	return signature, nil
}

// GetSignatureStatuses returns confirmation state for signatures.
// Entries are nil for unknown signatures.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []interface{}{
		signatures,
		map[string]bool{"searchTransactionHistory": true},
	}
	result, err := c.call(ctx, "getSignatureStatuses", params)
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}

	var wrapped contextual[[]*SignatureStatus]
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal signature statuses: %w", err)
	}
	return wrapped.Value, nil
}

// GetRecentPrioritizationFees returns recent per-slot priority fees.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context) ([]PrioritizationFee, error) {
	result, err := c.call(ctx, "getRecentPrioritizationFees", []interface{}{})
	if err != nil {
		return nil, fmt.Errorf("getRecentPrioritizationFees: %w", err)
	}

	var fees []PrioritizationFee
	if err := json.Unmarshal(result, &fees); err != nil {
		return nil, fmt.Errorf("unmarshal prioritization fees: %w", err)
	}
	return fees, nil
}
