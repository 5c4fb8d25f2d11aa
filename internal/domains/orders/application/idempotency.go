package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
)

type normalizedRefundCommand struct {
	OrderID string `json:"orderId"`
	Amount  string `json:"amount"`
	Actor   string `json:"actor"`
	Reason  string `json:"reason"`
}

// FingerprintRefund builds a deterministic hash of the refund request (excluding the idempotency key).
// Amounts that differ only in trailing zeros hash identically.
func FingerprintRefund(cmd ordertypes.RefundCommand) (string, error) {
	payload, err := json.Marshal(normalizedRefundCommand{
		OrderID: strings.TrimSpace(cmd.OrderID),
		Amount:  cmd.Amount.Trim(0).String(),
		Actor:   strings.TrimSpace(cmd.Actor),
		Reason:  strings.TrimSpace(cmd.Reason),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
