package services

import (
	"strings"

	"github.com/google/uuid"
)

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns "ORD-" followed by seven uppercase alphanumerics
// drawn from a random (v4) UUID. Collisions are still possible and are
// handled by retrying the insert.
func NewOrderNumber() string {
	u := uuid.New()
	var sb strings.Builder
	sb.WriteString("ORD-")
	// bytes 9..15 are fully random in a v4 UUID
	for _, b := range u[9:16] {
		sb.WriteByte(orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
	}
	return sb.String()
}

// NewTransactionID returns "TXN-" followed by the 32 hex digits of a random
// UUID.
func NewTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
