package midtrans

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	"github.com/projevo/escrow-service/internal/domain"
)

// VerifySignature checks a notification's signature_key: SHA-512 over
// order_id + status_code + gross_amount + serverKey, hex encoded, per the
// Midtrans notification contract. Nothing from an unverified payload may
// reach the state machine.
func VerifySignature(orderID, statusCode, grossAmount, serverKey, signature string) error {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.NewInvalidSignatureError(orderID)
	}
	return nil
}
