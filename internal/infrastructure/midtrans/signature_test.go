package midtrans

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/projevo/escrow-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signFields(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func TestVerifySignature(t *testing.T) {
	const serverKey = "SB-Mid-server-testkey"

	t.Run("accepts a correctly signed notification", func(t *testing.T) {
		sig := signFields("PJV-abc", "200", "28375000.00", serverKey)

		err := VerifySignature("PJV-abc", "200", "28375000.00", serverKey, sig)
		assert.NoError(t, err)
	})

	t.Run("rejects a tampered amount", func(t *testing.T) {
		sig := signFields("PJV-abc", "200", "28375000.00", serverKey)

		err := VerifySignature("PJV-abc", "200", "99999999.00", serverKey, sig)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidSignature))
	})

	t.Run("rejects a signature made with the wrong key", func(t *testing.T) {
		sig := signFields("PJV-abc", "200", "28375000.00", "some-other-key")

		err := VerifySignature("PJV-abc", "200", "28375000.00", serverKey, sig)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidSignature))
	})

	t.Run("rejects an empty signature", func(t *testing.T) {
		err := VerifySignature("PJV-abc", "200", "28375000.00", serverKey, "")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidSignature))
	})
}

func TestParseNotification(t *testing.T) {
	const serverKey = "SB-Mid-server-testkey"

	t.Run("parses a signed body", func(t *testing.T) {
		sig := signFields("PJV-abc", "200", "28375000.00", serverKey)
		raw := []byte(`{
			"transaction_status": "settlement",
			"transaction_id": "tx-123",
			"status_code": "200",
			"order_id": "PJV-abc",
			"gross_amount": "28375000.00",
			"signature_key": "` + sig + `"
		}`)

		n, err := ParseNotification(raw, serverKey)
		require.NoError(t, err)
		assert.Equal(t, "settlement", n.TransactionStatus)
		assert.Equal(t, "tx-123", n.TransactionID)
	})

	t.Run("refuses an unsigned body before trusting any field", func(t *testing.T) {
		raw := []byte(`{
			"transaction_status": "settlement",
			"status_code": "200",
			"order_id": "PJV-abc",
			"gross_amount": "28375000.00",
			"signature_key": "forged"
		}`)

		_, err := ParseNotification(raw, serverKey)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidSignature))
	})

	t.Run("refuses malformed json", func(t *testing.T) {
		_, err := ParseNotification([]byte(`{not json`), serverKey)
		assert.Error(t, err)
	})
}
