package midtrans

import (
	"encoding/json"

	"github.com/projevo/escrow-service/internal/domain"
)

// Notification is the JSON body Midtrans POSTs to the webhook endpoint.
type Notification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	// PayoutStatus is set on disbursement notifications (payouts to the
	// vendor), empty on charge notifications.
	PayoutStatus string `json:"payout_status,omitempty"`
}

// ParseNotification decodes and signature-checks a raw webhook body.
// The signature is verified before any field is trusted.
func ParseNotification(raw []byte, serverKey string) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	if err := VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey, n.SignatureKey); err != nil {
		return nil, err
	}
	return &n, nil
}

// MapEvent translates Midtrans's status vocabulary onto a domain transition
// event. This is the seam that isolates the state machine from gateway
// wording: a different gateway means a different mapping, nothing else.
//
// Returns false when the notification carries no state change for us
// (e.g. "pending", or a capture still being fraud-reviewed).
func (n *Notification) MapEvent() (domain.Event, bool) {
	if n.PayoutStatus != "" {
		switch n.PayoutStatus {
		case "completed":
			return domain.EventTransferSettled, true
		default:
			// processed/queued are progress reports; a failed payout needs
			// operator intervention and has no automatic transition.
			return "", false
		}
	}

	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus == "challenge" {
			return "", false
		}
		return domain.EventChargeCaptured, true
	case "settlement":
		return domain.EventChargeCaptured, true
	case "deny", "cancel", "expire", "failure":
		return domain.EventChargeFailed, true
	default: // "pending", "authorize", anything new
		return "", false
	}
}
