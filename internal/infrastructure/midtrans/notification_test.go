package midtrans

import (
	"testing"

	"github.com/projevo/escrow-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapEvent(t *testing.T) {
	tests := []struct {
		name         string
		notification Notification
		wantEvent    domain.Event
		wantOK       bool
	}{
		{
			name:         "settlement is a captured charge",
			notification: Notification{TransactionStatus: "settlement"},
			wantEvent:    domain.EventChargeCaptured,
			wantOK:       true,
		},
		{
			name:         "accepted capture is a captured charge",
			notification: Notification{TransactionStatus: "capture", FraudStatus: "accept"},
			wantEvent:    domain.EventChargeCaptured,
			wantOK:       true,
		},
		{
			name:         "challenged capture waits for fraud review",
			notification: Notification{TransactionStatus: "capture", FraudStatus: "challenge"},
			wantOK:       false,
		},
		{
			name:         "deny is a failed charge",
			notification: Notification{TransactionStatus: "deny"},
			wantEvent:    domain.EventChargeFailed,
			wantOK:       true,
		},
		{
			name:         "expire is a failed charge",
			notification: Notification{TransactionStatus: "expire"},
			wantEvent:    domain.EventChargeFailed,
			wantOK:       true,
		},
		{
			name:         "cancel is a failed charge",
			notification: Notification{TransactionStatus: "cancel"},
			wantEvent:    domain.EventChargeFailed,
			wantOK:       true,
		},
		{
			name:         "pending carries no transition",
			notification: Notification{TransactionStatus: "pending"},
			wantOK:       false,
		},
		{
			name:         "unknown status is ignored rather than guessed",
			notification: Notification{TransactionStatus: "refund_chargeback"},
			wantOK:       false,
		},
		{
			name:         "completed payout settles the transfer",
			notification: Notification{PayoutStatus: "completed"},
			wantEvent:    domain.EventTransferSettled,
			wantOK:       true,
		},
		{
			name:         "queued payout is only a progress report",
			notification: Notification{PayoutStatus: "queued"},
			wantOK:       false,
		},
		{
			name: "payout status wins over a stale transaction status",
			notification: Notification{
				TransactionStatus: "settlement",
				PayoutStatus:      "processed",
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := tt.notification.MapEvent()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantEvent, event)
			}
		})
	}
}
