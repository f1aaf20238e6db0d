package domain

// Event is a trigger applied to a payment's state machine. Events come from
// three places: the client/owner UI, the operator console, and gateway
// webhooks. The transition table in payment.go decides which are legal.
type Event string

const (
	// EventInitiatePayment fires when the client starts paying a due termin.
	EventInitiatePayment Event = "initiate-payment"

	// EventChargeCaptured fires when the gateway confirms the charge landed.
	EventChargeCaptured Event = "charge-captured"

	// EventChargeFailed fires when the gateway denies or expires the charge.
	EventChargeFailed Event = "charge-failed"

	// EventReleaseApproved fires when the owner or an admin approves
	// releasing escrowed funds to the vendor.
	EventReleaseApproved Event = "release-approved"

	// EventTransferSettled fires when the gateway confirms the payout
	// reached the vendor's account.
	EventTransferSettled Event = "transfer-settled"

	// EventDisputeOpened fires when either party opens a dispute.
	EventDisputeOpened Event = "dispute-opened"

	// EventDisputeRuledClient resolves a dispute in favor of the client.
	EventDisputeRuledClient Event = "dispute-ruled-client"

	// EventDisputeRuledVendor resolves a dispute in favor of the vendor.
	EventDisputeRuledVendor Event = "dispute-ruled-vendor"

	// EventAddFundsRequested fires when the vendor asks for additional
	// funds on the current termin.
	EventAddFundsRequested Event = "add-funds-requested"

	// EventAddFundsApproved accepts the request and raises the amount.
	EventAddFundsApproved Event = "add-funds-approved"

	// EventAddFundsDenied rejects the request, amount unchanged.
	EventAddFundsDenied Event = "add-funds-denied"
)

// AllEvents lists every event the machine knows, for exhaustive table tests.
func AllEvents() []Event {
	return []Event{
		EventInitiatePayment,
		EventChargeCaptured,
		EventChargeFailed,
		EventReleaseApproved,
		EventTransferSettled,
		EventDisputeOpened,
		EventDisputeRuledClient,
		EventDisputeRuledVendor,
		EventAddFundsRequested,
		EventAddFundsApproved,
		EventAddFundsDenied,
	}
}
