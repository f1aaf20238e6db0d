package domain

// FromLegacyStatus maps the retired status vocabulary used by early Projevo
// dashboards onto the authoritative enum. This exists for the one-time data
// migration only; no running code path accepts legacy statuses.
func FromLegacyStatus(legacy string) (PaymentStatus, bool) {
	switch legacy {
	case "pending":
		return StatusWaitingApproval, true
	case "processing":
		return StatusProcess, true
	case "completed":
		return StatusSettle, true
	case "overdue":
		// Overdue was a display concern, not a distinct lifecycle state.
		return StatusWaitingApproval, true
	case "cancelled":
		return StatusFailed, true
	default:
		return "", false
	}
}
