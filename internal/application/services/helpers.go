package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/projevo/escrow-service/internal/domain"
)

const bpsDenominator = 10_000

// FeeCalculator derives the tax and service-fee surcharges layered on top
// of a termin's base value. Rates are in basis points. Both surcharges
// round down; the sub-rupiah remainder stays with the client.
type FeeCalculator struct {
	TaxBps        int64
	ServiceFeeBps int64
}

func (f FeeCalculator) Surcharges(base domain.Money) (tax, serviceFee domain.Money, err error) {
	tax, _, err = base.MultiplyByRatio(f.TaxBps, bpsDenominator)
	if err != nil {
		return 0, 0, err
	}
	serviceFee, _, err = base.MultiplyByRatio(f.ServiceFeeBps, bpsDenominator)
	if err != nil {
		return 0, 0, err
	}
	return tax, serviceFee, nil
}

// newPaymentForTermin builds the payment row for a termin attempt. Each
// attempt gets its own gateway order ID, so a retried termin never reuses
// the failed attempt's order.
func newPaymentForTermin(termin domain.Termin, fees FeeCalculator) (*domain.Payment, error) {
	id := uuid.New().String()
	orderID := fmt.Sprintf("PJV-%s", id)

	tax, serviceFee, err := fees.Surcharges(termin.Value)
	if err != nil {
		return nil, err
	}

	return domain.NewPayment(id, termin.ProjectID, termin.Index, orderID, termin.Value, tax, serviceFee)
}
