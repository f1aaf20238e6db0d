package domain

import "time"

// Project is a unit of work tendered by an owner. Once a vendor is selected
// the total contract value is frozen; changing it afterwards requires a
// formal change-order, which this system does not model.
type Project struct {
	ID                 string
	OwnerID            string
	VendorID           *string
	TotalContractValue Money
	Installments       int
	CreatedAt          time.Time
	DeletedAt          *time.Time
}

func NewProject(id, ownerID string, totalValue Money) (*Project, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("project ID")
	}
	if ownerID == "" {
		return nil, NewMissingRequiredFieldError("owner ID")
	}
	if totalValue <= 0 {
		return nil, NewNegativeAmountError(int64(totalValue))
	}
	return &Project{
		ID:                 id,
		OwnerID:            ownerID,
		TotalContractValue: totalValue,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// SelectVendor assigns the winning vendor and fixes the installment count.
// It may happen exactly once per project.
func (p *Project) SelectVendor(vendorID string, installments int) error {
	if p.VendorID != nil {
		return NewVendorAlreadySetError(p.ID)
	}
	if vendorID == "" {
		return NewMissingRequiredFieldError("vendor ID")
	}
	if installments < 1 {
		return NewInvalidScheduleError(p.TotalContractValue, installments)
	}
	p.VendorID = &vendorID
	p.Installments = installments
	return nil
}

func (p *Project) IsDeleted() bool {
	return p.DeletedAt != nil
}
