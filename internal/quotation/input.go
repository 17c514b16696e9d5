package quotation

import "krishi-backend/internal/models"

type EquipmentInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"required,max=100"`
	Price       string `json:"price" validate:"required,max=50"`
	RentalPrice string `json:"rentalPrice,omitempty" validate:"max=50"`
	Subsidy     string `json:"subsidy,omitempty" validate:"max=100"`
}

type CustomerInput struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Phone    string   `json:"phone" validate:"required,numeric,len=10"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Location string   `json:"location" validate:"required,max=255"`
	LandSize *float64 `json:"landSize,omitempty" validate:"omitempty,gt=0"`
}

type CreateInput struct {
	Equipment       EquipmentInput            `json:"equipment"`
	QuotationType   string                    `json:"quotationType" validate:"required,oneof=purchase rental"`
	CustomerDetails CustomerInput             `json:"customerDetails"`
	RentalDuration  string                    `json:"rentalDuration,omitempty" validate:"max=50"`
	Interests       models.QuotationInterests `json:"interests"`
	AdditionalNotes string                    `json:"additionalNotes,omitempty" validate:"max=2000"`
}

type AcceptInput struct {
	SupplierName    string `json:"supplierName" validate:"required,max=100"`
	SupplierContact string `json:"supplierContact,omitempty" validate:"max=100"`
	Notes           string `json:"notes,omitempty" validate:"max=500"`
}

type CancelInput struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type CompleteInput struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback,omitempty" validate:"max=1000"`
}

// DetailsInput is the body of PATCH /quotations/:id. Status is accepted
// only to be rejected with a field error.
type DetailsInput struct {
	Status         string   `json:"status,omitempty"`
	AssignedTo     *string  `json:"assignedTo,omitempty" validate:"omitempty,max=100"`
	EstimatedPrice *float64 `json:"estimatedPrice,omitempty" validate:"omitempty,gte=0"`
	FinalPrice     *float64 `json:"finalPrice,omitempty" validate:"omitempty,gte=0"`
}

type NoteInput struct {
	Text string `json:"text" validate:"required,max=1000"`
}

type ListFilter struct {
	Status string
	Type   string
	Search string
	Page   int
	Limit  int
}
