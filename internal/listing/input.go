package listing

import "krishi-backend/internal/models"

type CropInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Category string `json:"category" validate:"required,max=100"`
	MSP      string `json:"msp" validate:"required,max=50"`
}

type SellerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"required,numeric,len=10"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Location string `json:"location" validate:"required,max=255"`
}

type DetailsInput struct {
	Quantity      float64      `json:"quantity" validate:"gt=0"`
	Quality       string       `json:"quality" validate:"required,oneof=premium standard fair"`
	ExpectedPrice float64      `json:"expectedPrice" validate:"gt=0"`
	HarvestDate   *models.Date `json:"harvestDate,omitempty"`
}

type CreateInput struct {
	Crop           CropInput              `json:"crop"`
	Seller         SellerInput            `json:"seller"`
	CropDetails    DetailsInput           `json:"cropDetails"`
	Services       models.ListingServices `json:"services"`
	AdditionalInfo string                 `json:"additionalInfo,omitempty" validate:"max=2000"`
}

type InterestInput struct {
	BuyerName    string  `json:"buyerName" validate:"required,max=100"`
	BuyerPhone   string  `json:"buyerPhone" validate:"required,numeric,len=10"`
	OfferedPrice float64 `json:"offeredPrice" validate:"gte=0"`
}

type SaleInput struct {
	SoldTo       string       `json:"soldTo,omitempty" validate:"max=100"`
	FinalPrice   float64      `json:"finalPrice" validate:"gt=0"`
	SoldQuantity *float64     `json:"soldQuantity,omitempty" validate:"omitempty,gt=0"`
	SoldDate     *models.Date `json:"soldDate,omitempty"`
	Note         string       `json:"note,omitempty" validate:"max=500"`
}

type CancelInput struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type NegotiateInput struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

// StatusInput is the body of PATCH /crop-listings/:id/status. It is routed
// to the matching guarded operation.
type StatusInput struct {
	Status       models.ListingStatus `json:"status" validate:"required,oneof=negotiating sold cancelled"`
	SoldTo       string               `json:"soldTo,omitempty"`
	FinalPrice   *float64             `json:"finalPrice,omitempty"`
	SoldQuantity *float64             `json:"soldQuantity,omitempty"`
	SoldDate     *models.Date         `json:"soldDate,omitempty"`
	Reason       string               `json:"reason,omitempty"`
	Note         string               `json:"note,omitempty"`
}

type NoteInput struct {
	Text string `json:"text" validate:"required,max=1000"`
}

type ListFilter struct {
	Status  string
	Crop    string
	Quality string
	Search  string
	Page    int
	Limit   int
}
