package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuotationStatus string

const (
	QuotationPending   QuotationStatus = "pending"
	QuotationContacted QuotationStatus = "contacted" // reserved
	QuotationQuoted    QuotationStatus = "quoted"    // reserved
	QuotationApproved  QuotationStatus = "approved"
	QuotationRejected  QuotationStatus = "rejected" // reserved
	QuotationCompleted QuotationStatus = "completed"
	QuotationCancelled QuotationStatus = "cancelled"
)

type QuotationType string

const (
	QuotationPurchase QuotationType = "purchase"
	QuotationRental   QuotationType = "rental"
)

type EquipmentInfo struct {
	Name        string `gorm:"size:100;not null" bson:"name" json:"name"`
	Category    string `gorm:"size:100;not null" bson:"category" json:"category"`
	Price       string `gorm:"size:50;not null" bson:"price" json:"price"`
	RentalPrice string `gorm:"size:50" bson:"rentalPrice,omitempty" json:"rentalPrice,omitempty"`
	Subsidy     string `gorm:"size:100" bson:"subsidy,omitempty" json:"subsidy,omitempty"`
}

type CustomerDetails struct {
	Name     string   `gorm:"size:100;not null" bson:"name" json:"name"`
	Phone    string   `gorm:"size:10;index;not null" bson:"phone" json:"phone"`
	Email    string   `gorm:"size:100" bson:"email,omitempty" json:"email,omitempty"`
	Location string   `gorm:"size:255;not null" bson:"location" json:"location"`
	LandSize *float64 `bson:"landSize,omitempty" json:"landSize,omitempty"` // acres
}

type QuotationInterests struct {
	Subsidy   bool `gorm:"not null;default:false" bson:"subsidy" json:"subsidy"`
	Loan      bool `gorm:"not null;default:false" bson:"loan" json:"loan"`
	Insurance bool `gorm:"not null;default:false" bson:"insurance" json:"insurance"`
}

// Quotation is a buyer's request to purchase or rent equipment.
type Quotation struct {
	ID              string             `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	QuotationNumber string             `gorm:"size:40;uniqueIndex;not null" bson:"quotationNumber" json:"quotationNumber"`
	UserID          string             `gorm:"type:uuid;index;not null" bson:"userId" json:"userId"`
	Equipment       EquipmentInfo      `gorm:"embedded;embeddedPrefix:equipment_" bson:"equipment" json:"equipment"`
	QuotationType   QuotationType      `gorm:"size:20;index;not null" bson:"quotationType" json:"quotationType"`
	CustomerDetails CustomerDetails    `gorm:"embedded;embeddedPrefix:customer_" bson:"customerDetails" json:"customerDetails"`
	RentalDuration  string             `gorm:"size:50" bson:"rentalDuration,omitempty" json:"rentalDuration,omitempty"`
	Interests       QuotationInterests `gorm:"embedded;embeddedPrefix:interest_" bson:"interests" json:"interests"`
	AdditionalNotes string             `gorm:"type:text" bson:"additionalNotes,omitempty" json:"additionalNotes,omitempty"`

	Status         QuotationStatus `gorm:"size:20;index;not null;default:pending" bson:"status" json:"status"`
	AssignedTo     string          `gorm:"size:100" bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	EstimatedPrice *float64        `bson:"estimatedPrice,omitempty" json:"estimatedPrice,omitempty"`
	FinalPrice     *float64        `bson:"finalPrice,omitempty" json:"finalPrice,omitempty"`

	// Acceptance
	AcceptedBy      string     `gorm:"size:100" bson:"acceptedBy,omitempty" json:"acceptedBy,omitempty"`
	AcceptedByID    string     `gorm:"size:36" bson:"acceptedById,omitempty" json:"acceptedById,omitempty"`
	AcceptedAt      *time.Time `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	AcceptedContact string     `gorm:"size:100" bson:"acceptedContact,omitempty" json:"acceptedContact,omitempty"`

	// Completion
	Rating      *int       `bson:"rating,omitempty" json:"rating,omitempty"`
	Feedback    string     `gorm:"type:text" bson:"feedback,omitempty" json:"feedback,omitempty"`
	CompletedBy string     `gorm:"size:100" bson:"completedBy,omitempty" json:"completedBy,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	// Cancellation
	CancelledBy  string     `gorm:"size:100" bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CancelReason string     `gorm:"size:500" bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	Notes         datatypes.JSONSlice[Note]         `gorm:"type:jsonb;not null" bson:"notes" json:"notes"`
	StatusHistory datatypes.JSONSlice[StatusChange] `gorm:"type:jsonb;not null" bson:"statusHistory" json:"statusHistory"`

	Version   int64     `gorm:"-" bson:"version" json:"-"`
	CreatedAt time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
