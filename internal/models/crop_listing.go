package models

import (
	"time"

	"gorm.io/datatypes"
)

type ListingStatus string

const (
	ListingActive      ListingStatus = "active"
	ListingContacted   ListingStatus = "contacted"
	ListingNegotiating ListingStatus = "negotiating"
	ListingSold        ListingStatus = "sold"
	ListingCancelled   ListingStatus = "cancelled"
	ListingExpired     ListingStatus = "expired" // reserved, no transition produces it
)

type CropQuality string

const (
	QualityPremium  CropQuality = "premium"
	QualityStandard CropQuality = "standard"
	QualityFair     CropQuality = "fair"
)

type CropInfo struct {
	Name     string `gorm:"size:100;not null" bson:"name" json:"name"`
	Category string `gorm:"size:100;not null" bson:"category" json:"category"`
	MSP      string `gorm:"size:50;not null" bson:"msp" json:"msp"` // minimum support price, free text
}

type SellerInfo struct {
	Name     string `gorm:"size:100;not null" bson:"name" json:"name"`
	Phone    string `gorm:"size:10;index;not null" bson:"phone" json:"phone"`
	Email    string `gorm:"size:100" bson:"email,omitempty" json:"email,omitempty"`
	Location string `gorm:"size:255;not null" bson:"location" json:"location"`
}

type CropDetails struct {
	Quantity      float64     `gorm:"not null" bson:"quantity" json:"quantity"`
	Quality       CropQuality `gorm:"size:20;not null" bson:"quality" json:"quality"`
	ExpectedPrice float64     `gorm:"not null" bson:"expectedPrice" json:"expectedPrice"`
	HarvestDate   *time.Time  `bson:"harvestDate,omitempty" json:"harvestDate,omitempty"`
}

type ListingServices struct {
	Transport   bool `gorm:"not null;default:false" bson:"transport" json:"transport"`
	Storage     bool `gorm:"not null;default:false" bson:"storage" json:"storage"`
	QualityTest bool `gorm:"not null;default:false" bson:"qualityTest" json:"qualityTest"`
}

type BuyerContact struct {
	BuyerName    string    `bson:"buyerName" json:"buyerName"`
	BuyerPhone   string    `bson:"buyerPhone" json:"buyerPhone"`
	OfferedPrice float64   `bson:"offeredPrice" json:"offeredPrice"`
	ContactedAt  time.Time `bson:"contactedAt" json:"contactedAt"`
}

// CropListing is a seller's offer of a crop lot.
type CropListing struct {
	ID             string          `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	ListingNumber  string          `gorm:"size:40;uniqueIndex;not null" bson:"listingNumber" json:"listingNumber"`
	UserID         string          `gorm:"type:uuid;index;not null" bson:"userId" json:"userId"`
	Crop           CropInfo        `gorm:"embedded;embeddedPrefix:crop_" bson:"crop" json:"crop"`
	Seller         SellerInfo      `gorm:"embedded;embeddedPrefix:seller_" bson:"seller" json:"seller"`
	CropDetails    CropDetails     `gorm:"embedded;embeddedPrefix:detail_" bson:"cropDetails" json:"cropDetails"`
	Services       ListingServices `gorm:"embedded;embeddedPrefix:service_" bson:"services" json:"services"`
	AdditionalInfo string          `gorm:"type:text" bson:"additionalInfo,omitempty" json:"additionalInfo,omitempty"`

	Status        ListingStatus                     `gorm:"size:20;index;not null;default:active" bson:"status" json:"status"`
	BuyerContacts datatypes.JSONSlice[BuyerContact] `gorm:"type:jsonb;not null" bson:"buyerContacts" json:"buyerContacts"`

	// Sale
	SoldTo       string     `gorm:"size:100" bson:"soldTo,omitempty" json:"soldTo,omitempty"`
	FinalPrice   *float64   `bson:"finalPrice,omitempty" json:"finalPrice,omitempty"`
	SoldQuantity *float64   `bson:"soldQuantity,omitempty" json:"soldQuantity,omitempty"`
	SoldDate     *time.Time `bson:"soldDate,omitempty" json:"soldDate,omitempty"`

	// Cancellation
	CancelReason string     `gorm:"size:500" bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	Notes         datatypes.JSONSlice[Note]         `gorm:"type:jsonb;not null" bson:"notes" json:"notes"`
	StatusHistory datatypes.JSONSlice[StatusChange] `gorm:"type:jsonb;not null" bson:"statusHistory" json:"statusHistory"`

	Version   int64     `gorm:"-" bson:"version" json:"-"`
	CreatedAt time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
