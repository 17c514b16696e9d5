package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditCreate     AuditAction = "create"
	AuditUpdate     AuditAction = "update"
	AuditTransition AuditAction = "transition"
	AuditDelete     AuditAction = "delete"
)

// AuditLog records who did what to which entity. Unlike statusHistory it
// outlives the entity it describes.
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	CreatedAt time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`

	// Empty for anonymous callers (buyer interest).
	UserID string `gorm:"size:36;index" bson:"userId" json:"userId"`

	// "crop_listing" or "quotation"
	EntityType string `gorm:"size:50;index" bson:"entityType" json:"entityType"`
	EntityID   string `gorm:"size:36;index" bson:"entityId" json:"entityId"`

	Action      AuditAction `gorm:"size:20" bson:"action" json:"action"`
	Description string      `gorm:"size:255" bson:"description" json:"description"`

	BeforeData datatypes.JSON `gorm:"type:jsonb" bson:"beforeData" json:"beforeData"`
	AfterData  datatypes.JSON `gorm:"type:jsonb" bson:"afterData" json:"afterData"`

	Version int64 `gorm:"-" bson:"version" json:"-"`
}
