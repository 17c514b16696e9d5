package models

import "time"

// StatusChange is one entry of an entity's append-only status history.
type StatusChange struct {
	Status    string    `bson:"status" json:"status"`
	ChangedAt time.Time `bson:"changedAt" json:"changedAt"`
	ChangedBy string    `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Rating    *int      `bson:"rating,omitempty" json:"rating,omitempty"`
}

// Note is a free-text remark attached by the owner; it never changes status.
type Note struct {
	Text    string    `bson:"text" json:"text"`
	AddedBy string    `bson:"addedBy" json:"addedBy"`
	AddedAt time.Time `bson:"addedAt" json:"addedAt"`
}
