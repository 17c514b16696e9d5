package models

// Counter backs the monotonic sequence used for listing and quotation numbers.
type Counter struct {
	Name  string `gorm:"size:50;primaryKey" bson:"_id" json:"name"`
	Value int64  `gorm:"not null;default:0" bson:"value" json:"value"`
}
