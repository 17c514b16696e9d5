package models

import "time"

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	FullName     string    `gorm:"size:100;not null" bson:"fullname" json:"fullname"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" bson:"username" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" bson:"passwordHash" json:"-"`
	Phone        string    `gorm:"size:10" bson:"phone,omitempty" json:"phone,omitempty"`
	Version      int64     `gorm:"-" bson:"version" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
