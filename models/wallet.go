package models

import "time"

type Wallet struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	UserID    string    `gorm:"uniqueIndex;not null;type:varchar(36)" bson:"user" json:"user"`
	Balance   Amount    `gorm:"not null;default:0" bson:"balance" json:"balance"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
