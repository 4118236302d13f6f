package models

import "time"

// Ticket records one purchase of one or more tickets for a post.
type Ticket struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	PostID    string    `gorm:"index;not null;type:varchar(36)" bson:"post" json:"post"`
	UserID    string    `gorm:"index;not null;type:varchar(36)" bson:"user" json:"user"`
	Quantity  int       `gorm:"not null" bson:"quantity" json:"quantity"`
	UnitPrice Amount    `gorm:"not null" bson:"unitPrice" json:"unitPrice"`
	Total     Amount    `gorm:"not null" bson:"total" json:"total"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
