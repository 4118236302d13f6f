package models

import "time"

const (
	SupportOpen     = "open"
	SupportAnswered = "answered"
)

type SupportMessage struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	UserID        string     `gorm:"index;not null;type:varchar(36)" bson:"user" json:"user"`
	UserName      string     `bson:"userName" json:"userName"`
	UserEmail     string     `bson:"userEmail" json:"userEmail"`
	Message       string     `gorm:"not null" bson:"message" json:"message"`
	AdminResponse string     `bson:"adminResponse,omitempty" json:"adminResponse,omitempty"`
	Status        string     `gorm:"not null;default:open" bson:"status" json:"status"`
	CreatedAt     time.Time  `gorm:"index" bson:"createdAt" json:"createdAt"`
	RespondedAt   *time.Time `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}
