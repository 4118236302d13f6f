package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Username     string    `gorm:"not null" bson:"username" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	Phone        string    `bson:"phone" json:"phone"`
	PasswordHash string    `gorm:"not null" bson:"passwordHash" json:"-"`
	Role         string    `gorm:"not null;default:user" bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one the API accepts.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
