package models

import (
	"time"

	"gorm.io/datatypes"
)

type TransactionType string

const (
	DepositTransaction  TransactionType = "deposit"
	WithdrawTransaction TransactionType = "withdraw"
	PurchaseTransaction TransactionType = "purchase"
)

// Transaction is one ledger entry. Every wallet mutation writes exactly one.
type Transaction struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	UserID       string            `gorm:"index;not null;type:varchar(36)" bson:"user" json:"user"`
	Type         TransactionType   `gorm:"not null" bson:"type" json:"type"`
	Amount       Amount            `gorm:"not null" bson:"amount" json:"amount"`
	BalanceAfter Amount            `gorm:"not null" bson:"balanceAfter" json:"balanceAfter"`
	Reference    string            `bson:"reference,omitempty" json:"reference,omitempty"`
	PostID       string            `gorm:"type:varchar(36)" bson:"post,omitempty" json:"post,omitempty"`
	Meta         datatypes.JSONMap `gorm:"type:jsonb" bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt    time.Time         `gorm:"index" bson:"date" json:"date"`
}
