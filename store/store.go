// Package store defines persistence for users, draws, wallets, tickets and
// support messages. Implementations live in the memory, mongo and postgres
// subpackages and must keep wallet and ticket counters consistent under
// concurrent requests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bellapacxx/guba-backend/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrSoldOut           = errors.New("not enough tickets left")
	ErrPostClosed        = errors.New("draw is closed")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id, role string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type PostStore interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]models.Post, error)
	// UpdatePost writes only the fields set in patch and returns the post as
	// stored afterwards.
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	// CloseExpiredPosts marks open posts whose end date is before now as
	// closed and returns them.
	CloseExpiredPosts(ctx context.Context, now time.Time) ([]models.Post, error)
}

// WalletMutation describes a single balance change and the ledger entry it
// produces. Store implementations fill in BalanceAfter and CreatedAt.
type WalletMutation struct {
	UserID    string
	Amount    models.Amount
	Entry     models.Transaction
	Timestamp time.Time
}

type WalletStore interface {
	// GetWallet returns ErrNotFound when the user never deposited.
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	// Credit adds to the balance, creating the wallet if needed.
	Credit(ctx context.Context, m WalletMutation) (*models.Wallet, error)
	// Debit subtracts from the balance or fails with ErrInsufficientFunds.
	Debit(ctx context.Context, m WalletMutation) (*models.Wallet, error)
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// Purchase is a ticket purchase request. Total is debited from the buyer's
// wallet and Quantity taken off the post in one unit of work.
type Purchase struct {
	Ticket models.Ticket
	Entry  models.Transaction
	Now    time.Time
}

type TicketStore interface {
	// PurchaseTickets either applies the whole purchase or nothing. It
	// returns the post and wallet as they are after the purchase.
	PurchaseTickets(ctx context.Context, p Purchase) (*models.Post, *models.Wallet, error)
	ListTickets(ctx context.Context, userID string) ([]models.Ticket, error)
}

type SupportStore interface {
	CreateSupportMessage(ctx context.Context, m *models.SupportMessage) error
	GetSupportMessage(ctx context.Context, id string) (*models.SupportMessage, error)
	ListSupportMessages(ctx context.Context, userID string) ([]models.SupportMessage, error)
	RespondSupportMessage(ctx context.Context, id, response string, at time.Time) (*models.SupportMessage, error)
}

type Store interface {
	UserStore
	PostStore
	WalletStore
	TicketStore
	SupportStore
	Close(ctx context.Context) error
}
