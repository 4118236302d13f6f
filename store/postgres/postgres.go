// Package postgres stores everything in PostgreSQL through gorm. Balance and
// ticket changes run inside a transaction holding row locks.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return New(db), nil
}

// Config is the gorm configuration every connection uses.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Wallet{},
		&models.Transaction{},
		&models.Ticket{},
		&models.SupportMessage{},
	)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConflict
	}
	return err
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// ----------------------
// Users
// ----------------------

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&users).Error
	return users, translate(err)
}

func (s *Store) UpdateUserRole(ctx context.Context, id, role string) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ----------------------
// Posts
// ----------------------

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&posts).Error
	return posts, translate(err)
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(postColumns(patch))
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetPost(ctx, id)
}

func postColumns(patch models.PostPatch) map[string]any {
	cols := map[string]any{"updated_at": patch.UpdatedAt}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Slug != nil {
		cols["slug"] = *patch.Slug
	}
	if patch.Value != nil {
		cols["value"] = *patch.Value
	}
	if patch.TicketsLeft != nil {
		cols["tickets_left"] = *patch.TicketsLeft
	}
	if patch.TicketPrice != nil {
		cols["ticket_price"] = int64(*patch.TicketPrice)
	}
	if patch.Image != nil {
		cols["image"] = *patch.Image
	}
	if patch.EndDate != nil {
		cols["end_date"] = *patch.EndDate
	}
	if patch.Category != nil {
		cols["category"] = *patch.Category
	}
	if patch.Featured != nil {
		cols["featured"] = *patch.Featured
	}
	if patch.Status != nil {
		cols["status"] = *patch.Status
	}
	return cols
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CloseExpiredPosts(ctx context.Context, now time.Time) ([]models.Post, error) {
	var closed []models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			Where("status = ? AND end_date < ? AND end_date > ?", models.PostOpen, now, time.Time{}).
			Find(&closed).Error; err != nil {
			return err
		}
		if len(closed) == 0 {
			return nil
		}
		ids := make([]string, 0, len(closed))
		for i := range closed {
			ids = append(ids, closed[i].ID)
			closed[i].Status = models.PostClosed
			closed[i].UpdatedAt = now
		}
		return tx.Model(&models.Post{}).Where("id IN ?", ids).
			Updates(map[string]any{"status": models.PostClosed, "updated_at": now}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return closed, nil
}

// ----------------------
// Wallets
// ----------------------

func (s *Store) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (s *Store) Credit(ctx context.Context, m store.WalletMutation) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := models.Wallet{ID: uuid.NewString(), UserID: m.UserID, CreatedAt: m.Timestamp, UpdatedAt: m.Timestamp}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&fresh).Error; err != nil {
			return err
		}
		if err := forUpdate(tx).Where("user_id = ?", m.UserID).First(&w).Error; err != nil {
			return err
		}
		balance, err := w.Balance.Add(m.Amount)
		if err != nil {
			return err
		}
		w.Balance = balance
		return applyBalance(tx, &w, m.Entry, m.Timestamp)
	})
	if err != nil {
		return nil, fmt.Errorf("credit wallet: %w", translate(err))
	}
	return &w, nil
}

func (s *Store) Debit(ctx context.Context, m store.WalletMutation) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockWalletWithFunds(tx, m.UserID, m.Amount, &w); err != nil {
			return err
		}
		w.Balance -= m.Amount
		return applyBalance(tx, &w, m.Entry, m.Timestamp)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func lockWalletWithFunds(tx *gorm.DB, userID string, amount models.Amount, w *models.Wallet) error {
	err := forUpdate(tx).Where("user_id = ?", userID).First(w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if w.Balance < amount {
		return store.ErrInsufficientFunds
	}
	return nil
}

// applyBalance persists w.Balance and writes the matching ledger entry.
func applyBalance(tx *gorm.DB, w *models.Wallet, entry models.Transaction, at time.Time) error {
	w.UpdatedAt = at
	if err := tx.Model(&models.Wallet{}).Where("id = ?", w.ID).
		Updates(map[string]any{"balance": w.Balance, "updated_at": at}).Error; err != nil {
		return err
	}
	entry.BalanceAfter = w.Balance
	entry.CreatedAt = at
	return tx.Create(&entry).Error
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&txs).Error
	return txs, translate(err)
}

// ----------------------
// Tickets
// ----------------------

func (s *Store) PurchaseTickets(ctx context.Context, p store.Purchase) (*models.Post, *models.Wallet, error) {
	var (
		post models.Post
		w    models.Wallet
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", p.Ticket.PostID).First(&post).Error; err != nil {
			return err
		}
		if !post.Purchasable(p.Now) {
			return store.ErrPostClosed
		}
		if post.TicketsLeft < p.Ticket.Quantity {
			return store.ErrSoldOut
		}
		if err := lockWalletWithFunds(tx, p.Ticket.UserID, p.Ticket.Total, &w); err != nil {
			return err
		}

		post.TicketsLeft -= p.Ticket.Quantity
		post.UpdatedAt = p.Now
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			Updates(map[string]any{"tickets_left": post.TicketsLeft, "updated_at": p.Now}).Error; err != nil {
			return err
		}

		ticket := p.Ticket
		ticket.CreatedAt = p.Now
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}

		w.Balance -= p.Ticket.Total
		return applyBalance(tx, &w, p.Entry, p.Now)
	})
	if err != nil {
		return nil, nil, translate(err)
	}
	return &post, &w, nil
}

func (s *Store) ListTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&tickets).Error
	return tickets, translate(err)
}

// ----------------------
// Support
// ----------------------

func (s *Store) CreateSupportMessage(ctx context.Context, m *models.SupportMessage) error {
	return translate(s.db.WithContext(ctx).Create(m).Error)
}

func (s *Store) GetSupportMessage(ctx context.Context, id string) (*models.SupportMessage, error) {
	var m models.SupportMessage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) ListSupportMessages(ctx context.Context, userID string) ([]models.SupportMessage, error) {
	msgs := []models.SupportMessage{}
	q := s.db.WithContext(ctx).Order("created_at desc")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, translate(err)
	}
	return msgs, nil
}

func (s *Store) RespondSupportMessage(ctx context.Context, id, response string, at time.Time) (*models.SupportMessage, error) {
	res := s.db.WithContext(ctx).Model(&models.SupportMessage{}).Where("id = ?", id).
		Updates(map[string]any{"admin_response": response, "status": models.SupportAnswered, "responded_at": at})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetSupportMessage(ctx, id)
}
