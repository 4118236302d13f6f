// Package memory is a map-backed store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/google/uuid"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]models.User
	posts        map[string]models.Post
	wallets      map[string]models.Wallet // key = user id
	transactions []models.Transaction
	tickets      []models.Ticket
	support      map[string]models.SupportMessage
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]models.User),
		posts:   make(map[string]models.Post),
		wallets: make(map[string]models.Wallet),
		support: make(map[string]models.SupportMessage),
	}
}

func (s *Store) Close(context.Context) error { return nil }

// ----------------------
// Users
// ----------------------

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; exists {
		return store.ErrConflict
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrConflict
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (s *Store) UpdateUserRole(_ context.Context, id, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return &u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// ----------------------
// Posts
// ----------------------

func (s *Store) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.posts[p.ID]; exists {
		return store.ErrConflict
	}
	s.posts[p.ID] = *p
	return nil
}

func (s *Store) GetPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPosts(context.Context) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (s *Store) UpdatePost(_ context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	patch.Apply(&p)
	s.posts[id] = p
	return &p, nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) CloseExpiredPosts(_ context.Context, now time.Time) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed []models.Post
	for id, p := range s.posts {
		if p.Status != models.PostOpen || p.EndDate.IsZero() || !p.EndDate.Before(now) {
			continue
		}
		p.Status = models.PostClosed
		p.UpdatedAt = now
		s.posts[id] = p
		closed = append(closed, p)
	}
	return closed, nil
}

// ----------------------
// Wallets
// ----------------------

func (s *Store) GetWallet(_ context.Context, userID string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *Store) Credit(_ context.Context, m store.WalletMutation) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[m.UserID]
	if !ok {
		w = models.Wallet{ID: uuid.NewString(), UserID: m.UserID, CreatedAt: m.Timestamp}
	}
	balance, err := w.Balance.Add(m.Amount)
	if err != nil {
		return nil, err
	}
	w.Balance = balance
	w.UpdatedAt = m.Timestamp
	s.wallets[m.UserID] = w
	s.appendEntry(m.Entry, w, m.Timestamp)
	return &w, nil
}

func (s *Store) Debit(_ context.Context, m store.WalletMutation) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[m.UserID]
	if !ok || w.Balance < m.Amount {
		return nil, store.ErrInsufficientFunds
	}
	w.Balance -= m.Amount
	w.UpdatedAt = m.Timestamp
	s.wallets[m.UserID] = w
	s.appendEntry(m.Entry, w, m.Timestamp)
	return &w, nil
}

// appendEntry must be called with s.mu held.
func (s *Store) appendEntry(entry models.Transaction, w models.Wallet, at time.Time) {
	entry.BalanceAfter = w.Balance
	entry.CreatedAt = at
	s.transactions = append(s.transactions, entry)
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

// ----------------------
// Tickets
// ----------------------

func (s *Store) PurchaseTickets(_ context.Context, p store.Purchase) (*models.Post, *models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[p.Ticket.PostID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if !post.Purchasable(p.Now) {
		return nil, nil, store.ErrPostClosed
	}
	if post.TicketsLeft < p.Ticket.Quantity {
		return nil, nil, store.ErrSoldOut
	}
	w, ok := s.wallets[p.Ticket.UserID]
	if !ok || w.Balance < p.Ticket.Total {
		return nil, nil, store.ErrInsufficientFunds
	}

	post.TicketsLeft -= p.Ticket.Quantity
	post.UpdatedAt = p.Now
	s.posts[post.ID] = post

	w.Balance -= p.Ticket.Total
	w.UpdatedAt = p.Now
	s.wallets[w.UserID] = w

	ticket := p.Ticket
	ticket.CreatedAt = p.Now
	s.tickets = append(s.tickets, ticket)
	s.appendEntry(p.Entry, w, p.Now)

	return &post, &w, nil
}

func (s *Store) ListTickets(_ context.Context, userID string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Ticket
	for i := len(s.tickets) - 1; i >= 0; i-- {
		if s.tickets[i].UserID == userID {
			out = append(out, s.tickets[i])
		}
	}
	return out, nil
}

// ----------------------
// Support
// ----------------------

func (s *Store) CreateSupportMessage(_ context.Context, m *models.SupportMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.support[m.ID]; exists {
		return store.ErrConflict
	}
	s.support[m.ID] = *m
	return nil
}

func (s *Store) GetSupportMessage(_ context.Context, id string) (*models.SupportMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.support[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) ListSupportMessages(_ context.Context, userID string) ([]models.SupportMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SupportMessage, 0, len(s.support))
	for _, m := range s.support {
		if userID == "" || m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RespondSupportMessage(_ context.Context, id, response string, at time.Time) (*models.SupportMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.support[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m.AdminResponse = response
	m.Status = models.SupportAnswered
	m.RespondedAt = &at
	s.support[id] = m
	return &m, nil
}
