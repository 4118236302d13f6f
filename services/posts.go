package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/bellapacxx/guba-backend/metrics"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	postsCacheKey      = "posts:list"
	maxTicketsPerOrder = 1000
	dateOnlyLayout     = "2006-01-02"
)

// PostInput carries create and update fields. Nil fields are left unchanged
// on update.
type PostInput struct {
	Name        *string        `json:"name" form:"name"`
	Value       *string        `json:"value" form:"value"`
	TicketsLeft *int           `json:"ticketsLeft" form:"ticketsLeft"`
	TicketPrice *models.Amount `json:"ticketPrice" form:"ticketPrice"`
	Image       *string        `json:"image" form:"-"` // multipart requests may carry a file here; see the controller
	EndDate     *string        `json:"endDate" form:"endDate"`
	Category    *string        `json:"category" form:"category"`
	Featured    *bool          `json:"featured" form:"featured"`
	Status      *string        `json:"status" form:"status"`
}

// PurchaseResult is returned after a successful ticket purchase.
type PurchaseResult struct {
	Message     string        `json:"message"`
	Ticket      models.Ticket `json:"ticket"`
	TicketsLeft int           `json:"ticketsLeft"`
	Balance     models.Amount `json:"balance"`
}

type PostService struct {
	posts    store.PostStore
	tickets  store.TicketStore
	cache    cache.Cache
	cacheTTL time.Duration
	notifier Notifier
	idem     *Idempotency
	now      func() time.Time
}

func NewPostService(posts store.PostStore, tickets store.TicketStore, c cache.Cache, cacheTTL time.Duration, notifier Notifier, idem *Idempotency) *PostService {
	return &PostService{
		posts:    posts,
		tickets:  tickets,
		cache:    c,
		cacheTTL: cacheTTL,
		notifier: notifier,
		idem:     idem,
		now:      time.Now,
	}
}

// parseEndDate accepts RFC3339 or a plain date. A plain date means the draw
// runs until the end of that day (UTC). Empty means no end date.
func parseEndDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.Parse(dateOnlyLayout, s); err == nil {
		return d.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, invalidf("endDate must be RFC3339 or YYYY-MM-DD")
}

// patch normalizes the supplied fields. Only those fields are written on
// update.
func (in *PostInput) patch() (models.PostPatch, error) {
	var pp models.PostPatch
	trimmed := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	pp.Name = trimmed(in.Name)
	if pp.Name != nil {
		sl := slug.Make(*pp.Name)
		pp.Slug = &sl
	}
	pp.Value = trimmed(in.Value)
	pp.TicketsLeft = in.TicketsLeft
	pp.TicketPrice = in.TicketPrice
	pp.Image = trimmed(in.Image)
	if in.EndDate != nil {
		end, err := parseEndDate(*in.EndDate)
		if err != nil {
			return pp, err
		}
		pp.EndDate = &end
	}
	pp.Category = trimmed(in.Category)
	pp.Featured = in.Featured
	pp.Status = in.Status
	return pp, nil
}

func validatePost(p *models.Post) error {
	switch {
	case p.Name == "":
		return invalidf("name is required")
	case p.TicketsLeft < 0:
		return invalidf("ticketsLeft cannot be negative")
	case p.TicketPrice < 0:
		return invalidf("ticketPrice cannot be negative")
	case p.TicketPrice > models.MaxAmount:
		return invalidf("ticketPrice is too large")
	case p.Status != models.PostOpen && p.Status != models.PostClosed:
		return invalidf("status must be one of: %s %s", models.PostOpen, models.PostClosed)
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, in PostInput) (*models.Post, error) {
	now := s.now()
	p := &models.Post{
		ID:        uuid.NewString(),
		Status:    models.PostOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	pp, err := in.patch()
	if err != nil {
		return nil, err
	}
	pp.Apply(p)
	if err := validatePost(p); err != nil {
		return nil, err
	}
	if err := s.posts.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	logger.Infow("draw created", "post", p.ID, "name", p.Name)
	s.broadcast(EventPostCreated, p)
	return p, nil
}

// List returns posts newest first, narrowed by filter. The unfiltered list
// is cached.
func (s *PostService) List(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	all, err := s.cachedList(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Post, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *PostService) cachedList(ctx context.Context) ([]models.Post, error) {
	if b, err := s.cache.Get(ctx, postsCacheKey); err == nil {
		var posts []models.Post
		if err := json.Unmarshal(b, &posts); err == nil {
			return posts, nil
		}
		logger.Warnf("discarding undecodable posts cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.Warnf("read posts cache: %v", err)
	}

	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(posts); err == nil {
		if err := s.cache.Set(ctx, postsCacheKey, b, s.cacheTTL); err != nil {
			logger.Warnf("write posts cache: %v", err)
		}
	}
	return posts, nil
}

func (s *PostService) invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, postsCacheKey); err != nil {
		logger.Warnf("invalidate posts cache: %v", err)
	}
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.GetPost(ctx, id)
}

// Update validates the change against the current post but persists only
// the supplied fields.
func (s *PostService) Update(ctx context.Context, id string, in PostInput) (*models.Post, error) {
	pp, err := in.patch()
	if err != nil {
		return nil, err
	}
	current, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	candidate := *current
	pp.Apply(&candidate)
	if err := validatePost(&candidate); err != nil {
		return nil, err
	}

	pp.UpdatedAt = s.now()
	p, err := s.posts.UpdatePost(ctx, id, pp)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, id string) error {
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	logger.Infow("draw deleted", "post", id)
	return nil
}

// Purchase buys quantity tickets for postID from the user's wallet.
func (s *PostService) Purchase(ctx context.Context, userID, postID string, quantity int, key string) (*PurchaseResult, error) {
	if quantity < 1 || quantity > maxTicketsPerOrder {
		return nil, invalidf("quantity must be between 1 and %d", maxTicketsPerOrder)
	}
	return Do(ctx, s.idem, userID, "purchase:"+postID, key, func() (*PurchaseResult, error) {
		post, err := s.posts.GetPost(ctx, postID)
		if err != nil {
			return nil, err
		}

		total, err := post.TicketPrice.Mul(quantity)
		if err != nil {
			return nil, invalidf("order total is too large")
		}
		now := s.now()
		ticket := models.Ticket{
			ID:        uuid.NewString(),
			PostID:    postID,
			UserID:    userID,
			Quantity:  quantity,
			UnitPrice: post.TicketPrice,
			Total:     total,
		}
		updated, w, err := s.tickets.PurchaseTickets(ctx, store.Purchase{
			Ticket: ticket,
			Now:    now,
			Entry: models.Transaction{
				ID:        uuid.NewString(),
				UserID:    userID,
				Type:      models.PurchaseTransaction,
				Amount:    total,
				Reference: key,
				PostID:    postID,
				Meta:      map[string]any{"ticket": ticket.ID, "quantity": quantity, "post": post.Name},
			},
		})
		if err != nil {
			result := "error"
			if errors.Is(err, store.ErrInsufficientFunds) || errors.Is(err, store.ErrSoldOut) || errors.Is(err, store.ErrPostClosed) {
				result = "rejected"
			}
			metrics.RecordWalletOperation(string(models.PurchaseTransaction), result)
			return nil, err
		}

		metrics.RecordWalletOperation(string(models.PurchaseTransaction), "ok")
		metrics.AddTicketsSold(quantity)
		s.invalidate(ctx)
		logger.Infow("tickets purchased", "user", userID, "post", postID, "quantity", quantity, "total", total.String())
		if s.notifier != nil {
			s.notifier.NotifyUser(userID, Event{Type: EventBalanceUpdated, Data: map[string]any{"balance": w.Balance}})
		}

		ticket.CreatedAt = now
		return &PurchaseResult{
			Message:     "Purchase successful",
			Ticket:      ticket,
			TicketsLeft: updated.TicketsLeft,
			Balance:     w.Balance,
		}, nil
	})
}

func (s *PostService) MyTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	return s.tickets.ListTickets(ctx, userID)
}

// CloseExpired closes every open draw past its end date.
func (s *PostService) CloseExpired(ctx context.Context) (int, error) {
	closed, err := s.posts.CloseExpiredPosts(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if len(closed) == 0 {
		return 0, nil
	}
	s.invalidate(ctx)
	metrics.AddDrawsClosed(len(closed))
	for i := range closed {
		s.broadcast(EventPostClosed, &closed[i])
	}
	return len(closed), nil
}

func (s *PostService) broadcast(kind string, p *models.Post) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(Event{Type: kind, Data: p})
}
