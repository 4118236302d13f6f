package services

import (
	"context"
	"strings"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/google/uuid"
)

const maxSupportMessage = 2000

type SupportService struct {
	support store.SupportStore
	users   store.UserStore
	now     func() time.Time
}

func NewSupportService(support store.SupportStore, users store.UserStore) *SupportService {
	return &SupportService{support: support, users: users, now: time.Now}
}

// Create files a message on behalf of userID, copying their name and email
// so the admin console can show them without a join.
func (s *SupportService) Create(ctx context.Context, userID, message string) (*models.SupportMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidf("message is required")
	}
	if len(message) > maxSupportMessage {
		return nil, invalidf("message must be at most %d characters", maxSupportMessage)
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := &models.SupportMessage{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		UserName:  u.Username,
		UserEmail: u.Email,
		Message:   message,
		Status:    models.SupportOpen,
		CreatedAt: s.now(),
	}
	if err := s.support.CreateSupportMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SupportService) ListMine(ctx context.Context, userID string) ([]models.SupportMessage, error) {
	return s.support.ListSupportMessages(ctx, userID)
}

func (s *SupportService) ListAll(ctx context.Context) ([]models.SupportMessage, error) {
	return s.support.ListSupportMessages(ctx, "")
}

func (s *SupportService) Respond(ctx context.Context, id, response string) (*models.SupportMessage, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, invalidf("response is required")
	}
	return s.support.RespondSupportMessage(ctx, id, response, s.now())
}
