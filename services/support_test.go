package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := register(t, f, "alice@example.com").User
	bob := register(t, f, "bob@example.com").User

	m, err := f.support.Create(ctx, alice.ID, "  I was charged twice  ")
	require.NoError(t, err)
	assert.Equal(t, "I was charged twice", m.Message)
	assert.Equal(t, alice.Email, m.UserEmail)
	assert.Equal(t, models.SupportOpen, m.Status)

	f.now = f.now.Add(time.Minute)
	_, err = f.support.Create(ctx, bob.ID, "How do draws work?")
	require.NoError(t, err)

	mine, err := f.support.ListMine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := f.support.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, bob.ID, all[0].UserID)

	answered, err := f.support.Respond(ctx, m.ID, "Refunded")
	require.NoError(t, err)
	assert.Equal(t, models.SupportAnswered, answered.Status)
	assert.Equal(t, "Refunded", answered.AdminResponse)
	require.NotNil(t, answered.RespondedAt)
}

func TestSupportValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := register(t, f, "alice@example.com").User

	_, err := f.support.Create(ctx, u.ID, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.support.Create(ctx, u.ID, strings.Repeat("a", maxSupportMessage+1))
	assert.ErrorAs(t, err, &verr)

	_, err = f.support.Create(ctx, "ghost", "hello")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.support.Respond(ctx, "missing", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.support.Respond(ctx, "missing", "")
	assert.ErrorAs(t, err, &verr)
}
