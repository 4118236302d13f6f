package services

import (
	"context"
	"testing"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	f := newFixture()
	s := NewScheduler(f.posts)
	assert.Error(t, s.Start("every now and then"))
}

func TestSchedulerJobClosesDraws(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := f.posts.Create(ctx, PostInput{Name: strPtr("Car"), EndDate: strPtr("2025-06-01T12:30:00Z")})
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	s := NewScheduler(f.posts)
	s.closeExpiredDraws()

	got, err := f.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostClosed, got.Status)

	require.NoError(t, s.Start("@every 1h"))
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	s.Stop(stopCtx)
}

func TestSchedulerLogsRecoveredPanics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core).Sugar()
	defer func() { logger.Log = prev }()

	s := NewScheduler(newFixture().posts)
	_, err := s.cron.AddFunc("@every 1h", func() { panic("boom") })
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	assert.NotPanics(t, func() { entries[0].WrappedJob.Run() })

	panics := logs.FilterMessage("cron: panic").All()
	require.Len(t, panics, 1)
	assert.Equal(t, zapcore.ErrorLevel, panics[0].Level)
	assert.Equal(t, "boom", panics[0].ContextMap()["error"])
}
