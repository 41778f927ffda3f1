package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-verifier/internal/config"
)

type stubExpirer struct {
	maxAge    time.Duration
	batchSize int
	deleted   int64
	err       error
}

func (s *stubExpirer) DeleteOlderThan(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.maxAge = maxAge
	s.batchSize = batchSize
	return s.deleted, s.err
}

func TestRunOnceDeletesExpiredDocuments(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	exp := &stubExpirer{deleted: 12}
	cfg := &config.Retention{MaxAge: 72 * time.Hour, BatchSize: 500}

	runOnce(context.Background(), log, exp, cfg)

	require.Equal(t, 72*time.Hour, exp.maxAge)
	require.Equal(t, 500, exp.batchSize)
	require.Contains(t, buf.String(), "deleted=12")
}

func TestRunOnceLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	exp := &stubExpirer{err: errors.New("cluster red")}

	runOnce(context.Background(), log, exp, &config.Retention{MaxAge: time.Hour, BatchSize: 10})

	require.Contains(t, buf.String(), "retention run failed")
	require.Contains(t, buf.String(), "cluster red")
}
