package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	runs atomic.Int32
}

func (s *countingSweeper) ExpireEvents(context.Context) (int, error) {
	s.runs.Add(1)
	return 2, nil
}

func TestManagerRunsSweepImmediately(t *testing.T) {
	sweeper := &countingSweeper{}
	manager, err := NewManager(sweeper, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, manager.Start(ctx))
	t.Cleanup(func() { _ = manager.Shutdown() })

	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
