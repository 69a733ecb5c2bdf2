package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"aura-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundRunnerOutlivesParent(t *testing.T) {
	r := newBackgroundRunner(time.Second, logger.NewNopLogger())
	parent, cancel := context.WithCancel(context.Background())

	var ran atomic.Bool
	r.Go(parent, "detached", nil, func(ctx context.Context) error {
		cancel()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			ran.Store(true)
			return nil
		}
	})
	r.Wait()
	assert.True(t, ran.Load())
}

func TestBackgroundRunnerContainsFailures(t *testing.T) {
	r := newBackgroundRunner(10*time.Millisecond, logger.NewNopLogger())

	var deadline atomic.Bool
	r.Go(context.Background(), "panics", nil, func(ctx context.Context) error {
		panic("boom")
	})
	r.Go(context.Background(), "errors", nil, func(ctx context.Context) error {
		return errors.New("failed")
	})
	r.Go(context.Background(), "times out", nil, func(ctx context.Context) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})

	assert.NotPanics(t, r.Wait)
	assert.True(t, deadline.Load())
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := map[string]interface{}{"chat_id": "c"}
	b := map[string]interface{}{"stage": "embed"}

	out := merge(a, b)
	assert.Equal(t, map[string]interface{}{"chat_id": "c", "stage": "embed"}, out)
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}
