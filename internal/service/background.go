package service

import (
	"context"
	"sync"
	"time"

	"aura-chat-be/internal/pkg/logger"
)

// backgroundRunner runs work that must outlive the request that started it.
// Each task gets a context detached from its parent's cancellation, a timeout
// and a recover boundary.
type backgroundRunner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  logger.ILogger
}

func newBackgroundRunner(timeout time.Duration, log logger.ILogger) *backgroundRunner {
	return &backgroundRunner{timeout: timeout, logger: log}
}

func (r *backgroundRunner) Go(parent context.Context, stage string, fields map[string]interface{}, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Background", "Task panicked", merge(fields, map[string]interface{}{
					"stage": stage,
					"panic": p,
				}))
			}
		}()

		ctx, cancel := withTimeout(context.WithoutCancel(parent), r.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.logger.Warn("Background", "Task failed", merge(fields, map[string]interface{}{
				"stage": stage,
				"error": err,
			}))
		}
	}()
}

func (r *backgroundRunner) Wait() {
	r.wg.Wait()
}

func merge(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
