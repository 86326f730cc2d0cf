package server

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	provisionInitialInterval = time.Second
	provisionMaxInterval     = 30 * time.Second
)

type indexProvisioner interface {
	EnsureIndexes(ctx context.Context) error
}

func newProvisionBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = provisionInitialInterval
	b.MaxInterval = provisionMaxInterval
	b.MaxElapsedTime = 0
	return b
}

// provisionWithRetry calls EnsureIndexes until it succeeds or ctx ends. Each
// attempt gets its own indexTimeout.
func provisionWithRetry(ctx context.Context, logger *zap.Logger, name string, p indexProvisioner, policy backoff.BackOff) error {
	attempt := 0
	operation := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, indexTimeout)
		defer cancel()
		return p.EnsureIndexes(attemptCtx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("index provisioning failed, retrying",
			zap.String("collection", name),
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", next),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return err
	}
	logger.Info("indexes ready", zap.String("collection", name), zap.Int("attempts", attempt))
	return nil
}
