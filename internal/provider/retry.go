package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mixzter/duel/internal/mixzter"
)

// Source is anything that can produce a fact for a category.
type Source interface {
	Fact(ctx context.Context, category mixzter.Category, exclude []string) (mixzter.Fact, error)
}

// Retrying retries a Source with exponential backoff. The engine surfaces
// the final error to the player, who can retry by hand.
type Retrying struct {
	next    Source
	tries   uint
	initial time.Duration
	logger  *slog.Logger
}

// NewRetrying wraps next. tries counts the first attempt, so 1 disables
// retrying.
func NewRetrying(next Source, tries uint, initial time.Duration, logger *slog.Logger) *Retrying {
	if tries == 0 {
		tries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, tries: tries, initial: initial, logger: logger}
}

func (r *Retrying) Fact(ctx context.Context, category mixzter.Category, exclude []string) (mixzter.Fact, error) {
	b := backoff.NewExponentialBackOff()
	if r.initial > 0 {
		b.InitialInterval = r.initial
	}

	op := func() (mixzter.Fact, error) {
		f, err := r.next.Fact(ctx, category, exclude)
		if err != nil && ctx.Err() != nil {
			return f, backoff.Permanent(err)
		}
		return f, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.tries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.Warn("fact request failed, retrying", "category", category, "wait", wait, "error", err)
		}),
	)
}
