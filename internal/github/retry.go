package github

import (
	"context"
	"errors"
	"time"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	gh "github.com/google/go-github/v68/github"
)

const (
	defaultMaxRetries = 3
	baseBackoff       = time.Second
	maxBackoff        = time.Minute
)

// call runs fn, retrying while GitHub reports a rate limit. The wait before
// each retry honors the reset time or Retry-After hint when one is given,
// otherwise it doubles from baseBackoff. Errors are classified by kind.
func (r *GitHubRepository) call(ctx context.Context, op, id string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		classified := classifyError(op, id, err)
		if !errors.Is(classified, graph.ErrRateLimited) || attempt >= r.maxRetries {
			return classified
		}

		wait := retryDelay(err, attempt, time.Now())
		r.log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("rate limited, retrying")

		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// retryDelay returns how long to wait before retry number attempt+1.
func retryDelay(err error, attempt int, now time.Time) time.Duration {
	var hint time.Duration

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
		gqlErr   *graphQLError
	)
	switch {
	case errors.As(err, &rateErr):
		hint = rateErr.Rate.Reset.Sub(now)
	case errors.As(err, &abuseErr):
		hint = abuseErr.GetRetryAfter()
	case errors.As(err, &gqlErr):
		hint = gqlErr.RetryAfter
	}

	if hint <= 0 {
		hint = baseBackoff << attempt
	}
	return min(hint, maxBackoff)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
