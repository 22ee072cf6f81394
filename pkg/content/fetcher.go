package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/macropower/rulecat/pkg/cache"
	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/log"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultAttempts    = 3
	DefaultConcurrency = 5

	defaultRetryInterval = 200 * time.Millisecond
	maxRetryInterval     = 2 * time.Second
)

// Fetch outcomes reported to an [Observer].
const (
	OutcomeHit    = "hit"
	OutcomeRemote = "remote"
	OutcomeError  = "error"
)

var tracer = otel.Tracer("content")

// Observer is notified of every resolution attempt.
type Observer interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

// Fetcher resolves [catalog.RuleInfo] values into [Rule] values.
type Fetcher struct {
	store         Store
	cache         *cache.Cache[Rule]
	observer      Observer
	now           func() time.Time
	group         singleflight.Group
	revision      string
	timeout       time.Duration
	retryInterval time.Duration
	attempts      int
	concurrency   int
}

// FetcherOpt configures a [Fetcher].
type FetcherOpt func(*Fetcher)

// WithRevision pins the store revision, e.g. a tag or commit. Cached rules
// are keyed by revision, so fetchers on different revisions can share a
// cache.
func WithRevision(revision string) FetcherOpt {
	return func(f *Fetcher) {
		f.revision = revision
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) FetcherOpt {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithAttempts sets the maximum number of attempts per document.
func WithAttempts(n int) FetcherOpt {
	return func(f *Fetcher) {
		f.attempts = n
	}
}

// WithRetryInterval sets the initial backoff interval between attempts.
func WithRetryInterval(d time.Duration) FetcherOpt {
	return func(f *Fetcher) {
		f.retryInterval = d
	}
}

// WithConcurrency bounds the number of concurrent resolutions.
func WithConcurrency(n int) FetcherOpt {
	return func(f *Fetcher) {
		f.concurrency = n
	}
}

// WithObserver sets an [Observer].
func WithObserver(o Observer) FetcherOpt {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// WithFetchClock replaces [time.Now] for fetchedAt timestamps.
func WithFetchClock(now func() time.Time) FetcherOpt {
	return func(f *Fetcher) {
		f.now = now
	}
}

// NewFetcher creates a new [Fetcher]. A nil cache uses [SharedCache].
func NewFetcher(store Store, c *cache.Cache[Rule], opts ...FetcherOpt) *Fetcher {
	if c == nil {
		c = SharedCache(cache.DefaultTTL)
	}

	f := &Fetcher{
		store:         store,
		cache:         c,
		now:           time.Now,
		timeout:       DefaultTimeout,
		retryInterval: defaultRetryInterval,
		attempts:      DefaultAttempts,
		concurrency:   DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.attempts = max(f.attempts, 1)
	f.concurrency = max(f.concurrency, 1)

	return f
}

// Cache returns the cache used by the [Fetcher].
func (f *Fetcher) Cache() *cache.Cache[Rule] {
	return f.cache
}

// Fetch resolves infos concurrently. Rules that fail to resolve are omitted,
// and the remaining rules keep the order of infos.
func (f *Fetcher) Fetch(ctx context.Context, infos []catalog.RuleInfo) []Rule {
	ctx, span := tracer.Start(ctx, "fetch rules", trace.WithAttributes(
		attribute.Int("rules.requested", len(infos)),
	))
	defer span.End()

	logger := log.FromContext(ctx)
	results := make([]*Rule, len(infos))

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for i, info := range infos {
		g.Go(func() error {
			r, err := f.FetchOne(ctx, info)
			if err != nil {
				logger.DebugContext(ctx, "drop rule", "path", info.Path, "err", err)
				return nil
			}

			results[i] = &r

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Goroutines never return errors.

	rules := make([]Rule, 0, len(infos))
	for _, r := range results {
		if r != nil {
			rules = append(rules, *r)
		}
	}

	span.SetAttributes(attribute.Int("rules.resolved", len(rules)))

	return rules
}

// FetchOne resolves a single rule, consulting the cache first.
//
// Concurrent calls for the same rule share one remote fetch. That fetch is
// bounded by the per-attempt timeout and attempt count, not by any caller's
// context, so a cancelled caller returns early without failing the others.
func (f *Fetcher) FetchOne(ctx context.Context, info catalog.RuleInfo) (Rule, error) {
	start := time.Now()
	key := CacheKey(f.revision, info.Path)

	cached, ok := f.cache.Get(key)
	if ok {
		if cached.Valid(info.Path) {
			cached.Source = SourceCache
			f.observe(OutcomeHit, start)

			return cached, nil
		}

		f.cache.Delete(key)
	}

	err := ctx.Err()
	if err != nil {
		f.observe(OutcomeError, start)
		return Rule{}, fmt.Errorf("fetch %s: %w", info.Path, err)
	}

	ch := f.group.DoChan(key, func() (any, error) {
		return f.fetchRemote(context.WithoutCancel(ctx), key, info)
	})

	select {
	case <-ctx.Done():
		f.observe(OutcomeError, start)
		return Rule{}, fmt.Errorf("fetch %s: %w", info.Path, ctx.Err())

	case res := <-ch:
		if res.Err != nil {
			f.observe(OutcomeError, start)
			return Rule{}, res.Err //nolint:wrapcheck // Wrapped by fetchRemote.
		}

		r, ok := res.Val.(Rule)
		if !ok {
			f.observe(OutcomeError, start)
			return Rule{}, fmt.Errorf("unexpected result type %T", res.Val)
		}

		f.observe(OutcomeRemote, start)

		return r, nil
	}
}

// CacheKey returns the cache key of the rule at path in revision.
func CacheKey(revision, path string) string {
	if revision == "" {
		return path
	}

	return path + "@" + revision
}

func (f *Fetcher) fetchRemote(ctx context.Context, key string, info catalog.RuleInfo) (Rule, error) {
	ctx, span := tracer.Start(ctx, "fetch rule", trace.WithAttributes(
		attribute.String("rule.path", info.Path),
		attribute.String("rule.revision", f.revision),
	))
	defer span.End()

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++

		actx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		data, err := f.store.Get(actx, f.revision, info.Path)
		if err != nil {
			if isPermanent(err) {
				return nil, backoff.Permanent(err)
			}

			log.FromContext(ctx).DebugContext(ctx, "retry fetch",
				"path", info.Path,
				"attempt", attempt,
				"err", err,
			)

			return nil, err
		}

		if len(bytes.TrimSpace(data)) == 0 {
			return nil, backoff.Permanent(ErrEmptyContent)
		}

		return data, nil
	},
		backoff.WithBackOff(f.backoff()),
		backoff.WithMaxTries(uint(f.attempts)), //nolint:gosec // G115: attempts is at least 1.
	)

	span.SetAttributes(attribute.Int("fetch.attempts", attempt))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}

		return Rule{}, fmt.Errorf("fetch %s: %w", info.Path, err)
	}

	r := NewRule(info, string(body), f.now())
	f.cache.Set(key, r)

	return r, nil
}

func (f *Fetcher) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxInterval = maxRetryInterval

	return b
}

func (f *Fetcher) observe(outcome string, start time.Time) {
	if f.observer != nil {
		f.observer.ObserveFetch(outcome, time.Since(start))
	}
}
