package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// DefaultTTL is how long a reference snapshot is reused.
const DefaultTTL = 24 * time.Hour

// Fetcher loads the full record set of one origin.
type Fetcher func(ctx context.Context) ([]model.ReferenceRecord, error)

// FetchError means an origin could not be fetched and no fresh snapshot
// was available to fall back on. It is fatal to a run.
type FetchError struct {
	Origin model.Origin
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("snapshot: fetch %s: %v", e.Origin, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Cache serves snapshots from a Store while they are fresh and refetches
// them once their TTL lapses.
type Cache struct {
	store Store
	group singleflight.Group
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache wraps store.
func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		now:   time.Now,
		log:   zap.L().With(zap.String("component", "snapshot")),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the stored snapshot for origin if it is younger than ttl.
// Otherwise it calls fetch, stores the result stamped with the current time
// and returns it. A ttl of zero always refetches. Concurrent calls for the
// same origin share one fetch.
func (c *Cache) Get(ctx context.Context, origin model.Origin, fetch Fetcher, ttl time.Duration) (*model.Snapshot, error) {
	log := c.log.With(zap.String("origin", string(origin)))

	if ttl > 0 {
		cached, err := c.store.Get(ctx, origin)
		if err != nil {
			log.Warn("snapshot read failed, refetching", zap.Error(err))
		}
		if cached.Fresh(c.now(), ttl) {
			log.Debug("snapshot cache hit",
				zap.Int("records", len(cached.Records)),
				zap.Time("fetched_at", cached.FetchedAt),
			)
			return cached, nil
		}
	}

	v, err, shared := c.group.Do(string(origin), func() (any, error) {
		records, err := fetch(ctx)
		if err != nil {
			return nil, &FetchError{Origin: origin, Err: err}
		}

		snap := &model.Snapshot{Origin: origin, FetchedAt: c.now(), Records: records}
		if err := c.store.Put(ctx, snap); err != nil {
			log.Warn("snapshot write failed", zap.Error(err))
		}
		log.Info("snapshot refreshed", zap.Int("records", len(records)))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("snapshot fetch shared with concurrent caller")
	}
	return v.(*model.Snapshot), nil
}

// Invalidate drops the stored snapshot for origin.
func (c *Cache) Invalidate(ctx context.Context, origin model.Origin) error {
	return c.store.Delete(ctx, origin)
}

// Clear drops every stored snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}
