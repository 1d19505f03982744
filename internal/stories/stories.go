// Package stories ranks the upstream best stories by score.
package stories

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/beststories/cache"
	"github.com/briangreenhill/beststories/hackernews"
)

// DefaultTTL is how long the id list and each story stay cached.
const DefaultTTL = 5 * time.Minute

var ErrInvalidCount = errors.New("n must be greater than 0")

// Upstream is the part of hackernews.Client the service needs.
type Upstream interface {
	BestStoryIDs(ctx context.Context) ([]int, error)
	Story(ctx context.Context, id int) (hackernews.Lookup, error)
}

// BestStory is the response shape of one ranked story.
type BestStory struct {
	Title        string    `json:"title"`
	URI          string    `json:"uri"`
	PostedBy     string    `json:"postedBy"`
	Time         time.Time `json:"time"`
	Score        int       `json:"score"`
	CommentCount int       `json:"commentCount"`
}

// FromItem projects an upstream item into a BestStory.
func FromItem(item hackernews.Item) BestStory {
	return BestStory{
		Title:        item.Title,
		URI:          item.URL,
		PostedBy:     item.By,
		Time:         time.Unix(item.Time, 0).UTC(),
		Score:        item.Score,
		CommentCount: item.Descendants,
	}
}

type Options struct {
	Upstream Upstream
	Cache    *cache.Memory
	Gate     *Gate
	TTL      time.Duration // zero means DefaultTTL
}

type Service struct {
	upstream Upstream
	cache    *cache.Memory
	gate     *Gate
	ttl      time.Duration
}

func New(opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{upstream: opts.Upstream, cache: opts.Cache, gate: opts.Gate, ttl: ttl}
}

// BestStories returns up to n of the upstream best stories, highest score
// first. Stories with equal scores keep their upstream ranking order. Ids
// upstream no longer has are skipped, so the result may be shorter than n.
// Any upstream failure fails the whole call.
func (s *Service) BestStories(ctx context.Context, n int) ([]BestStory, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	log := zerolog.Ctx(ctx)
	start := time.Now()

	ids, err := cache.GetOrCompute(ctx, s.cache, cache.KeyBestIDs, s.ttl, s.upstream.BestStoryIDs)
	if err != nil {
		return nil, fmt.Errorf("get best story ids: %w", err)
	}
	if n < len(ids) {
		ids = ids[:n]
	}

	lookups, err := s.fetchAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]hackernews.Item, 0, len(lookups))
	for _, l := range lookups {
		if item, ok := l.Get(); ok {
			items = append(items, item)
		}
	}
	slices.SortStableFunc(items, func(a, b hackernews.Item) int {
		return cmp.Compare(b.Score, a.Score)
	})

	out := make([]BestStory, len(items))
	for i, item := range items {
		out[i] = FromItem(item)
	}

	log.Debug().
		Int("n", n).
		Int("selected", len(ids)).
		Int("returned", len(out)).
		Dur("took", time.Since(start)).
		Msg("ranked best stories")

	return out, nil
}

// fetchAll retrieves every id through the cache. Results keep the order of
// ids. Each upstream call holds one gate slot from before it starts until it
// returns, even when no caller is still waiting for it, so cache hits and
// shared flights take no slot. The first failure cancels the retrievals
// still waiting for a slot.
func (s *Service) fetchAll(ctx context.Context, ids []int) ([]hackernews.Lookup, error) {
	lookups := make([]hackernews.Lookup, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			l, err := cache.GetOrCompute(gctx, s.cache, cache.StoryKey(id), s.ttl, func(fctx context.Context) (hackernews.Lookup, error) {
				return s.fetchStory(gctx, fctx, id)
			})
			if err != nil {
				return fmt.Errorf("get story %d: %w", id, err)
			}
			lookups[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lookups, nil
}

// fetchStory waits for a gate slot on behalf of the caller that started the
// flight, then calls upstream on the detached flight context.
func (s *Service) fetchStory(callerCtx, flightCtx context.Context, id int) (hackernews.Lookup, error) {
	if err := s.gate.Acquire(callerCtx); err != nil {
		return hackernews.NotFound, fmt.Errorf("%w: %w", cache.ErrAbandoned, err)
	}
	defer s.gate.Release()

	return s.upstream.Story(flightCtx, id)
}
