package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bereal/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFeedConcurrency bounds blob fetches when none is configured.
const DefaultFeedConcurrency = 8

// FeedService assembles the photo feed and decides which entries are blurred.
type FeedService struct {
	posts       domain.PostRepository
	blobs       domain.BlobStore
	log         *zap.Logger
	concurrency int
	maxPixels   int
	now         func() time.Time

	mu       sync.Mutex
	inflight map[string]*feedLoad
}

type feedLoad struct {
	cancel context.CancelCauseFunc
}

// NewFeedService creates a FeedService. concurrency <= 0 selects
// DefaultFeedConcurrency.
func NewFeedService(posts domain.PostRepository, blobs domain.BlobStore, log *zap.Logger, concurrency int) *FeedService {
	if concurrency <= 0 {
		concurrency = DefaultFeedConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedService{
		posts:       posts,
		blobs:       blobs,
		log:         log,
		concurrency: concurrency,
		maxPixels:   DefaultMaxImagePixels,
		now:         time.Now,
		inflight:    make(map[string]*feedLoad),
	}
}

// WithClock replaces the time source.
func (s *FeedService) WithClock(now func() time.Time) *FeedService {
	s.now = now
	return s
}

// WithMaxImagePixels sets the largest width*height decoded per entry;
// larger images are dropped. n <= 0 keeps the current limit.
func (s *FeedService) WithMaxImagePixels(n int) *FeedService {
	if n > 0 {
		s.maxPixels = n
	}
	return s
}

// List returns every post with a decodable image, newest first, flagged
// blurred or clear for requesterID. A newer List for the same requester
// cancels this one, which then returns ErrFeedSuperseded.
func (s *FeedService) List(ctx context.Context, requesterID string) ([]domain.FeedEntry, error) {
	ctx, done := s.begin(ctx, requesterID)
	defer done()

	now := s.now()
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, s.loadErr(ctx, err)
	}
	hasPosted, err := s.posts.HasPostSince(ctx, requesterID, domain.WindowStart(now))
	if err != nil {
		return nil, s.loadErr(ctx, err)
	}

	// Each task owns one slot; dropped posts leave theirs nil.
	slots := make([]*domain.FeedEntry, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range posts {
		g.Go(func() error {
			entry, err := s.entry(gctx, posts[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn("dropping feed entry",
					zap.String("postId", posts[i].ID),
					zap.String("imageRef", posts[i].ImageRef),
					zap.Error(err))
				return nil
			}
			entry.Blurred = domain.Blurred(hasPosted, posts[i], now)
			slots[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.loadErr(ctx, err)
	}
	// Stores that ignore ctx can finish after being superseded.
	if err := s.loadErr(ctx, ctx.Err()); err != nil {
		return nil, err
	}

	entries := make([]domain.FeedEntry, 0, len(posts))
	for _, e := range slots {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (s *FeedService) entry(ctx context.Context, p domain.Post) (*domain.FeedEntry, error) {
	blob, err := s.blobs.GetBlob(ctx, p.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	info, err := decodeImage(blob.Data, s.maxPixels)
	if err != nil {
		return nil, err
	}
	return &domain.FeedEntry{
		Post:   p,
		Width:  info.Width,
		Height: info.Height,
		Format: info.Format,
	}, nil
}

// begin registers a load for requesterID and cancels the previous one.
func (s *FeedService) begin(ctx context.Context, requesterID string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	load := &feedLoad{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[requesterID]; ok {
		prev.cancel(ErrFeedSuperseded)
	}
	s.inflight[requesterID] = load
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.inflight[requesterID] == load {
			delete(s.inflight, requesterID)
		}
		s.mu.Unlock()
		cancel(context.Canceled)
	}
}

func (s *FeedService) loadErr(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrFeedSuperseded) {
		return ErrFeedSuperseded
	}
	return err
}
