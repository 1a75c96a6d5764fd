package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bereal/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFeedService_Empty(t *testing.T) {
	f := newFixture(t)
	user, _ := f.register(t, "alice")

	entries, err := f.feed.List(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFeedService_VisibilityScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := f.clock.Now()

	_, tokenA := f.register(t, "a")
	userB, _ := f.register(t, "b")
	userC, tokenC := f.register(t, "c")

	postA, err := f.posts.Submit(ctx, tokenA, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)

	f.clock.Advance(1800 * time.Second)
	_, err = f.posts.Submit(ctx, tokenC, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)

	f.clock.Advance(1800 * time.Second) // t0+3600

	entriesB, err := f.feed.List(ctx, userB.ID)
	require.NoError(t, err)
	require.Len(t, entriesB, 2)
	for _, e := range entriesB {
		assert.True(t, e.Blurred, "b has not posted and must see %s blurred", e.ID)
	}

	entriesC, err := f.feed.List(ctx, userC.ID)
	require.NoError(t, err)
	a := findEntry(t, entriesC, postA.ID)
	assert.False(t, a.Blurred)

	// d posts at t0+89000, so d is within the window at t0+90000 but
	// a's post is not
	f.clock.t = t0.Add(89000 * time.Second)
	userD, tokenD := f.register(t, "d")
	postD, err := f.posts.Submit(ctx, tokenD, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)

	f.clock.t = t0.Add(90000 * time.Second)
	for _, u := range []*domain.User{userB, userC, userD} {
		entries, err := f.feed.List(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, findEntry(t, entries, postA.ID).Blurred, "%s must see a's post blurred", u.Username)
	}

	entriesD, err := f.feed.List(ctx, userD.ID)
	require.NoError(t, err)
	assert.False(t, findEntry(t, entriesD, postD.ID).Blurred)
}

func TestFeedService_OrderingAndMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, token := f.register(t, "alice")

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t), Caption: "hi"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
		f.clock.Advance(time.Minute)
	}

	entries, err := f.feed.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, entryIDs(entries))
	for _, e := range entries {
		assert.Equal(t, 4, e.Width)
		assert.Equal(t, 3, e.Height)
		assert.Equal(t, "png", e.Format)
		assert.False(t, e.Blurred)
	}
}

func TestFeedService_StableTies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, token := f.register(t, "alice")

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t)})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	entries, err := f.feed.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, entryIDs(entries))
}

func TestFeedService_OrderIgnoresCaptureTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, token := f.register(t, "alice")

	first, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	older := f.clock.Now().Add(-2 * time.Hour)
	second, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t), CapturedAt: &older})
	require.NoError(t, err)

	entries, err := f.feed.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, entryIDs(entries))
}

func TestFeedService_DropsUndecodableBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	feed := NewFeedService(f.db, f.db, zap.New(core), 2).WithClock(f.clock.Now)
	user, token := f.register(t, "alice")

	var posts []domain.Post
	for i := 0; i < 3; i++ {
		p, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t)})
		require.NoError(t, err)
		posts = append(posts, p)
		f.clock.Advance(time.Second)
	}
	require.NoError(t, f.db.PutBlob(ctx, posts[1].ImageRef, "image/png", []byte("corrupted")))

	entries, err := feed.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{posts[2].ID, posts[0].ID}, entryIDs(entries))

	dropped := logs.FilterMessage("dropping feed entry").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, posts[1].ID, dropped[0].ContextMap()["postId"])
}

func TestFeedService_DropsOversizedBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	feed := NewFeedService(f.db, f.db, zap.New(core), 2).WithClock(f.clock.Now)
	user, token := f.register(t, "alice")

	kept, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)
	require.NoError(t, f.db.PutBlob(ctx, "huge.png", "image/png", pngHeader(20000, 20000)))
	require.NoError(t, f.db.CreatePost(ctx, domain.Post{
		ID: "huge", AuthorID: user.ID, ImageRef: "huge.png", CreatedAt: f.clock.Now(),
	}))

	entries, err := feed.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID}, entryIDs(entries))

	dropped := logs.FilterMessage("dropping feed entry").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, "huge", dropped[0].ContextMap()["postId"])
}

func TestFeedService_MaxImagePixels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, token := f.register(t, "alice")
	_, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)

	feed := NewFeedService(f.db, f.db, nil, 1).WithClock(f.clock.Now).WithMaxImagePixels(11)
	entries, err := feed.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFeedService_DropsMissingBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "alice")

	require.NoError(t, f.db.CreatePost(ctx, domain.Post{
		ID: "orphan", AuthorID: user.ID, ImageRef: "gone.png", CreatedAt: f.clock.Now(),
	}))

	entries, err := f.feed.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type stubPostRepo struct {
	domain.PostRepository
	listErr error
}

func (s stubPostRepo) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return nil, s.listErr
}

func TestFeedService_ListError(t *testing.T) {
	listErr := errors.New("query failed")
	feed := NewFeedService(stubPostRepo{listErr: listErr}, nil, nil, 0)

	_, err := feed.List(context.Background(), "u")
	assert.ErrorIs(t, err, listErr)
}

// blockingBlobStore blocks GetBlob until released or cancelled.
type blockingBlobStore struct {
	domain.BlobStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingBlobStore) GetBlob(ctx context.Context, ref string) (*domain.Blob, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.release:
		return s.BlobStore.GetBlob(ctx, ref)
	}
}

func TestFeedService_NewerLoadSupersedesOlder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, token := f.register(t, "alice")
	_, err := f.posts.Submit(ctx, token, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)

	blobs := &blockingBlobStore{BlobStore: f.db, started: make(chan struct{}), release: make(chan struct{})}
	feed := NewFeedService(f.db, blobs, nopLogger(), 1).WithClock(f.clock.Now)

	firstErr := make(chan error, 1)
	go func() {
		_, err := feed.List(ctx, user.ID)
		firstErr <- err
	}()

	select {
	case <-blobs.started:
	case <-time.After(time.Second):
		t.Fatal("first load never fetched a blob")
	}

	secondDone := make(chan []domain.FeedEntry, 1)
	go func() {
		entries, err := feed.List(ctx, user.ID)
		assert.NoError(t, err)
		secondDone <- entries
	}()

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrFeedSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first load was not cancelled")
	}

	close(blobs.release)
	select {
	case entries := <-secondDone:
		assert.Len(t, entries, 1)
	case <-time.After(time.Second):
		t.Fatal("second load did not finish")
	}
}

func TestFeedService_OtherUsersDoNotSupersede(t *testing.T) {
	f := newFixture(t)
	alice, token := f.register(t, "alice")
	bob, _ := f.register(t, "bob")
	_, err := f.posts.Submit(context.Background(), token, SubmitPostInput{Image: pngBytes(t)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []string{alice.ID, bob.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries, err := f.feed.List(context.Background(), id)
			assert.NoError(t, err)
			assert.Len(t, entries, 1)
		}()
	}
	wg.Wait()
}

func findEntry(t *testing.T, entries []domain.FeedEntry, id string) domain.FeedEntry {
	t.Helper()
	for _, e := range entries {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("post %s not in feed", id)
	return domain.FeedEntry{}
}

func entryIDs(entries []domain.FeedEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
