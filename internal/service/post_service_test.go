package service

import (
	"context"
	"testing"
	"time"

	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/ranking"
	"atelier/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost_NonArtworkIsListedImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "writing")

	for _, typ := range []struct {
		name string
		in   CreatePostInput
	}{
		{"text", CreatePostInput{Type: "text", Title: "Hello", Content: "world"}},
		{"image", CreatePostInput{Type: "image", Title: "Pic", MediaURL: "https://cdn.example.com/p.png"}},
		{"link", CreatePostInput{Type: "link", Title: "Read", LinkURL: "https://example.com"}},
		{"default", CreatePostInput{Title: "Untyped", Content: "body"}},
	} {
		in := typ.in
		in.AuthorID = 1
		in.CategoryID = cat.ID
		res, err := f.posts.CreatePost(ctx, in)
		require.NoError(t, err, typ.name)
		assert.False(t, res.PaymentRequired)
		assert.Nil(t, res.Payment)
		assert.Equal(t, models.PaymentStatusNone, res.Post.PaymentStatus)
		assert.Equal(t, models.VerificationApproved, res.Post.VerificationStatus)
		assert.True(t, res.Post.IsListed())
		assert.NotNil(t, res.Post.PublishedAt)
	}

	var gated int64
	require.NoError(t, f.db.Model(&models.Post{}).
		Where("post_type <> ? AND payment_status IN ?", models.PostTypeArtwork, []string{"pending", "paid"}).
		Count(&gated).Error)
	assert.Zero(t, gated)

	got, err := f.store.Categories.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.PostCount)
}

func TestCreatePost_ArtworkEntersPaymentGate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "painting")

	res, err := f.posts.CreatePost(ctx, CreatePostInput{
		AuthorID: 7, CategoryID: cat.ID, Type: "artwork", Title: "Dusk", MediaURL: "https://cdn.example.com/dusk.png",
	})
	require.NoError(t, err)
	assert.True(t, res.PaymentRequired)
	assert.InDelta(t, 5.00, res.Fee.Amount(), 0.0001)
	assert.Equal(t, "USD", res.Fee.Currency)
	assert.Equal(t, models.PaymentStatusPending, res.Post.PaymentStatus)
	assert.Equal(t, models.VerificationPending, res.Post.VerificationStatus)
	assert.False(t, res.Post.IsListed())
	assert.Nil(t, res.Post.PublishedAt)

	require.NotNil(t, res.Payment)
	assert.Equal(t, models.PaymentInitiated, res.Payment.Status)
	assert.Equal(t, int64(500), res.Payment.AmountCents)
	assert.Nil(t, res.Payment.ProviderRef)

	got, err := f.store.Categories.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Zero(t, got.PostCount)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, notifications.EventPostCreated, f.pub.events[0].Type)
	assert.Equal(t, uint(7), f.pub.events[0].UserID)
}

func TestCreatePost_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "misc")

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"bad type", CreatePostInput{CategoryID: cat.ID, Type: "poll", Title: "t", Content: "c"}},
		{"no category", CreatePostInput{Type: "text", Title: "t", Content: "c"}},
		{"unknown category", CreatePostInput{CategoryID: 999, Type: "text", Title: "t", Content: "c"}},
		{"no title", CreatePostInput{CategoryID: cat.ID, Type: "text", Content: "c"}},
		{"artwork without media", CreatePostInput{CategoryID: cat.ID, Type: "artwork", Title: "t"}},
	}
	for _, tt := range tests {
		_, err := f.posts.CreatePost(ctx, tt.in)
		assert.ErrorIs(t, err, models.ErrValidation, tt.name)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetPost_Visibility(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "vis")
	listed := testutil.CreateListedPost(t, f.db, 1, cat.ID, "listed")
	queued := testutil.CreatePaidArtwork(t, f.db, 2, cat.ID, "queued")

	_, err := f.posts.GetPost(ctx, Viewer{}, listed.ID)
	assert.NoError(t, err)

	_, err = f.posts.GetPost(ctx, Viewer{}, queued.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.posts.GetPost(ctx, Viewer{UserID: 1}, queued.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.posts.GetPost(ctx, Viewer{UserID: 2}, queued.ID)
	assert.NoError(t, err)
	_, err = f.posts.GetPost(ctx, Viewer{UserID: 3, Moderator: true}, queued.ID)
	assert.NoError(t, err)

	_, err = f.posts.GetPost(ctx, Viewer{}, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "del")
	post := testutil.CreateListedPost(t, f.db, 1, cat.ID, "mine")

	assert.ErrorIs(t, f.posts.DeletePost(ctx, Viewer{UserID: 2}, post.ID), models.ErrForbidden)
	require.NoError(t, f.posts.DeletePost(ctx, Viewer{UserID: 1}, post.ID))
	assert.ErrorIs(t, f.posts.DeletePost(ctx, Viewer{UserID: 1}, post.ID), models.ErrNotFound)

	reloaded := testutil.Reload(t, f.db, post.ID)
	assert.True(t, reloaded.IsDeleted)
	assert.False(t, reloaded.IsListed())

	_, err := f.posts.GetPost(ctx, Viewer{UserID: 1}, post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	res, err := f.posts.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	assert.Empty(t, res.Posts)
}

func TestListPosts_RisingVersusTop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "rank")
	now := time.Now()
	f.posts.now = func() time.Time { return now }

	a := testutil.CreateListedPost(t, f.db, 1, cat.ID, "a")
	b := testutil.CreateListedPost(t, f.db, 1, cat.ID, "b")
	old := testutil.CreateListedPost(t, f.db, 1, cat.ID, "old")
	require.NoError(t, f.db.Model(a).UpdateColumns(map[string]interface{}{"upvote_count": 3, "created_at": now.Add(-time.Hour)}).Error)
	require.NoError(t, f.db.Model(b).UpdateColumns(map[string]interface{}{"upvote_count": 2, "created_at": now.Add(-time.Minute)}).Error)
	require.NoError(t, f.db.Model(old).UpdateColumns(map[string]interface{}{"upvote_count": 50, "created_at": now.Add(-72 * time.Hour)}).Error)

	ids := func(posts []*models.Post) []uint {
		out := []uint{}
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	rising, err := f.posts.ListPosts(ctx, ListPostsInput{Sort: "rising"})
	require.NoError(t, err)
	assert.Equal(t, ranking.SortRising, rising.Sort)
	assert.Equal(t, []uint{b.ID, a.ID}, ids(rising.Posts), "rising is limited to the window and favors velocity")
	assert.Equal(t, int64(2), rising.Pagination.Total)

	top, err := f.posts.ListPosts(ctx, ListPostsInput{Sort: "top"})
	require.NoError(t, err)
	assert.Equal(t, []uint{old.ID, a.ID, b.ID}, ids(top.Posts))

	page2, err := f.posts.ListPosts(ctx, ListPostsInput{Sort: "top", Page: Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids(page2.Posts))
	assert.Equal(t, int64(2), page2.Pagination.TotalPages)

	_, err = f.posts.ListPosts(ctx, ListPostsInput{Sort: "best"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPage_Normalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Page{Page: 1, Limit: defaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, Limit: maxPageLimit}, Page{Page: 3, Limit: 1000}.Normalize())
	assert.Equal(t, 40, Page{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Total: 41, TotalPages: 3}, paginationFor(Page{Page: 1, Limit: 20}, 41))
}
