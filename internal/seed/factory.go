package seed

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

var artTags = []string{
	"oil", "watercolor", "ink", "charcoal", "gouache", "acrylic", "study",
	"portrait", "landscape", "still-life", "wip", "sketchbook", "plein-air", "figure",
}

// Factory builds demo content and persists it through the services.
// Users are plain numeric IDs; authentication lives outside this service.
type Factory struct {
	store      *repository.Store
	faker      *gofakeit.Faker
	fee        service.Fee
	posts      *service.PostService
	payments   *service.PaymentService
	moderation *service.ModerationService
	votes      *service.VoteService
	comments   *service.CommentService
}

// NewFactory creates a Factory bound to store. A zero seed picks a random one.
func NewFactory(store *repository.Store, fee service.Fee, seed int64) *Factory {
	return &Factory{
		store:      store,
		faker:      gofakeit.New(seed),
		fee:        fee,
		posts:      service.NewPostService(store, nil, fee, 0),
		payments:   service.NewPaymentService(store, nil, fee, 0),
		moderation: service.NewModerationService(store, nil),
		votes:      service.NewVoteService(store, nil),
		comments:   service.NewCommentService(store, nil),
	}
}

// UserIDs returns n author IDs starting at 1.
func (f *Factory) UserIDs(n int) []uint {
	ids := make([]uint, n)
	for i := range ids {
		ids[i] = uint(i + 1)
	}
	return ids
}

func (f *Factory) pick(ids []uint) uint {
	return ids[f.faker.IntRange(0, len(ids)-1)]
}

func (f *Factory) chance(ratio float64) bool {
	return f.faker.Float64() < ratio
}

// CreatePost creates one post of postType and moves its created_at into the
// last maxDays.
func (f *Factory) CreatePost(ctx context.Context, authorID, categoryID uint, postType models.PostType, maxDays int) (*models.Post, error) {
	in := service.CreatePostInput{
		AuthorID:   authorID,
		CategoryID: categoryID,
		Type:       string(postType),
		Title:      f.faker.Sentence(f.faker.IntRange(3, 8)),
		Tags:       []string{f.faker.RandomString(artTags), f.faker.RandomString(artTags)},
	}
	switch postType {
	case models.PostTypeText:
		in.Content = f.faker.Paragraph(1, 3, 12, "\n\n")
	case models.PostTypeImage, models.PostTypeArtwork:
		in.Content = f.faker.Sentence(12)
		in.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	case models.PostTypeLink:
		in.Content = f.faker.Sentence(10)
		in.LinkURL = f.faker.URL()
	}

	res, err := f.posts.CreatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	post := res.Post

	created := f.backdate(maxDays)
	cols := map[string]interface{}{"created_at": created}
	if post.PublishedAt != nil {
		cols["published_at"] = created
	}
	if err := f.store.DB().WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumns(cols).Error; err != nil {
		return nil, fmt.Errorf("backdate post %d: %w", post.ID, err)
	}
	post.CreatedAt = created
	return post, nil
}

// Pay confirms the artwork fee for post with a fresh provider reference.
func (f *Factory) Pay(ctx context.Context, post *models.Post) error {
	_, err := f.payments.ConfirmPayment(ctx, service.ConfirmPaymentInput{
		PostID:      post.ID,
		ProviderRef: "pi_seed_" + f.faker.UUID(),
		AmountCents: f.fee.AmountCents,
		Currency:    f.fee.Currency,
	})
	return err
}

// Approve publishes a paid artwork post.
func (f *Factory) Approve(ctx context.Context, post *models.Post, moderatorID uint) error {
	approved, err := f.moderation.Decide(ctx, service.DecideInput{
		PostID:      post.ID,
		ModeratorID: moderatorID,
		Action:      string(models.ActionApprove),
		Notes:       "seeded",
	})
	if err != nil {
		return err
	}
	*post = *approved
	return nil
}

// Vote has up to n distinct users vote on post, mostly upward. It returns the
// number of votes cast.
func (f *Factory) Vote(ctx context.Context, post *models.Post, users []uint, n int) (int, error) {
	voters := append([]uint(nil), users...)
	f.faker.ShuffleAnySlice(voters)
	n = f.faker.IntRange(0, min(n, len(voters)))

	for _, uid := range voters[:n] {
		vt := models.VoteUp
		if !f.chance(0.75) {
			vt = models.VoteDown
		}
		if _, err := f.votes.CastVote(ctx, uid, post.ID, string(vt)); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Discuss adds up to n comments to post. A replyRatio share of them answer
// an earlier comment.
func (f *Factory) Discuss(ctx context.Context, post *models.Post, users []uint, n int, replyRatio float64) (int, error) {
	n = f.faker.IntRange(0, n)
	var ids []uint
	for range n {
		in := service.AddCommentInput{
			PostID:   post.ID,
			AuthorID: f.pick(users),
			Content:  f.faker.Sentence(f.faker.IntRange(4, 20)),
		}
		if len(ids) > 0 && f.chance(replyRatio) {
			parent := ids[f.faker.IntRange(0, len(ids)-1)]
			in.ParentID = &parent
		}
		c, err := f.comments.AddComment(ctx, in)
		if err != nil {
			return 0, err
		}
		ids = append(ids, c.ID)
	}
	return n, nil
}

// backdate picks a time within the last maxDays so the rising window has
// both fresh and stale posts.
func (f *Factory) backdate(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 14
	}
	now := time.Now().UTC()
	return f.faker.DateRange(now.Add(-time.Duration(maxDays)*24*time.Hour), now)
}
