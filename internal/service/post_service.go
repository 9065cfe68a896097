package service

import (
	"context"
	"errors"
	"time"

	"atelier/internal/cache"
	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/observability"
	"atelier/internal/ranking"
	"atelier/internal/repository"
	"atelier/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// risingCandidateLimit caps how many in-window posts the rising sort ranks in memory.
const risingCandidateLimit = 1000

// Fee is the listing fee charged for artwork posts.
type Fee struct {
	AmountCents int64
	Currency    string
}

// Amount returns the fee in major currency units.
func (f Fee) Amount() float64 {
	return float64(f.AmountCents) / 100
}

type PostService struct {
	store        *repository.Store
	publisher    Publisher
	fee          Fee
	risingWindow time.Duration
	now          func() time.Time
}

type CreatePostInput struct {
	AuthorID   uint
	CategoryID uint
	Type       string
	Title      string
	Content    string
	MediaURL   string
	LinkURL    string
	Tags       []string
}

// CreatePostResult carries the new post and, for artwork, the pending fee.
type CreatePostResult struct {
	Post            *models.Post
	Payment         *models.Payment
	PaymentRequired bool
	Fee             Fee
}

type ListPostsInput struct {
	Sort       string
	CategoryID uint
	Featured   bool
	Page       Page
}

type ListPostsResult struct {
	Posts      []*models.Post
	Sort       ranking.Sort
	Pagination Pagination
}

func NewPostService(store *repository.Store, publisher Publisher, fee Fee, risingWindow time.Duration) *PostService {
	return &PostService{
		store:        store,
		publisher:    publisher,
		fee:          fee,
		risingWindow: risingWindow,
		now:          time.Now,
	}
}

// CreatePost stores a new post. Artwork enters the payment gate with an
// initiated payment; every other type is listed immediately.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*CreatePostResult, error) {
	postType, err := models.ParsePostType(in.Type)
	if err != nil {
		return nil, err
	}
	if in.CategoryID == 0 {
		return nil, models.NewValidationError("categoryId is required")
	}
	clean, err := validation.ValidatePost(validation.PostInput{
		Type:     postType,
		Title:    in.Title,
		Content:  in.Content,
		MediaURL: in.MediaURL,
		LinkURL:  in.LinkURL,
		Tags:     in.Tags,
	})
	if err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost",
		attribute.String("post.type", string(postType)))
	defer span.End()

	post := &models.Post{
		AuthorID:   in.AuthorID,
		CategoryID: in.CategoryID,
		Title:      clean.Title,
		Content:    clean.Content,
		MediaURL:   clean.MediaURL,
		LinkURL:    clean.LinkURL,
		Tags:       clean.Tags,
		PostType:   postType,
	}
	result := &CreatePostResult{Post: post}

	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Categories.GetByID(ctx, in.CategoryID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.NewValidationError("unknown category")
			}
			return err
		}

		if postType.RequiresPayment() {
			post.PaymentStatus = models.PaymentStatusPending
			post.VerificationStatus = models.VerificationPending
		} else {
			now := s.now().UTC()
			post.PaymentStatus = models.PaymentStatusNone
			post.VerificationStatus = models.VerificationApproved
			post.PublishedAt = &now
		}

		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}

		if !postType.RequiresPayment() {
			return tx.Categories.IncrementPostCount(ctx, post.CategoryID)
		}

		payment := &models.Payment{
			PostID:      post.ID,
			UserID:      post.AuthorID,
			AmountCents: s.fee.AmountCents,
			Currency:    s.fee.Currency,
			Status:      models.PaymentInitiated,
		}
		if err := tx.Payments.Create(ctx, payment); err != nil {
			return err
		}
		result.Payment = payment
		result.PaymentRequired = true
		result.Fee = s.fee
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	observability.PostsCreated.WithLabelValues(string(postType)).Inc()
	evt := notifications.Event{
		Type:    notifications.EventPostCreated,
		PostID:  post.ID,
		Payload: map[string]any{"type": post.PostType, "categoryId": post.CategoryID},
	}
	if result.PaymentRequired {
		evt.UserID = post.AuthorID
		evt.Payload["paymentRequired"] = true
	}
	settle(ctx, s.publisher, post.ID, evt)
	return result, nil
}

// GetPost returns a post the viewer may see. Unlisted posts are visible only
// to their author and moderators; deleted posts only to moderators.
func (s *PostService) GetPost(ctx context.Context, viewer Viewer, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		p, err := s.store.Posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !canView(viewer, &post) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return &post, nil
}

func canView(viewer Viewer, post *models.Post) bool {
	if post.IsListed() || viewer.Moderator {
		return true
	}
	return !post.IsDeleted && viewer.UserID != 0 && viewer.UserID == post.AuthorID
}

// ListPosts returns publicly listed posts in the requested order. Rising only
// considers posts inside the recency window and is ranked in memory.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*ListPostsResult, error) {
	sort, err := ranking.ParseSort(in.Sort)
	if err != nil {
		return nil, err
	}
	page := in.Page.Normalize()
	filter := repository.ListFilter{
		Sort:       sort,
		CategoryID: in.CategoryID,
		Featured:   in.Featured,
	}

	if sort != ranking.SortRising {
		filter.Limit = page.Limit
		filter.Offset = page.Offset()
		posts, total, err := s.store.Posts.ListListed(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &ListPostsResult{Posts: posts, Sort: sort, Pagination: paginationFor(page, total)}, nil
	}

	now := s.now()
	since := now.Add(-s.risingWindow)
	filter.Since = &since
	filter.Limit = risingCandidateLimit
	candidates, total, err := s.store.Posts.ListListed(ctx, filter)
	if err != nil {
		return nil, err
	}
	if total > int64(len(candidates)) {
		total = int64(len(candidates))
	}
	ranking.SortPosts(candidates, ranking.SortRising, now)

	start := min(page.Offset(), len(candidates))
	end := min(start+page.Limit, len(candidates))
	return &ListPostsResult{
		Posts:      candidates[start:end],
		Sort:       sort,
		Pagination: paginationFor(page, total),
	}, nil
}

// DeletePost soft-deletes a post. Only the author or a moderator may do so.
func (s *PostService) DeletePost(ctx context.Context, viewer Viewer, id uint) error {
	span, ctx := observability.NewSpan(ctx, "PostService.DeletePost", postAttr(id))
	defer span.End()

	err := s.store.InTx(ctx, func(tx repository.Repositories) error {
		post, err := tx.Posts.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if post.IsDeleted {
			return models.NewNotFoundError("Post", id)
		}
		if viewer.UserID != post.AuthorID && !viewer.Moderator {
			return models.NewForbiddenError("only the author or a moderator can delete this post")
		}
		return tx.Posts.UpdateFields(ctx, id, map[string]interface{}{"is_deleted": true})
	})
	if err != nil {
		span.SetError(err)
		return err
	}
	settle(ctx, s.publisher, id)
	return nil
}
