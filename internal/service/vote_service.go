package service

import (
	"context"
	"errors"

	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// VoteEffect describes what a vote call changed in the ledger.
type VoteEffect string

const (
	VoteCreated   VoteEffect = "created"
	VoteUnchanged VoteEffect = "unchanged"
	VoteFlipped   VoteEffect = "flipped"
	VoteRemoved   VoteEffect = "removed"
)

// VoteResult is the tally after a vote call, read inside the same transaction.
type VoteResult struct {
	models.VoteTally
	Effect VoteEffect `json:"-"`
}

// VoteService maintains the vote ledgers and the counters derived from them.
type VoteService struct {
	store     *repository.Store
	publisher Publisher
}

func NewVoteService(store *repository.Store, publisher Publisher) *VoteService {
	return &VoteService{store: store, publisher: publisher}
}

// lockVotable locks a post that accepts votes and comments: it must exist,
// not be deleted, and be publicly listed.
func lockVotable(ctx context.Context, tx repository.Repositories, postID uint) (*models.Post, error) {
	post, err := tx.Posts.LockByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if !post.IsListed() {
		return nil, models.NewNotEligibleError("post is not publicly listed")
	}
	return post, nil
}

// CastVote records a user's vote on a post: a first vote is inserted, the
// same vote again is a no-op and the opposite vote flips the row. Counters
// are recomputed from the ledger before the transaction commits.
func (s *VoteService) CastVote(ctx context.Context, userID, postID uint, voteType string) (res *VoteResult, err error) {
	vt, err := models.ParseVoteType(voteType)
	if err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "VoteService.CastVote",
		postAttr(postID), attribute.String("vote.type", string(vt)))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	res = &VoteResult{}
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		if _, err := lockVotable(ctx, tx, postID); err != nil {
			return err
		}

		existing, err := tx.Votes.Get(ctx, userID, postID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			if err := tx.Votes.Create(ctx, &models.Vote{UserID: userID, PostID: postID, VoteType: vt}); err != nil {
				return err
			}
			res.Effect = VoteCreated
		case err != nil:
			return err
		case existing.VoteType == vt:
			res.Effect = VoteUnchanged
		default:
			if err := tx.Votes.SetType(ctx, userID, postID, vt); err != nil {
				return err
			}
			res.Effect = VoteFlipped
		}

		res.VoteTally, err = tx.Posts.RecountVotes(ctx, postID)
		return err
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewConflictError("concurrent vote; retry", err)
		}
		return nil, err
	}

	observability.VotesCast.WithLabelValues("post", string(res.Effect)).Inc()
	if res.Effect != VoteUnchanged {
		s.announce(ctx, postID, res.VoteTally)
	}
	return res, nil
}

// RemoveVote deletes the user's vote on a post, if any.
func (s *VoteService) RemoveVote(ctx context.Context, userID, postID uint) (res *VoteResult, err error) {
	span, ctx := observability.NewSpan(ctx, "VoteService.RemoveVote", postAttr(postID))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	res = &VoteResult{Effect: VoteUnchanged}
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		post, err := tx.Posts.LockByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsDeleted {
			return models.NewNotFoundError("Post", postID)
		}
		removed, err := tx.Votes.Delete(ctx, userID, postID)
		if err != nil {
			return err
		}
		if removed {
			res.Effect = VoteRemoved
		}
		res.VoteTally, err = tx.Posts.RecountVotes(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.VotesCast.WithLabelValues("post", string(res.Effect)).Inc()
	if res.Effect == VoteRemoved {
		s.announce(ctx, postID, res.VoteTally)
	}
	return res, nil
}

// CastCommentVote applies the same upsert rules to the comment ledger. The
// comment's post is locked so votes on one thread serialize with its other
// mutations.
func (s *VoteService) CastCommentVote(ctx context.Context, userID, commentID uint, voteType string) (res *VoteResult, err error) {
	vt, err := models.ParseVoteType(voteType)
	if err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "VoteService.CastCommentVote",
		attribute.Int64("comment.id", int64(commentID)), attribute.String("vote.type", string(vt)))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	res = &VoteResult{}
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		comment, err := tx.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if _, err := lockVotable(ctx, tx, comment.PostID); err != nil {
			return err
		}
		if comment.IsDeleted {
			return models.NewNotEligibleError("comment has been deleted")
		}

		existing, err := tx.Votes.GetCommentVote(ctx, userID, commentID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			if err := tx.Votes.CreateCommentVote(ctx, &models.CommentVote{UserID: userID, CommentID: commentID, VoteType: vt}); err != nil {
				return err
			}
			res.Effect = VoteCreated
		case err != nil:
			return err
		case existing.VoteType == vt:
			res.Effect = VoteUnchanged
		default:
			if err := tx.Votes.SetCommentVoteType(ctx, userID, commentID, vt); err != nil {
				return err
			}
			res.Effect = VoteFlipped
		}

		res.VoteTally, err = tx.Comments.RecountVotes(ctx, commentID)
		return err
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewConflictError("concurrent vote; retry", err)
		}
		return nil, err
	}

	observability.VotesCast.WithLabelValues("comment", string(res.Effect)).Inc()
	return res, nil
}

// RemoveCommentVote deletes the user's vote on a comment, if any. Votes can
// be retracted from deleted comments as long as the post still exists.
func (s *VoteService) RemoveCommentVote(ctx context.Context, userID, commentID uint) (res *VoteResult, err error) {
	span, ctx := observability.NewSpan(ctx, "VoteService.RemoveCommentVote",
		attribute.Int64("comment.id", int64(commentID)))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	res = &VoteResult{Effect: VoteUnchanged}
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		comment, err := tx.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		post, err := tx.Posts.LockByID(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if post.IsDeleted {
			return models.NewNotFoundError("Post", post.ID)
		}
		removed, err := tx.Votes.DeleteCommentVote(ctx, userID, commentID)
		if err != nil {
			return err
		}
		if removed {
			res.Effect = VoteRemoved
		}
		res.VoteTally, err = tx.Comments.RecountVotes(ctx, commentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.VotesCast.WithLabelValues("comment", string(res.Effect)).Inc()
	return res, nil
}

func (s *VoteService) announce(ctx context.Context, postID uint, tally models.VoteTally) {
	settle(ctx, s.publisher, postID, notifications.Event{
		Type:    notifications.EventPostVotes,
		PostID:  postID,
		Payload: map[string]any{"upvotes": tally.Upvotes, "downvotes": tally.Downvotes},
	})
}
