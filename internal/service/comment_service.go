package service

import (
	"context"
	"errors"

	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/observability"
	"atelier/internal/repository"
	"atelier/internal/validation"
)

type CommentService struct {
	store     *repository.Store
	publisher Publisher
}

type AddCommentInput struct {
	PostID   uint
	AuthorID uint
	Content  string
	ParentID *uint
}

func NewCommentService(store *repository.Store, publisher Publisher) *CommentService {
	return &CommentService{store: store, publisher: publisher}
}

// AddComment stores a comment on a listed post. A parent, when given, must
// be a live comment on the same post.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (comment *models.Comment, err error) {
	content, err := validation.ValidateComment(in.Content)
	if err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "CommentService.AddComment", postAttr(in.PostID))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	var post *models.Post
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		var err error
		post, err = lockVotable(ctx, tx, in.PostID)
		if err != nil {
			return err
		}

		if in.ParentID != nil {
			parent, err := tx.Comments.GetByID(ctx, *in.ParentID)
			switch {
			case errors.Is(err, models.ErrNotFound):
				return models.NewInvalidParentError("parent comment does not exist")
			case err != nil:
				return err
			case parent.PostID != in.PostID:
				return models.NewInvalidParentError("parent comment belongs to another post")
			case parent.IsDeleted:
				return models.NewInvalidParentError("parent comment has been deleted")
			}
		}

		comment = &models.Comment{
			PostID:   in.PostID,
			AuthorID: in.AuthorID,
			ParentID: in.ParentID,
			Content:  content,
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		_, err = tx.Posts.RecountComments(ctx, in.PostID)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.CommentsCreated.Inc()
	settle(ctx, s.publisher, in.PostID, notifications.Event{
		Type:    notifications.EventCommentCreated,
		UserID:  post.AuthorID,
		PostID:  in.PostID,
		Payload: map[string]any{"commentId": comment.ID, "parentId": comment.ParentID},
	})
	return comment, nil
}

// GetThread assembles the comment forest of a post the viewer can see.
func (s *CommentService) GetThread(ctx context.Context, viewer Viewer, postID uint) (*Thread, error) {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !canView(viewer, post) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	rows, err := s.store.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return BuildThread(rows), nil
}

// DeleteComment soft-deletes a comment, leaving a placeholder in the thread.
// comment_count is not decremented. Deleting twice is a no-op.
func (s *CommentService) DeleteComment(ctx context.Context, viewer Viewer, postID, commentID uint) error {
	err := s.store.InTx(ctx, func(tx repository.Repositories) error {
		post, err := tx.Posts.LockByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsDeleted {
			return models.NewNotFoundError("Post", postID)
		}
		comment, err := tx.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if comment.PostID != postID {
			return models.NewNotFoundError("Comment", commentID)
		}
		if comment.AuthorID != viewer.UserID && !viewer.Moderator {
			return models.NewForbiddenError("only the author or a moderator can delete this comment")
		}
		if comment.IsDeleted {
			return nil
		}
		return tx.Comments.SoftDelete(ctx, commentID)
	})
	if err != nil {
		return err
	}
	settle(ctx, s.publisher, postID)
	return nil
}
