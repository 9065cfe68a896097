package service

import (
	"context"
	"strings"
	"time"

	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ModerationService runs the moderation queue and its audit trail.
type ModerationService struct {
	store     *repository.Store
	publisher Publisher
	now       func() time.Time
}

// DecideInput is one moderator decision.
type DecideInput struct {
	PostID      uint
	ModeratorID uint
	Action      string
	Reason      string
	Notes       string
}

// NewModerationService returns a new ModerationService.
func NewModerationService(store *repository.Store, publisher Publisher) *ModerationService {
	return &ModerationService{store: store, publisher: publisher, now: time.Now}
}

// ListPending returns paid artwork awaiting a decision, longest-waiting first.
func (s *ModerationService) ListPending(ctx context.Context, page Page) ([]*models.Post, Pagination, error) {
	page = page.Normalize()
	posts, total, err := s.store.Posts.ListPendingModeration(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	return posts, paginationFor(page, total), nil
}

// History returns the audit trail for a post, oldest first.
func (s *ModerationService) History(ctx context.Context, postID uint) ([]*models.ModerationAction, error) {
	if _, err := s.store.Posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.Moderation.ListByPost(ctx, postID)
}

// transition is the evaluated effect of an action on a post.
type transition struct {
	resulting models.VerificationStatus
	fields    map[string]interface{}
	publish   bool
}

// evaluate applies the moderation rules to the locked post without side effects.
func evaluate(post *models.Post, action models.ModerationActionType, reason string) (transition, error) {
	t := transition{resulting: post.VerificationStatus, fields: map[string]interface{}{}}
	if post.IsDeleted {
		return t, models.NewNotEligibleError("post has been deleted")
	}

	from := post.VerificationStatus
	switch action {
	case models.ActionApprove:
		if from != models.VerificationPending && from != models.VerificationFlagged {
			return t, models.NewInvalidTransitionError(from, action)
		}
		if post.PostType.RequiresPayment() && post.PaymentStatus != models.PaymentStatusPaid {
			return t, models.NewNotEligibleError("artwork must be paid before approval")
		}
		t.resulting = models.VerificationApproved
		t.publish = post.PublishedAt == nil

	case models.ActionReject:
		if from != models.VerificationPending && from != models.VerificationFlagged {
			return t, models.NewInvalidTransitionError(from, action)
		}
		if reason == "" {
			return t, models.NewValidationError("reason is required to reject a post")
		}
		t.resulting = models.VerificationRejected

	case models.ActionFlag:
		if from != models.VerificationApproved && from != models.VerificationPending {
			return t, models.NewInvalidTransitionError(from, action)
		}
		t.resulting = models.VerificationFlagged

	case models.ActionFeature:
		if from != models.VerificationApproved {
			return t, models.NewInvalidTransitionError(from, action)
		}
		if !post.IsFeatured {
			t.fields["is_featured"] = true
		}
		return t, nil
	}

	t.fields["verification_status"] = t.resulting
	return t, nil
}

// Decide applies a moderator action to a post.
//
// Every call on an existing post appends a ModerationAction, including calls
// refused by the state machine; the refusal is recorded with its error code
// and returned after the audit row commits. Only the state change is gated.
// The owning category's post count grows once, the first time the post
// becomes public.
func (s *ModerationService) Decide(ctx context.Context, in DecideInput) (post *models.Post, err error) {
	action, err := models.ParseModerationAction(in.Action)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)

	span, ctx := observability.NewSpan(ctx, "ModerationService.Decide",
		postAttr(in.PostID), attribute.String("moderation.action", string(action)))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	var (
		refusal error
		audit   *models.ModerationAction
	)
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		refusal, audit = nil, nil

		locked, err := tx.Posts.LockByID(ctx, in.PostID)
		if err != nil {
			return err
		}

		t, decisionErr := evaluate(locked, action, reason)
		audit = &models.ModerationAction{
			PostID:          locked.ID,
			ModeratorID:     in.ModeratorID,
			Action:          action,
			Reason:          reason,
			Notes:           strings.TrimSpace(in.Notes),
			Outcome:         models.OutcomeApplied,
			PreviousStatus:  locked.VerificationStatus,
			ResultingStatus: t.resulting,
		}
		if decisionErr != nil {
			refusal = decisionErr
			audit.Outcome = models.OutcomeRefused
			audit.ErrorCode = models.ErrorCode(decisionErr)
			audit.ResultingStatus = locked.VerificationStatus
			return tx.Moderation.Create(ctx, audit)
		}

		if t.publish {
			// The history check guards posts published before PublishedAt existed.
			counted, err := tx.Moderation.HasApplied(ctx, locked.ID, models.ActionApprove)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			t.fields["published_at"] = now
			if !counted {
				if err := tx.Categories.IncrementPostCount(ctx, locked.CategoryID); err != nil {
					return err
				}
			}
		}

		if len(t.fields) > 0 {
			if err := tx.Posts.UpdateFields(ctx, locked.ID, t.fields); err != nil {
				return err
			}
		}
		if err := tx.Moderation.Create(ctx, audit); err != nil {
			return err
		}

		post, err = tx.Posts.GetByID(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.ModerationDecisions.WithLabelValues(string(action), string(audit.Outcome)).Inc()
	if refusal != nil {
		return nil, refusal
	}

	settle(ctx, s.publisher, post.ID, notifications.Event{
		Type:   notifications.EventPostModerated,
		UserID: post.AuthorID,
		PostID: post.ID,
		Payload: map[string]any{
			"action":             action,
			"verificationStatus": post.VerificationStatus,
			"isFeatured":         post.IsFeatured,
		},
	})
	return post, nil
}
