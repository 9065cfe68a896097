package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Payment confirmation results, used as metric labels.
const (
	paymentResultConfirmed = "confirmed"
	paymentResultDuplicate = "duplicate"
	paymentResultFailed    = "failed"
	paymentResultRejected  = "rejected"
)

// PaymentService is the payment gate: it finalizes artwork payments reported
// by the provider. Confirmations are at-least-once and may arrive in any order.
type PaymentService struct {
	store     *repository.Store
	publisher Publisher
	fee       Fee
	timeout   time.Duration
	now       func() time.Time
}

// ConfirmPaymentInput is one provider callback.
type ConfirmPaymentInput struct {
	PostID      uint
	ProviderRef string
	AmountCents int64
	// Currency is optional; when set it must match the fee currency.
	Currency string
	// Failed reports a declined payment instead of a successful one.
	Failed bool
}

// ConfirmPaymentResult is the stored payment. Duplicate is true when the
// provider reference had already been recorded and nothing changed.
type ConfirmPaymentResult struct {
	Payment   *models.Payment
	Duplicate bool
}

func NewPaymentService(store *repository.Store, publisher Publisher, fee Fee, timeout time.Duration) *PaymentService {
	return &PaymentService{
		store:     store,
		publisher: publisher,
		fee:       fee,
		timeout:   timeout,
		now:       time.Now,
	}
}

// ConfirmPayment records a provider callback for an artwork post.
//
// A provider reference is applied at most once: repeating it returns the
// stored payment with Duplicate set. The first success moves the post to
// paid and leaves verification pending. A post that is already paid yields
// NotEligible; a missing or non-artwork post yields NotFound, and so does a
// deleted post unless the call replays a known reference. The whole
// confirmation runs in one transaction under the post lock, so a timeout
// leaves nothing behind and the callback can be retried.
func (s *PaymentService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (res *ConfirmPaymentResult, err error) {
	in.ProviderRef = strings.TrimSpace(in.ProviderRef)
	if in.ProviderRef == "" {
		return nil, models.NewValidationError("providerId is required")
	}

	span, ctx := observability.NewSpan(ctx, "PaymentService.ConfirmPayment",
		postAttr(in.PostID), attribute.Bool("payment.failed", in.Failed))
	defer func() {
		span.SetError(err)
		span.End()
		observability.PaymentConfirmations.WithLabelValues(paymentResult(res, err, in.Failed)).Inc()
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var post *models.Post
	res = &ConfirmPaymentResult{}
	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		res.Payment, res.Duplicate = nil, false

		var err error
		post, err = tx.Posts.LockByID(ctx, in.PostID)
		if err != nil {
			return err
		}
		if post.PostType != models.PostTypeArtwork {
			return models.NewNotFoundError("Artwork post", in.PostID)
		}

		// Read after taking the lock so a confirmation committed by a
		// concurrent callback is visible here.
		existing, err := tx.Payments.GetByProviderRef(ctx, in.ProviderRef)
		switch {
		case err == nil:
			if existing.PostID != in.PostID {
				return models.NewValidationError("providerId is already bound to another post")
			}
			res.Payment, res.Duplicate = existing, true
			return nil
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		// Replays above still succeed after the author deletes the post.
		if post.IsDeleted {
			return models.NewNotFoundError("Artwork post", in.PostID)
		}

		if post.PaymentStatus == models.PaymentStatusPaid {
			return models.NewNotEligibleError("post is already paid")
		}

		if in.Failed {
			res.Payment, err = s.recordFailure(ctx, tx, post, in)
			return err
		}

		if err := s.checkAmount(in); err != nil {
			return err
		}

		payment, err := tx.Payments.FindInitiated(ctx, post.ID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		ref := in.ProviderRef
		if payment == nil {
			payment = &models.Payment{
				PostID:      post.ID,
				UserID:      post.AuthorID,
				AmountCents: s.fee.AmountCents,
				Currency:    s.fee.Currency,
				ProviderRef: &ref,
				Status:      models.PaymentSucceeded,
				ConfirmedAt: &now,
			}
			if err := tx.Payments.Create(ctx, payment); err != nil {
				return err
			}
		} else {
			payment.ProviderRef = &ref
			payment.Status = models.PaymentSucceeded
			payment.ConfirmedAt = &now
			if err := tx.Payments.Save(ctx, payment); err != nil {
				return err
			}
		}

		if err := tx.Posts.UpdateFields(ctx, post.ID, map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
		}); err != nil {
			return err
		}
		res.Payment = payment
		return nil
	})

	if err != nil {
		if repository.IsUniqueViolation(err) {
			return s.replay(ctx, in)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, models.NewConflictError("payment confirmation timed out; retry", err)
		}
		return nil, err
	}

	if res.Duplicate {
		return res, nil
	}

	evt := notifications.Event{
		Type:   notifications.EventPaymentConfirmed,
		UserID: post.AuthorID,
		PostID: post.ID,
		Payload: map[string]any{
			"paymentId": res.Payment.ID.String(),
			"status":    res.Payment.Status,
		},
	}
	settle(ctx, s.publisher, post.ID, evt)
	return res, nil
}

// recordFailure finalizes the initiated payment as failed. The post stays
// pending so the author can pay again.
func (s *PaymentService) recordFailure(ctx context.Context, tx repository.Repositories, post *models.Post, in ConfirmPaymentInput) (*models.Payment, error) {
	payment, err := tx.Payments.FindInitiated(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	ref := in.ProviderRef
	now := s.now().UTC()
	if payment == nil {
		payment = &models.Payment{
			PostID:      post.ID,
			UserID:      post.AuthorID,
			AmountCents: s.fee.AmountCents,
			Currency:    s.fee.Currency,
			ProviderRef: &ref,
			Status:      models.PaymentFailed,
			ConfirmedAt: &now,
		}
		return payment, tx.Payments.Create(ctx, payment)
	}
	payment.ProviderRef = &ref
	payment.Status = models.PaymentFailed
	payment.ConfirmedAt = &now
	return payment, tx.Payments.Save(ctx, payment)
}

func (s *PaymentService) checkAmount(in ConfirmPaymentInput) error {
	if in.AmountCents <= 0 {
		return models.NewValidationError("amount must be positive")
	}
	if in.AmountCents != s.fee.AmountCents {
		return models.NewValidationError("amount does not match the listing fee")
	}
	if in.Currency != "" && !strings.EqualFold(in.Currency, s.fee.Currency) {
		return models.NewValidationError("currency does not match the listing fee")
	}
	return nil
}

// replay resolves a unique violation raised by a concurrent confirmation with
// the same reference: the winner's payment is returned as a duplicate.
func (s *PaymentService) replay(ctx context.Context, in ConfirmPaymentInput) (*ConfirmPaymentResult, error) {
	existing, err := s.store.Payments.GetByProviderRef(ctx, in.ProviderRef)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Another reference won the post's single succeeded slot.
			return nil, models.NewNotEligibleError("post is already paid")
		}
		return nil, err
	}
	if existing.PostID != in.PostID {
		return nil, models.NewValidationError("providerId is already bound to another post")
	}
	return &ConfirmPaymentResult{Payment: existing, Duplicate: true}, nil
}

func paymentResult(res *ConfirmPaymentResult, err error, failed bool) string {
	switch {
	case err != nil:
		return paymentResultRejected
	case res != nil && res.Duplicate:
		return paymentResultDuplicate
	case failed:
		return paymentResultFailed
	default:
		return paymentResultConfirmed
	}
}
