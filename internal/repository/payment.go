package repository

import (
	"context"
	"errors"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Save(ctx context.Context, payment *models.Payment) error
	GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error)
	// FindInitiated returns the newest initiated payment for the post, or nil.
	FindInitiated(ctx context.Context, postID uint) (*models.Payment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *paymentRepository) GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("provider_ref = ?", ref).First(&payment).Error; err != nil {
		return nil, notFound(err, "Payment", ref)
	}
	return &payment, nil
}

func (r *paymentRepository) FindInitiated(ctx context.Context, postID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.PaymentInitiated).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&payments).Error
	return payments, err
}
