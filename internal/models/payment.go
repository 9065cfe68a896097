package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is one attempt to pay the artwork listing fee for a post.
// ProviderRef is unique across all payments; at most one payment per post
// reaches PaymentSucceeded.
type Payment struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PostID      uint         `gorm:"not null;index;uniqueIndex:idx_payments_post_succeeded,where:status = 'succeeded'" json:"postId"`
	UserID      uint         `gorm:"not null;index" json:"userId"`
	AmountCents int64        `gorm:"not null" json:"-"`
	Currency    string       `gorm:"size:3;not null" json:"currency"`
	ProviderRef *string      `gorm:"size:255;uniqueIndex" json:"providerId,omitempty"`
	Status      PaymentState `gorm:"size:16;not null;default:initiated" json:"status"`
	ConfirmedAt *time.Time   `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// BeforeCreate assigns the UUID primary key.
func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Amount returns the amount in major currency units.
func (p *Payment) Amount() float64 {
	return float64(p.AmountCents) / 100
}
