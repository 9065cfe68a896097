package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrImmutableAudit is returned when something tries to rewrite audit history.
var ErrImmutableAudit = errors.New("moderation actions are append-only")

// ModerationAction is one audited moderator decision, applied or refused.
type ModerationAction struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	PostID          uint                 `gorm:"not null;index" json:"postId"`
	ModeratorID     uint                 `gorm:"not null;index" json:"moderatorId"`
	Action          ModerationActionType `gorm:"size:16;not null" json:"action"`
	Reason          string               `gorm:"type:text" json:"reason,omitempty"`
	Notes           string               `gorm:"type:text" json:"notes,omitempty"`
	Outcome         ModerationOutcome    `gorm:"size:16;not null" json:"outcome"`
	ErrorCode       string               `gorm:"size:32" json:"errorCode,omitempty"`
	PreviousStatus  VerificationStatus   `gorm:"size:16;not null" json:"previousStatus"`
	ResultingStatus VerificationStatus   `gorm:"size:16;not null" json:"resultingStatus"`
	CreatedAt       time.Time            `gorm:"index" json:"createdAt"`
}

// BeforeUpdate rejects updates to audit rows.
func (m *ModerationAction) BeforeUpdate(_ *gorm.DB) error {
	return ErrImmutableAudit
}

// BeforeDelete rejects deletion of audit rows.
func (m *ModerationAction) BeforeDelete(_ *gorm.DB) error {
	return ErrImmutableAudit
}
