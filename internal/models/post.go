// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post represents a community post. Posts are never hard-deleted.
type Post struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	AuthorID           uint               `gorm:"not null;index" json:"authorId"`
	CategoryID         uint               `gorm:"not null;index" json:"categoryId"`
	Title              string             `gorm:"size:300;not null" json:"title"`
	Content            string             `gorm:"type:text;not null" json:"content"`
	MediaURL           string             `gorm:"size:2048" json:"mediaUrl,omitempty"`
	LinkURL            string             `gorm:"size:2048" json:"linkUrl,omitempty"`
	Tags               []string           `gorm:"serializer:json;type:text" json:"tags"`
	PostType           PostType           `gorm:"size:16;not null;default:text" json:"type"`
	PaymentStatus      PaymentStatus      `gorm:"size:16;not null;default:none" json:"paymentStatus"`
	VerificationStatus VerificationStatus `gorm:"size:16;not null;default:approved;index" json:"verificationStatus"`
	IsDeleted          bool               `gorm:"not null;default:false" json:"isDeleted"`
	IsFeatured         bool               `gorm:"not null;default:false" json:"isFeatured"`
	UpvoteCount        int64              `gorm:"not null;default:0" json:"upvotes"`
	DownvoteCount      int64              `gorm:"not null;default:0" json:"downvotes"`
	CommentCount       int64              `gorm:"not null;default:0" json:"commentCount"`
	// PublishedAt is set the first time the post becomes publicly listed.
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsListed reports whether the post is visible in public listings.
func (p *Post) IsListed() bool {
	return !p.IsDeleted && p.VerificationStatus == VerificationApproved
}

// NetScore is upvotes minus downvotes.
func (p *Post) NetScore() int64 {
	return p.UpvoteCount - p.DownvoteCount
}
