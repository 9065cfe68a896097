package models

import "time"

// Comment is a reply on a post, optionally nested under another comment on
// the same post. Depth is never stored.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	ParentID  *uint     `gorm:"index" json:"parentId,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsDeleted bool      `gorm:"not null;default:false" json:"isDeleted"`
	Upvotes   int64     `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int64     `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Placeholder returns the public rendering of a deleted comment: the node
// keeps its place in the tree without exposing the body.
func (c Comment) Placeholder() Comment {
	if !c.IsDeleted {
		return c
	}
	c.Content = ""
	c.AuthorID = 0
	return c
}
