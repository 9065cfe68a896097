package models

import "time"

// Vote is a user's single vote on a post. The (UserID, PostID) pair is the identity.
type Vote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"postId"`
	VoteType  VoteType  `gorm:"size:8;not null" json:"voteType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentVote is a user's single vote on a comment.
type CommentVote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	CommentID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"commentId"`
	VoteType  VoteType  `gorm:"size:8;not null" json:"voteType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VoteTally is the ledger-derived counter pair for a post or comment.
type VoteTally struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}
