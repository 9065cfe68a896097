package models

import "time"

// Category groups posts. PostCount counts posts that have ever been published
// into the category and only increases.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	PostCount int64     `gorm:"not null;default:0" json:"postCount"`
	CreatedAt time.Time `json:"createdAt"`
}
