// Package ranking computes ordering keys for public post listings.
// Every function here is pure; callers pass the clock in.
package ranking

import (
	"fmt"
	"slices"
	"time"

	"atelier/internal/models"
)

// Sort names a listing order.
type Sort string

const (
	SortNew    Sort = "new"
	SortTop    Sort = "top"
	SortHot    Sort = "hot"
	SortRising Sort = "rising"
)

// minAge keeps rising scores finite for posts created this second.
const minAge = time.Second

// ParseSort validates a client supplied sort; empty means new.
func ParseSort(s string) (Sort, error) {
	switch v := Sort(s); v {
	case SortNew, SortTop, SortHot, SortRising:
		return v, nil
	case "":
		return SortNew, nil
	}
	return "", models.NewValidationError(fmt.Sprintf("invalid sort %q", s))
}

// Signals are the inputs every ranking key is computed from.
type Signals struct {
	Upvotes   int64
	Downvotes int64
	Comments  int64
	CreatedAt time.Time
}

// SignalsOf extracts ranking signals from a post.
func SignalsOf(p *models.Post) Signals {
	return Signals{
		Upvotes:   p.UpvoteCount,
		Downvotes: p.DownvoteCount,
		Comments:  p.CommentCount,
		CreatedAt: p.CreatedAt,
	}
}

// TopScore is upvotes minus downvotes.
func TopScore(s Signals) int64 {
	return s.Upvotes - s.Downvotes
}

// HotScore is the net score plus the comment count.
func HotScore(s Signals) int64 {
	return s.Upvotes - s.Downvotes + s.Comments
}

// RisingScore is the net vote score per second of age, with age floored at one
// second. Comments do not contribute.
func RisingScore(s Signals, now time.Time) float64 {
	age := now.Sub(s.CreatedAt)
	if age < minAge {
		age = minAge
	}
	return float64(TopScore(s)) / age.Seconds()
}

// Compare orders a before b (negative) when a ranks higher under sort.
// Equal keys fall back to newest first.
func Compare(sort Sort, a, b Signals, now time.Time) int {
	var c int
	switch sort {
	case SortTop:
		c = cmpDesc(TopScore(a), TopScore(b))
	case SortHot:
		c = cmpDesc(HotScore(a), HotScore(b))
	case SortRising:
		c = cmpDesc(RisingScore(a, now), RisingScore(b, now))
	}
	if c != 0 {
		return c
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

// SortPosts orders posts in place. Ties on every key fall back to descending ID
// so the result is deterministic.
func SortPosts(posts []*models.Post, sort Sort, now time.Time) {
	slices.SortStableFunc(posts, func(a, b *models.Post) int {
		if c := Compare(sort, SignalsOf(a), SignalsOf(b), now); c != 0 {
			return c
		}
		return cmpDesc(a.ID, b.ID)
	})
}

func cmpDesc[T int64 | float64 | uint](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
