// Package service implements the post lifecycle, payment gate, moderation
// queue, vote ledger and comment tree on top of the repositories.
package service

import (
	"context"
	"log/slog"

	"atelier/internal/cache"
	"atelier/internal/middleware"
	"atelier/internal/notifications"

	"go.opentelemetry.io/otel/attribute"
)

// Publisher receives domain events after their transaction commits.
type Publisher interface {
	PublishEvent(ctx context.Context, evt notifications.Event) error
}

// Viewer identifies the caller for visibility checks. A zero UserID is anonymous.
type Viewer struct {
	UserID    uint
	Moderator bool
}

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset is the row offset of the first item on the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes a returned page.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func paginationFor(p Page, total int64) Pagination {
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// settle runs the side effects of a committed mutation: the cached post is
// dropped and events are published. Failures are logged, never returned; the
// cache TTL bounds staleness if an invalidation is lost.
func settle(ctx context.Context, pub Publisher, postID uint, events ...notifications.Event) {
	if postID != 0 {
		cache.InvalidatePost(ctx, postID)
	}
	if pub == nil {
		return
	}
	for _, evt := range events {
		if err := pub.PublishEvent(ctx, evt); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish event",
				slog.String("event", evt.Type),
				slog.Uint64("post_id", uint64(evt.PostID)),
				slog.String("error", err.Error()))
		}
	}
}

func postAttr(id uint) attribute.KeyValue {
	return attribute.Int64("post.id", int64(id))
}
