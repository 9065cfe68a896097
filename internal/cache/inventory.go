package cache

import (
	"context"
	"fmt"
	"time"
)

const PostKeyPrefix = "post:%d"

// PostTTL bounds staleness of a cached post even if an invalidation is lost.
const PostTTL = 30 * time.Second

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// Invalidate deletes keys; errors are ignored because entries also expire.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}
