package post

import (
	"context"
	"fmt"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/db"

	"github.com/redis/go-redis/v9"
)

// UserChecker resolves whether a user id exists.
type UserChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Feed is the per-user list of authored post ids, most recent first. Ids are
// only ever appended by createPostScript.
type Feed struct {
	rdb   redis.Cmdable
	users UserChecker
	posts *Service
}

func NewFeed(rdb redis.Cmdable, users UserChecker, posts *Service) *Feed {
	return &Feed{rdb: rdb, users: users, posts: posts}
}

// ListPosts returns the posts at inclusive indexes [start, stop] of userID's
// feed. Ids whose record is missing are skipped, so the result may be shorter
// than the window.
func (f *Feed) ListPosts(ctx context.Context, userID, start, stop int64) ([]Post, error) {
	if start < 0 || stop < 0 {
		return nil, fmt.Errorf("%w: start and stop must not be negative", apperr.ErrValidation)
	}
	ok, err := f.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, userID)
	}
	if stop < start {
		return []Post{}, nil
	}

	members, err := f.rdb.LRange(ctx, db.FeedKey(userID), start, stop).Result()
	if err != nil {
		return nil, err
	}
	ids, err := db.ParseIDs(members)
	if err != nil {
		return nil, fmt.Errorf("%w: feed %d: %v", apperr.ErrInconsistent, userID, err)
	}
	return f.posts.lookup(ctx, ids)
}
