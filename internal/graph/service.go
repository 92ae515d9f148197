package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/db"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ToEnd as a stop rank lists every remaining edge.
const ToEnd = -1

// Script results shared by follow and unfollow.
const (
	edgeUnchanged   = 0
	followerMissing = -1
	followedMissing = -2
)

// KEYS: user:{a}, user:{b}, followers:{b}, following:{a}
// ARGV: a, b, score
var followScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('EXISTS', KEYS[2]) == 0 then return -2 end
if redis.call('ZSCORE', KEYS[3], ARGV[1]) then return 0 end
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
redis.call('ZADD', KEYS[4], ARGV[3], ARGV[2])
redis.call('HINCRBY', KEYS[1], 'following_count', 1)
redis.call('HINCRBY', KEYS[2], 'follower_count', 1)
return 1
`)

var unfollowScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('EXISTS', KEYS[2]) == 0 then return -2 end
if redis.call('ZREM', KEYS[3], ARGV[1]) == 0 then return 0 end
redis.call('ZREM', KEYS[4], ARGV[2])
redis.call('HINCRBY', KEYS[1], 'following_count', -1)
redis.call('HINCRBY', KEYS[2], 'follower_count', -1)
return 1
`)

var nowFn = time.Now

// UserChecker resolves whether a user id exists.
type UserChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	rdb   redis.Cmdable
	users UserChecker
	log   *zap.Logger
}

func NewService(rdb redis.Cmdable, users UserChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{rdb: rdb, users: users, log: log}
}

func (s *Service) Follow(ctx context.Context, followerID, followedID int64) error {
	if err := validatePair(followerID, followedID); err != nil {
		return err
	}
	res, err := s.runEdgeScript(ctx, followScript, followerID, followedID)
	if err != nil {
		return err
	}
	if res == edgeUnchanged {
		return fmt.Errorf("%w: user %d already follows user %d", apperr.ErrConflict, followerID, followedID)
	}
	s.log.Debug("follow", zap.Int64("follower_id", followerID), zap.Int64("followed_id", followedID))
	return nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followedID int64) error {
	if err := validatePair(followerID, followedID); err != nil {
		return err
	}
	res, err := s.runEdgeScript(ctx, unfollowScript, followerID, followedID)
	if err != nil {
		return err
	}
	if res == edgeUnchanged {
		return fmt.Errorf("%w: user %d does not follow user %d", apperr.ErrConflict, followerID, followedID)
	}
	s.log.Debug("unfollow", zap.Int64("follower_id", followerID), zap.Int64("followed_id", followedID))
	return nil
}

func (s *Service) runEdgeScript(ctx context.Context, script *redis.Script, followerID, followedID int64) (int64, error) {
	res, err := script.Run(ctx, s.rdb,
		[]string{
			db.UserKey(followerID),
			db.UserKey(followedID),
			db.FollowersKey(followedID),
			db.FollowingKey(followerID),
		},
		followerID, followedID, nowFn().UnixMilli(),
	).Int64()
	if err != nil {
		return 0, err
	}
	switch res {
	case followerMissing:
		return 0, fmt.Errorf("%w: follower user %d", apperr.ErrNotFound, followerID)
	case followedMissing:
		return 0, fmt.Errorf("%w: followed user %d", apperr.ErrNotFound, followedID)
	}
	return res, nil
}

func validatePair(followerID, followedID int64) error {
	if followerID <= 0 || followedID <= 0 {
		return fmt.Errorf("%w: follower_id and followed_id must be positive", apperr.ErrValidation)
	}
	if followerID == followedID {
		return fmt.Errorf("%w: cannot follow yourself", apperr.ErrValidation)
	}
	return nil
}

// ListFollowers returns follower ids by follow time, earliest first, for the
// inclusive rank window [start, stop].
func (s *Service) ListFollowers(ctx context.Context, userID, start, stop int64) ([]int64, error) {
	return s.list(ctx, userID, db.FollowersKey(userID), start, stop)
}

// ListFollowing returns the ids userID follows, in the order they were followed.
func (s *Service) ListFollowing(ctx context.Context, userID, start, stop int64) ([]int64, error) {
	return s.list(ctx, userID, db.FollowingKey(userID), start, stop)
}

func (s *Service) list(ctx context.Context, userID int64, key string, start, stop int64) ([]int64, error) {
	if start < 0 || stop < ToEnd {
		return nil, fmt.Errorf("%w: start and stop must not be negative", apperr.ErrValidation)
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if stop != ToEnd && stop < start {
		return []int64{}, nil
	}
	members, err := s.rdb.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	ids, err := db.ParseIDs(members)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInconsistent, key, err)
	}
	return ids, nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d", apperr.ErrNotFound, userID)
	}
	return nil
}

// Counts reads the counters and edge set sizes in one MULTI block.
func (s *Service) Counts(ctx context.Context, userID int64) (Counts, error) {
	var (
		fields  *redis.SliceCmd
		inEdges *redis.IntCmd
		outEdge *redis.IntCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HMGet(ctx, db.UserKey(userID), "follower_count", "following_count")
		inEdges = pipe.ZCard(ctx, db.FollowersKey(userID))
		outEdge = pipe.ZCard(ctx, db.FollowingKey(userID))
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	vals := fields.Val()
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Counts{}, fmt.Errorf("%w: user %d", apperr.ErrNotFound, userID)
	}
	followerCount, err := counter(vals[0])
	if err != nil {
		return Counts{}, fmt.Errorf("%w: user %d follower_count: %v", apperr.ErrInconsistent, userID, err)
	}
	followingCount, err := counter(vals[1])
	if err != nil {
		return Counts{}, fmt.Errorf("%w: user %d following_count: %v", apperr.ErrInconsistent, userID, err)
	}
	return Counts{
		UserID:         userID,
		FollowerCount:  followerCount,
		FollowingCount: followingCount,
		FollowerEdges:  inEdges.Val(),
		FollowingEdges: outEdge.Val(),
	}, nil
}

// Audit returns ErrInconsistent when either counter diverges from the size of
// its edge set.
func (s *Service) Audit(ctx context.Context, userID int64) error {
	c, err := s.Counts(ctx, userID)
	if err != nil {
		return err
	}
	if !c.Consistent() {
		s.log.Error("counter drift",
			zap.Int64("user_id", userID),
			zap.Int64("follower_count", c.FollowerCount),
			zap.Int64("follower_edges", c.FollowerEdges),
			zap.Int64("following_count", c.FollowingCount),
			zap.Int64("following_edges", c.FollowingEdges))
		return fmt.Errorf("%w: user %d counters %d/%d, edges %d/%d", apperr.ErrInconsistent, userID,
			c.FollowerCount, c.FollowingCount, c.FollowerEdges, c.FollowingEdges)
	}
	return nil
}

func counter(v interface{}) (int64, error) {
	str, ok := v.(string)
	if !ok {
		return 0, errors.New("not a string")
	}
	return strconv.ParseInt(str, 10, 64)
}
