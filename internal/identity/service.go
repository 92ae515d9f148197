package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/db"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Credentials hashes and checks passwords; the identity store never sees
// plain text beyond handing it over.
type Credentials interface {
	Hash(password string) (string, error)
	Compare(hash, candidate string) bool
}

// createUserScript reserves the username and writes the record in one step.
// Returns 0 when the username is taken, otherwise the new id.
var createUserScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[4] .. id,
	'id', id,
	'username', ARGV[1],
	'password', ARGV[2],
	'follower_count', 0,
	'following_count', 0,
	'created_at', ARGV[3])
redis.call('HSET', KEYS[1], ARGV[1], id)
return id
`)

var nowFn = time.Now

type Service struct {
	rdb   redis.Cmdable
	creds Credentials
	log   *zap.Logger
}

func NewService(rdb redis.Cmdable, creds Credentials, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{rdb: rdb, creds: creds, log: log}
}

func (s *Service) CreateUser(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username required", apperr.ErrValidation)
	}
	if password == "" {
		return 0, fmt.Errorf("%w: password required", apperr.ErrValidation)
	}
	hash, err := s.creds.Hash(password)
	if err != nil {
		return 0, err
	}

	id, err := createUserScript.Run(ctx, s.rdb,
		[]string{db.UsernameIndex, db.UserSeqKey},
		username, hash, nowFn().UnixMilli(), db.UserPrefix,
	).Int64()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: username %q already registered", apperr.ErrConflict, username)
	}
	s.log.Info("user created", zap.Int64("user_id", id), zap.String("username", username))
	return id, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	user, found, err := s.load(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	return user, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	raw, err := s.rdb.HGet(ctx, db.UsernameIndex, username).Result()
	if errors.Is(err, redis.Nil) {
		return User{}, fmt.Errorf("%w: username %q", apperr.ErrNotFound, username)
	}
	if err != nil {
		return User{}, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return User{}, fmt.Errorf("%w: username %q indexes malformed id %q", apperr.ErrInconsistent, username, raw)
	}

	user, found, err := s.load(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		s.log.Error("username index points at missing user",
			zap.String("username", username), zap.Int64("user_id", id))
		return User{}, fmt.Errorf("%w: username %q indexes missing user %d", apperr.ErrInconsistent, username, id)
	}
	return user, nil
}

// VerifyCredential returns false on a password mismatch and ErrNotFound when
// the user does not exist.
func (s *Service) VerifyCredential(ctx context.Context, id int64, candidate string) (bool, error) {
	hash, err := s.rdb.HGet(ctx, db.UserKey(id), "password").Result()
	if errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return false, err
	}
	return s.creds.Compare(hash, candidate), nil
}

func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, db.UserKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) load(ctx context.Context, id int64) (User, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, db.UserKey(id)).Result()
	if err != nil {
		return User{}, false, err
	}
	if len(fields) == 0 {
		return User{}, false, nil
	}
	user, err := userFromHash(fields)
	if err != nil {
		return User{}, false, fmt.Errorf("%w: user %d: %v", apperr.ErrInconsistent, id, err)
	}
	return user, true, nil
}

func userFromHash(fields map[string]string) (User, error) {
	var (
		u   User
		err error
	)
	if u.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return User{}, fmt.Errorf("id: %w", err)
	}
	if u.FollowerCount, err = strconv.ParseInt(fields["follower_count"], 10, 64); err != nil {
		return User{}, fmt.Errorf("follower_count: %w", err)
	}
	if u.FollowingCount, err = strconv.ParseInt(fields["following_count"], 10, 64); err != nil {
		return User{}, fmt.Errorf("following_count: %w", err)
	}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		u.CreatedAt = time.UnixMilli(ms).UTC()
	}
	u.Username = fields["username"]
	u.PasswordHash = fields["password"]
	return u, nil
}
