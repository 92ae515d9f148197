package post

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/db"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// createPostScript allocates the id, writes the record and pushes the id onto
// the head of the author's feed. Returns 0 when the author is missing.
//
// KEYS: user:{author}, seq:post, feed:{author}
// ARGV: author, content, created_at, post key prefix
var createPostScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[4] .. id,
	'id', id,
	'author_id', ARGV[1],
	'content', ARGV[2],
	'created_at', ARGV[3])
redis.call('LPUSH', KEYS[3], id)
return id
`)

var nowFn = time.Now

// Publisher fans a new post out to live subscribers of its author.
type Publisher interface {
	Broadcast(topic string, payload []byte)
}

type Service struct {
	rdb redis.Cmdable
	pub Publisher
	log *zap.Logger
}

func NewService(rdb redis.Cmdable, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{rdb: rdb, pub: pub, log: log}
}

func (s *Service) CreatePost(ctx context.Context, authorID int64, content string) (Post, error) {
	if authorID <= 0 {
		return Post{}, fmt.Errorf("%w: author_id must be positive", apperr.ErrValidation)
	}
	if content == "" {
		return Post{}, fmt.Errorf("%w: content required", apperr.ErrValidation)
	}

	createdAt := nowFn().UTC().Truncate(time.Millisecond)
	id, err := createPostScript.Run(ctx, s.rdb,
		[]string{db.UserKey(authorID), db.PostSeqKey, db.FeedKey(authorID)},
		authorID, content, createdAt.UnixMilli(), db.PostPrefix,
	).Int64()
	if err != nil {
		return Post{}, err
	}
	if id == 0 {
		return Post{}, fmt.Errorf("%w: author %d", apperr.ErrNotFound, authorID)
	}

	p := Post{ID: id, AuthorID: authorID, Content: content, CreatedAt: createdAt}
	s.log.Info("post created", zap.Int64("post_id", id), zap.Int64("author_id", authorID))
	s.publish(p)
	return p, nil
}

func (s *Service) publish(p Post) {
	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		s.log.Warn("post encode failed", zap.Int64("post_id", p.ID), zap.Error(err))
		return
	}
	s.pub.Broadcast(db.FormatID(p.AuthorID), payload)
}

func (s *Service) GetPost(ctx context.Context, id int64) (Post, error) {
	fields, err := s.rdb.HGetAll(ctx, db.PostKey(id)).Result()
	if err != nil {
		return Post{}, err
	}
	if len(fields) == 0 {
		return Post{}, fmt.Errorf("%w: post %d", apperr.ErrNotFound, id)
	}
	return postFromHash(id, fields)
}

// lookup resolves ids in one pipeline, keeping their order. Ids without a
// record are skipped.
func (s *Service) lookup(ctx context.Context, ids []int64) ([]Post, error) {
	if len(ids) == 0 {
		return []Post{}, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, db.PostKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.log.Warn("feed references missing post", zap.Int64("post_id", ids[i]))
			continue
		}
		p, err := postFromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func postFromHash(id int64, fields map[string]string) (Post, error) {
	authorID, err := strconv.ParseInt(fields["author_id"], 10, 64)
	if err != nil {
		return Post{}, fmt.Errorf("%w: post %d author_id: %v", apperr.ErrInconsistent, id, err)
	}
	p := Post{ID: id, AuthorID: authorID, Content: fields["content"]}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		p.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return p, nil
}
