package db

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Sequence is a monotonic id counter kept in a single Redis key. Allocation
// happens with INCR inside the store scripts; Sequence only reads the
// high-water mark.
type Sequence struct {
	rdb redis.Cmdable
	key string
}

func NewSequence(rdb redis.Cmdable, key string) *Sequence {
	return &Sequence{rdb: rdb, key: key}
}

// Current returns the last allocated id, or 0 when nothing was allocated yet.
func (s *Sequence) Current(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, s.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
