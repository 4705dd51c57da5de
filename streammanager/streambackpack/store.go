package streambackpack

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// streamStore 持久化订阅列表, 进程重启后可以恢复
type streamStore interface {
	Save(ctx context.Context, e *streamEntry) error
	Delete(ctx context.Context, uuid string) error
	Load(ctx context.Context) ([]*streamEntry, error)
}

type redisStore struct {
	rdb *redis.Client
	key string
}

func newRedisStore(rdb *redis.Client, key string) *redisStore {
	return &redisStore{rdb: rdb, key: key}
}

func (s *redisStore) Save(ctx context.Context, e *streamEntry) error {
	data, err := Json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key, e.UUID, data).Err()
}

func (s *redisStore) Delete(ctx context.Context, uuid string) error {
	return s.rdb.HDel(ctx, s.key, uuid).Err()
}

func (s *redisStore) Load(ctx context.Context) ([]*streamEntry, error) {
	m, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	list := make([]*streamEntry, 0, len(m))
	for uuid, v := range m {
		e := &streamEntry{}
		if err := Json.UnmarshalFromString(v, e); err != nil {
			return nil, fmt.Errorf("stream %s: %w", uuid, err)
		}
		list = append(list, e)
	}
	return list, nil
}
