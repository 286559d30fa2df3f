package state

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the document under a single key as one JSON blob.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = "casino:app_state"
	}
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Load() (*AppState, error) {
	raw, err := r.client.Get(context.Background(), r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data AppState
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil
	}
	return &data, nil
}

func (r *RedisBackend) Save(data *AppState) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.client.Set(context.Background(), r.key, raw, 0).Err()
}
