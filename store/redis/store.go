package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	goredis "github.com/redis/go-redis/v9"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
)

const (
	recordKeyPrefix = "calls:record:"
	idsKey          = "calls:ids"
)

type redisStore struct {
	options store.Options
	client  *goredis.Client
}

func (s *redisStore) Load(ctx context.Context, id string) (*record.CallRecord, error) {
	data, err := s.client.Get(ctx, recordKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return store.Decode(id, data)
}

func (s *redisStore) Save(ctx context.Context, rec *record.CallRecord) error {
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, recordKeyPrefix+rec.ID(), data, 0)
		pipe.SAdd(ctx, idsKey, rec.ID())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID(), err)
	}

	return nil
}

func (s *redisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, idsKey).Result()
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)

	return ids, nil
}

// NewStore connects to the redis URL in location, e.g. redis://localhost:6379/0.
func NewStore(opts ...store.Option) store.Store {
	options := store.NewOptions(opts...)

	if len(options.Location) == 0 {
		panic("missing location for redis store")
	}

	redisOpts, err := goredis.ParseURL(options.Location)
	if err != nil {
		detail := "failed to parse redis store location"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	client := goredis.NewClient(redisOpts)

	if err := client.Ping(options.Context).Err(); err != nil {
		detail := "failed to ping redis store"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return &redisStore{
		options: options,
		client:  client,
	}
}
