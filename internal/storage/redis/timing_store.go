package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/redis/go-redis/v9"
)

type timingStore struct {
	client *redis.Client
	keys   keys
	clear  *redis.Script
	now    func() time.Time
}

func newTimingStore(client *redis.Client, prefix string) *timingStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &timingStore{
		client: client,
		keys:   keys{prefix: prefix},
		clear:  redis.NewScript(clearTimingsScript),
		now:    time.Now,
	}
}

// Load reads every application hash listed in the apps set
func (s *timingStore) Load(ctx context.Context) (activity.Timeline, error) {
	apps, err := s.client.SMembers(ctx, s.keys.apps()).Result()
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, storage.ErrNotFound
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(apps))
	for i, app := range apps {
		cmds[i] = pipe.HGetAll(ctx, s.keys.app(app))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	timeline := make(activity.Timeline, len(apps))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		titles := make(activity.Titles, len(data))
		for title, value := range data {
			rec, err := codec.DecodeRecord([]byte(value))
			if err != nil {
				return nil, fmt.Errorf("record %s/%s: %w", apps[i], title, err)
			}
			titles[title] = rec
		}
		timeline[apps[i]] = titles
	}

	if len(timeline) == 0 {
		return nil, storage.ErrNotFound
	}
	return timeline, nil
}

// Save replaces every stored application inside one MULTI/EXEC
func (s *timingStore) Save(ctx context.Context, timeline activity.Timeline) error {
	existing, err := s.client.SMembers(ctx, s.keys.apps()).Result()
	if err != nil {
		return err
	}

	encoded := make(map[string]map[string]interface{}, len(timeline))
	for app, titles := range timeline {
		fields := make(map[string]interface{}, len(titles))
		for title, rec := range titles {
			if rec == nil {
				continue
			}
			data, err := codec.EncodeRecord(rec)
			if err != nil {
				return err
			}
			fields[title] = string(data)
		}
		if app != "" && len(fields) > 0 {
			encoded[app] = fields
		}
	}

	meta := storage.NewMeta(timeline, s.now())

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, app := range existing {
			pipe.Del(ctx, s.keys.app(app))
		}
		pipe.Del(ctx, s.keys.apps())
		for app, fields := range encoded {
			pipe.HSet(ctx, s.keys.app(app), fields)
			pipe.SAdd(ctx, s.keys.apps(), app)
		}
		pipe.HSet(ctx, s.keys.meta(), metaFields(meta))
		return nil
	})
	return err
}

// Clear removes every stored application atomically
func (s *timingStore) Clear(ctx context.Context) error {
	scriptKeys := []string{s.keys.apps(), s.keys.meta()}
	args := []interface{}{s.keys.appPrefix(), s.now().UTC().Format(time.RFC3339Nano)}
	return s.clear.Run(ctx, s.client, scriptKeys, args...).Err()
}

// Meta returns the last save description
func (s *timingStore) Meta(ctx context.Context) (*storage.Meta, error) {
	data, err := s.client.HGetAll(ctx, s.keys.meta()).Result()
	if err != nil {
		return nil, err
	}
	return parseMeta(data)
}
