package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Repo is a redis-backed SnapshotStore. Each portfolio maps to one hash:
// key = <prefix>:snapshots:<portfolioID>, field = ISO date, value = JSON.
type Repo struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	if prefix == "" {
		prefix = "folio"
	}
	return &Repo{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Repo) key(portfolioID string) string {
	return r.prefix + ":snapshots:" + portfolioID
}

func (r *Repo) Find(ctx context.Context, portfolioID string, dates []model.Date) ([]model.Snapshot, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	fields := make([]string, len(dates))
	for i, d := range dates {
		fields[i] = d.String()
	}
	values, err := r.rdb.HMGet(ctx, r.key(portfolioID), fields...).Result()
	if err != nil {
		return nil, err
	}

	var out []model.Snapshot
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var snap model.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			// A corrupt field reads as a miss; the date gets recomputed.
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (r *Repo) Store(ctx context.Context, portfolioID string, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	values := make(map[string]string, len(snapshots))
	for _, snap := range snapshots {
		b, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		values[snap.Date.String()] = string(b)
	}

	key := r.key(portfolioID)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, values)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) DeleteFrom(ctx context.Context, portfolioID string, from model.Date) error {
	key := r.key(portfolioID)
	fields, err := r.rdb.HKeys(ctx, key).Result()
	if err != nil {
		return err
	}
	var stale []string
	for _, f := range fields {
		d, err := model.ParseDate(f)
		if err != nil {
			stale = append(stale, f)
			continue
		}
		if !d.Before(from) {
			stale = append(stale, f)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return r.rdb.HDel(ctx, key, stale...).Err()
}

func (r *Repo) DeleteOn(ctx context.Context, date model.Date) error {
	field := date.String()
	iter := r.rdb.Scan(ctx, 0, r.prefix+":snapshots:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.HDel(ctx, iter.Val(), field).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *Repo) DeletePortfolio(ctx context.Context, portfolioID string) error {
	return r.rdb.Del(ctx, r.key(portfolioID)).Err()
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.SnapshotStore = (*Repo)(nil)
