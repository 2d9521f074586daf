package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"labbook/internal/domain"
	"labbook/internal/models"
	"labbook/internal/timerange"
)

// RedisStore is a key-value domain.BookingStore. Entities are stored as JSON
// text:
//
//	<prefix>:assets                         hash  asset id -> asset
//	<prefix>:bookings:<asset>:<YYYY-MM-DD>  hash  "start-end" -> booking
//	<prefix>:bookings:index                 set   of booking hash keys
//
// Keying a day's bookings by interval makes HSETNX the uniqueness check.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zerolog.Logger
}

func NewRedisStore(client *redis.Client, prefix string, logger *zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "labbook"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) assetsKey() string {
	return s.prefix + ":assets"
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":bookings:index"
}

func (s *RedisStore) dayKey(assetID string, date time.Time) string {
	return fmt.Sprintf("%s:bookings:%s:%s", s.prefix, assetID, timerange.DayKey(date))
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error) {
	vals, err := s.client.HVals(ctx, s.dayKey(assetID, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out, err := decodeBookings(vals)
	if err != nil {
		return nil, err
	}
	sortBookings(out)
	return out, nil
}

func (s *RedisStore) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list booking keys: %w", err)
	}

	var out []models.Booking
	for _, key := range keys {
		vals, err := s.client.HVals(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("list bookings %s: %w", key, err)
		}
		day, err := decodeBookings(vals)
		if err != nil {
			return nil, err
		}
		out = append(out, day...)
	}
	sortBookings(out)
	return out, nil
}

func decodeBookings(vals []string) ([]models.Booking, error) {
	out := make([]models.Booking, 0, len(vals))
	for _, v := range vals {
		var b models.Booking
		if err := json.Unmarshal([]byte(v), &b); err != nil {
			return nil, fmt.Errorf("decode booking: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func sortBookings(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.AssetID < b.AssetID
	})
}

func (s *RedisStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode booking: %w", err)
	}

	key := s.dayKey(b.AssetID, b.Date)

	// MULTI does not roll back on a failed command, so a written field whose
	// index update failed is removed again.
	var set *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		set = pipe.HSetNX(ctx, key, b.SlotKey(), data)
		pipe.SAdd(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		if set != nil && set.Err() == nil && set.Val() {
			if delErr := s.client.HDel(ctx, key, b.SlotKey()).Err(); delErr != nil {
				s.logger.Error().Err(delErr).Str("key", key).Str("slot", b.SlotKey()).Msg("failed to remove unindexed booking")
			}
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	if !set.Val() {
		return domain.ErrDuplicateBooking
	}
	s.logger.Debug().Str("key", key).Str("slot", b.SlotKey()).Msg("booking stored")
	return nil
}

func (s *RedisStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	vals, err := s.client.HVals(ctx, s.assetsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	out := make([]models.Asset, 0, len(vals))
	for _, v := range vals {
		var a models.Asset
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	val, err := s.client.HGet(ctx, s.assetsKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}

	var a models.Asset
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("decode asset: %w", err)
	}
	return &a, nil
}

func (s *RedisStore) UpsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode asset: %w", err)
	}
	if err := s.client.HSet(ctx, s.assetsKey(), a.ID, data).Err(); err != nil {
		return nil, fmt.Errorf("upsert asset: %w", err)
	}
	return a.Clone(), nil
}

// SetAssetAvailability rewrites the asset under WATCH so a concurrent upsert
// is not overwritten with stale fields.
func (s *RedisStore) SetAssetAvailability(ctx context.Context, id string, available bool) error {
	key := s.assetsKey()

	txf := func(tx *redis.Tx) error {
		val, err := tx.HGet(ctx, key, id).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var a models.Asset
		if err := json.Unmarshal([]byte(val), &a); err != nil {
			return fmt.Errorf("decode asset: %w", err)
		}
		a.Available = available
		data, err := json.Marshal(&a)
		if err != nil {
			return fmt.Errorf("encode asset: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, data)
			return nil
		})
		return err
	}

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("set asset availability: %w", err)
		}
		return err
	}
	return fmt.Errorf("set asset availability: %w", redis.TxFailedErr)
}
