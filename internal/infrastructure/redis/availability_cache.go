package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache はリスティングの空きスロット数キャッシュを管理する
// 読み取り専用クエリ面のためのベストエフォートキャッシュであり、
// 正は常にデータベース側の listings.available_slots
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

// GetAvailableSlots はリスティングの空きスロット数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableSlots(ctx context.Context, listingID string) (int, error) {
	val, err := c.client.Get(ctx, c.availabilityKey(listingID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableSlots はリスティングの空きスロット数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableSlots(ctx context.Context, listingID string, count int) error {
	if err := c.client.Set(ctx, c.availabilityKey(listingID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はスロット数を変更したコミットの後に呼ばれ、キャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, listingID string) error {
	if err := c.client.Del(ctx, c.availabilityKey(listingID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) availabilityKey(listingID string) string {
	return fmt.Sprintf("listings:available:%s", listingID)
}
