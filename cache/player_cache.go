package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sonata/model"

	"github.com/go-redis/redis/v8"
)

const (
	playerSettingsKey = "player:%d:settings" // String: PlayerSettings JSON
	playerQueueKey    = "player:%d:queue"    // String: QueueSnapshot JSON
	playerTTL         = 7 * 24 * time.Hour
)

// QueueSnapshot 播放队列的持久化快照，重启后恢复会话用
type QueueSnapshot struct {
	OriginalOrder []string `json:"originalOrder"` // 建队顺序的曲目ID
	ActiveOrder   []string `json:"activeOrder"`   // 实际迭代顺序的曲目ID
	CurrentIndex  int      `json:"currentIndex"`
	SavedAt       int64    `json:"savedAt"`
}

// PlayerCache 播放器状态缓存操作
type PlayerCache struct {
	client *redis.Client
}

// NewPlayerCache 创建播放器缓存
func NewPlayerCache(client *redis.Client) *PlayerCache {
	return &PlayerCache{client: client}
}

// ========== 设置 ==========

// GetSettings 读取持久化的播放器开关，未设置过时返回默认值
func (c *PlayerCache) GetSettings(ctx context.Context, userID int64) (model.PlayerSettings, error) {
	settings := model.DefaultPlayerSettings()
	if c.client == nil {
		return settings, fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(playerSettingsKey, userID)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to get player settings: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return model.DefaultPlayerSettings(), fmt.Errorf("failed to unmarshal player settings: %w", err)
	}
	return settings, nil
}

// SetSettings 写入播放器开关
func (c *PlayerCache) SetSettings(ctx context.Context, userID int64, settings model.PlayerSettings) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal player settings: %w", err)
	}

	key := fmt.Sprintf(playerSettingsKey, userID)
	return c.client.Set(ctx, key, data, 0).Err()
}

// ========== 队列快照 ==========

// SaveQueue 保存队列快照
func (c *PlayerCache) SaveQueue(ctx context.Context, userID int64, snapshot *QueueSnapshot) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	snapshot.SavedAt = time.Now().UnixMilli()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal queue snapshot: %w", err)
	}

	key := fmt.Sprintf(playerQueueKey, userID)
	return c.client.Set(ctx, key, data, playerTTL).Err()
}

// LoadQueue 读取队列快照，不存在时返回 nil
func (c *PlayerCache) LoadQueue(ctx context.Context, userID int64) (*QueueSnapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(playerQueueKey, userID)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get queue snapshot: %w", err)
	}

	var snapshot QueueSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue snapshot: %w", err)
	}
	return &snapshot, nil
}

// ClearQueue 删除队列快照
func (c *PlayerCache) ClearQueue(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, fmt.Sprintf(playerQueueKey, userID)).Err()
}
