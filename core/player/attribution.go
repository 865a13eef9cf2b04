package player

import (
	"sonata/logger"
	"sonata/model"
)

// AttributionTracker 播放归因：每次曲目装载后，播放位置首次
// 越过阈值时恰好计一次播放量。暂停再恢复不重置，换曲或淡入
// 淡出交棒后重新武装。
type AttributionTracker struct {
	threshold float64
	counted   bool
	store     TrackStore
	onCounted func(track model.Track)
}

// NewAttributionTracker 创建归因跟踪器，threshold 为计数阈值（秒）
func NewAttributionTracker(threshold float64, store TrackStore) *AttributionTracker {
	return &AttributionTracker{
		threshold: threshold,
		store:     store,
	}
}

// SetOnCounted 设置计数成功后的回调，会话用它同步内存副本
func (t *AttributionTracker) SetOnCounted(fn func(track model.Track)) {
	t.onCounted = fn
}

// Rearm 重新武装，下一次越过阈值会再计数
func (t *AttributionTracker) Rearm() {
	t.counted = false
}

// Counted 本次装载是否已计数
func (t *AttributionTracker) Counted() bool {
	return t.counted
}

// Observe 观察一次位置。持久化失败只记日志，内存标记仍然置位，
// 同一次装载不会重复计数。
func (t *AttributionTracker) Observe(track model.Track, position float64) {
	if t.counted || position <= t.threshold {
		return
	}
	t.counted = true

	if err := t.store.IncrementPlayCount(track.ID); err != nil {
		logger.Error("播放计数持久化失败",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		return
	}
	logger.Debug("播放计数 +1",
		logger.String("trackId", track.ID),
		logger.String("name", track.Name))
	if t.onCounted != nil {
		t.onCounted(track)
	}
}
