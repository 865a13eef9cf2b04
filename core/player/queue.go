package player

import (
	"math/rand"

	"sonata/model"
)

// Queue 播放队列，维护建队顺序与实际播放顺序两份列表。
// 随机播放开启时 activeOrder 是 originalOrder 的洗牌结果，
// 关闭时恢复为建队顺序，两种切换都保持当前曲目身份不变。
// 非并发安全，由 Session 的锁保护。
type Queue struct {
	originalOrder []model.Track
	activeOrder   []model.Track
	currentIndex  int
	shuffled      bool
	rng           *rand.Rand
}

// NewQueue 创建队列，rng 为洗牌随机源（测试注入固定种子）
func NewQueue(rng *rand.Rand) *Queue {
	return &Queue{
		currentIndex: -1,
		rng:          rng,
	}
}

// SetTracks 重建队列并定位到 startIndex，shuffled 为真时立即洗牌
func (q *Queue) SetTracks(tracks []model.Track, startIndex int, shuffled bool) {
	q.originalOrder = make([]model.Track, len(tracks))
	copy(q.originalOrder, tracks)
	q.activeOrder = make([]model.Track, len(tracks))
	copy(q.activeOrder, tracks)

	if len(tracks) == 0 {
		q.currentIndex = -1
		q.shuffled = shuffled
		return
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		startIndex = 0
	}
	q.currentIndex = startIndex
	q.shuffled = false
	if shuffled {
		q.EnableShuffle()
	}
}

// Restore 按持久化快照原样恢复两个顺序，不重新洗牌。
// 来源顺序必须一并回来，否则重启后关闭随机模式找不回原始排列。
func (q *Queue) Restore(original, active []model.Track, currentIndex int) {
	q.originalOrder = make([]model.Track, len(original))
	copy(q.originalOrder, original)
	q.activeOrder = make([]model.Track, len(active))
	copy(q.activeOrder, active)

	if len(q.activeOrder) == 0 {
		q.currentIndex = -1
		return
	}
	if currentIndex < 0 || currentIndex >= len(q.activeOrder) {
		currentIndex = 0
	}
	q.currentIndex = currentIndex
}

// Len 队列长度
func (q *Queue) Len() int {
	return len(q.activeOrder)
}

// IsEmpty 队列是否为空
func (q *Queue) IsEmpty() bool {
	return len(q.activeOrder) == 0
}

// Shuffled 当前是否为洗牌顺序
func (q *Queue) Shuffled() bool {
	return q.shuffled
}

// CurrentIndex 当前曲目下标，空队列为 -1
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// Current 返回当前曲目
func (q *Queue) Current() (model.Track, bool) {
	if q.currentIndex < 0 || q.currentIndex >= len(q.activeOrder) {
		return model.Track{}, false
	}
	return q.activeOrder[q.currentIndex], true
}

// TrackAt 返回指定下标的曲目
func (q *Queue) TrackAt(index int) (model.Track, bool) {
	if index < 0 || index >= len(q.activeOrder) {
		return model.Track{}, false
	}
	return q.activeOrder[index], true
}

// NextIndex 下一曲下标，尾部回绕到 0；空队列返回 -1
func (q *Queue) NextIndex() int {
	if len(q.activeOrder) == 0 {
		return -1
	}
	return (q.currentIndex + 1) % len(q.activeOrder)
}

// PrevIndex 上一曲下标，头部回绕到末尾；空队列返回 -1
func (q *Queue) PrevIndex() int {
	if len(q.activeOrder) == 0 {
		return -1
	}
	return (q.currentIndex - 1 + len(q.activeOrder)) % len(q.activeOrder)
}

// CommitIndex 提交当前下标
func (q *Queue) CommitIndex(index int) {
	if index < 0 || index >= len(q.activeOrder) {
		return
	}
	q.currentIndex = index
}

// Append 追加到实际播放顺序尾部（快速排队）。
// 只动 activeOrder：快速排队是会话层的便利操作，不属于来源顺序，
// 再次切换随机模式时 activeOrder 会从 originalOrder 重新推导。
func (q *Queue) Append(track model.Track) {
	q.activeOrder = append(q.activeOrder, track)
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
}

// EnableShuffle 洗牌，保持当前曲目身份；找不到时回落到 0
func (q *Queue) EnableShuffle() {
	q.shuffled = true
	if len(q.activeOrder) == 0 {
		return
	}
	currentID := ""
	if cur, ok := q.Current(); ok {
		currentID = cur.ID
	}

	q.activeOrder = make([]model.Track, len(q.originalOrder))
	copy(q.activeOrder, q.originalOrder)
	// Fisher-Yates
	for i := len(q.activeOrder) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		q.activeOrder[i], q.activeOrder[j] = q.activeOrder[j], q.activeOrder[i]
	}

	q.currentIndex = q.indexOf(currentID)
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
}

// DisableShuffle 恢复建队顺序，保持当前曲目身份
func (q *Queue) DisableShuffle() {
	q.shuffled = false
	if len(q.activeOrder) == 0 {
		return
	}
	currentID := ""
	if cur, ok := q.Current(); ok {
		currentID = cur.ID
	}

	q.activeOrder = make([]model.Track, len(q.originalOrder))
	copy(q.activeOrder, q.originalOrder)

	q.currentIndex = q.indexOf(currentID)
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
}

func (q *Queue) indexOf(trackID string) int {
	if trackID == "" {
		return -1
	}
	for i, t := range q.activeOrder {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// RemoveTrack 移除曲目的所有出现并重排下标。
// 返回是否移除过、以及当前曲目是否被移除。当前曲目被移除后
// currentIndex 指向顶上来的那首（或队列清空时为 -1）。
func (q *Queue) RemoveTrack(trackID string) (removed, currentRemoved bool) {
	filter := func(order []model.Track, current int) ([]model.Track, int, bool) {
		out := order[:0:0]
		newCurrent := current
		hitCurrent := false
		for i, t := range order {
			if t.ID == trackID {
				removed = true
				if i == current {
					hitCurrent = true
				} else if i < current {
					newCurrent--
				}
				continue
			}
			out = append(out, t)
		}
		return out, newCurrent, hitCurrent
	}

	q.originalOrder, _, _ = filter(q.originalOrder, -1)
	q.activeOrder, q.currentIndex, currentRemoved = filter(q.activeOrder, q.currentIndex)

	if len(q.activeOrder) == 0 {
		q.currentIndex = -1
		return removed, currentRemoved
	}
	if q.currentIndex >= len(q.activeOrder) {
		q.currentIndex = 0
	}
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
	return removed, currentRemoved
}

// UpdateTrackMeta 把曲目元数据修改同步进队列里的副本
func (q *Queue) UpdateTrackMeta(track model.Track) {
	for i := range q.originalOrder {
		if q.originalOrder[i].ID == track.ID {
			q.originalOrder[i] = track
		}
	}
	for i := range q.activeOrder {
		if q.activeOrder[i].ID == track.ID {
			q.activeOrder[i] = track
		}
	}
}

// TrackIDs 返回两份顺序的曲目ID，持久化快照用
func (q *Queue) TrackIDs() (original, active []string) {
	original = make([]string, len(q.originalOrder))
	for i, t := range q.originalOrder {
		original[i] = t.ID
	}
	active = make([]string, len(q.activeOrder))
	for i, t := range q.activeOrder {
		active[i] = t.ID
	}
	return original, active
}

// Tracks 返回实际播放顺序的副本
func (q *Queue) Tracks() []model.Track {
	out := make([]model.Track, len(q.activeOrder))
	copy(out, q.activeOrder)
	return out
}
