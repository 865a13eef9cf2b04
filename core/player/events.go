package player

import (
	"context"

	"sonata/model"
)

// DeckID 播放卡座标识
type DeckID string

const (
	DeckA DeckID = "A"
	DeckB DeckID = "B"
)

// Other 返回另一个卡座
func (d DeckID) Other() DeckID {
	if d == DeckA {
		return DeckB
	}
	return DeckA
}

// ========== 卡座指令（服务端 → 客户端音频元素） ==========

// CommandKind 卡座指令类型
type CommandKind string

const (
	CmdLoad   CommandKind = "load"
	CmdPlay   CommandKind = "play"
	CmdPause  CommandKind = "pause"
	CmdVolume CommandKind = "volume"
	CmdSeek   CommandKind = "seek"
	CmdEQ     CommandKind = "eq"
)

// DeckCommand 推送给客户端双音频元素的指令。
// 数值字段不能带 omitempty：音量 0、进度 0、增益 0 都是有效载荷，
// 淡入起点和音效关闭全靠它们落到线上。
type DeckCommand struct {
	Deck     DeckID      `json:"deck"`
	Kind     CommandKind `json:"kind"`
	TrackID  string      `json:"trackId,omitempty"`
	URL      string      `json:"url,omitempty"`
	Volume   float64     `json:"volume"`
	Position float64     `json:"position"`
	// EQ 增益（dB）与平滑时间常数（秒）
	Bass      float64 `json:"bass"`
	Mid       float64 `json:"mid"`
	Treble    float64 `json:"treble"`
	Smoothing float64 `json:"smoothing"`
}

// CommandSink 接收卡座指令的音频输出端，由 WebSocket 连接实现
type CommandSink interface {
	Send(cmd DeckCommand)
}

// ========== 播放器事件（服务端 → UI） ==========

// EventKind 播放器事件类型
type EventKind string

const (
	EventState    EventKind = "state"    // 完整状态快照
	EventPosition EventKind = "position" // 播放进度
	EventNotify   EventKind = "notify"   // 用户提示
)

// PlayerEvent 广播给 UI 的播放器事件
type PlayerEvent struct {
	Kind     EventKind             `json:"kind"`
	Message  string                `json:"message,omitempty"`
	Deck     DeckID                `json:"deck,omitempty"`
	Position float64               `json:"position,omitempty"`
	Duration float64               `json:"duration,omitempty"`
	Snapshot *model.PlayerSnapshot `json:"snapshot,omitempty"`
}

// Notifier 播放器事件广播端
type Notifier interface {
	Publish(userID int64, event PlayerEvent)
}

// ========== 协作方接口 ==========

// TrackStore 播放计数与曲目持久化
type TrackStore interface {
	IncrementPlayCount(trackID string) error
}

// PlaylistFinder 按曲目查找所属歌单，音效档案解析用
type PlaylistFinder interface {
	FindPlaylistContaining(userID int64, trackID string) (*model.Playlist, error)
}

// SettingsStore 播放器开关的持久化，cache.PlayerCache 实现
type SettingsStore interface {
	SetSettings(ctx context.Context, userID int64, settings model.PlayerSettings) error
}
