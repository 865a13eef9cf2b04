package model

// 播放会话的传输状态
const (
	PlayerStateIdle    = "idle"
	PlayerStatePlaying = "playing"
	PlayerStatePaused  = "paused"
)

// DeckSnapshot 单个声轨的对外状态
type DeckSnapshot struct {
	Deck     string  `json:"deck"` // "A" / "B"
	TrackID  string  `json:"trackId,omitempty"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Volume   float64 `json:"volume"`
	Playing  bool    `json:"playing"`
}

// PlayerSnapshot 播放会话的对外状态，供前端渲染
type PlayerSnapshot struct {
	State        string         `json:"state"` // idle / playing / paused
	ActiveDeck   string         `json:"activeDeck"`
	CurrentIndex int            `json:"currentIndex"` // 空队列时为 -1
	QueueLength  int            `json:"queueLength"`
	CurrentTrack *Track         `json:"currentTrack,omitempty"`
	Shuffle      bool           `json:"shuffle"`
	FlowState    bool           `json:"flowState"`
	Enhancer     bool           `json:"enhancer"`
	Crossfading  bool           `json:"crossfading"`
	Decks        []DeckSnapshot `json:"decks"`
}

// PlayerSettings 持久化的播放器开关（Redis 保存，启动时恢复）
type PlayerSettings struct {
	FlowStateEnabled bool `json:"flowStateEnabled"`
	ShuffleEnabled   bool `json:"shuffleEnabled"`
	EnhancerEnabled  bool `json:"enhancerEnabled"`
}

// DefaultPlayerSettings 默认开关组合，与前端首次进入时一致
func DefaultPlayerSettings() PlayerSettings {
	return PlayerSettings{FlowStateEnabled: true}
}
