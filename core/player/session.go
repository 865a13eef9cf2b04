package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sonata/logger"
	"sonata/model"
)

// SessionConfig 播放会话的调校参数
type SessionConfig struct {
	CrossfadeWindow     float64       // 交叉淡入淡出窗口（秒）
	PlayCountThreshold  float64       // 播放计数阈值（秒）
	PreviousRestart     float64       // 上一曲改为重播当前曲的位置阈值（秒）
	TickInterval        time.Duration // 会话时钟步长
	AutoSkipOnLoadError bool          // 曲目加载失败时是否自动跳下一曲
}

// DefaultSessionConfig 默认调校
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CrossfadeWindow:    6,
		PlayCountThreshold: 5,
		PreviousRestart:    3,
		TickInterval:       250 * time.Millisecond,
	}
}

// SessionDeps 播放会话的协作方
type SessionDeps struct {
	Sink      CommandSink
	Notifier  Notifier
	Tracks    TrackStore
	Playlists PlaylistFinder
	Settings  SettingsStore
	// StreamURL 生成卡座装载地址（含音频流令牌），为空时用曲目自带地址
	StreamURL func(model.Track) string
}

// Session 单用户播放会话：双卡座、播放队列、传输状态机、
// 交叉淡入淡出协调与播放归因的聚合根。所有状态由一把锁保护，
// 会话时钟与淡变定时器都通过加锁入口驱动。
type Session struct {
	mu     sync.Mutex
	userID int64
	cfg    SessionConfig
	deps   SessionDeps

	queue       *Queue
	decks       map[DeckID]*Deck
	active      DeckID
	state       string
	flowState   bool
	attribution *AttributionTracker
	enhancer    *Enhancer

	// 淡变协调状态
	crossfading bool
	fadeGen     int
	fadeTarget  int
	fadeStop    chan struct{}

	stop    chan struct{}
	stopped bool
}

// NewSession 创建播放会话。rng 为洗牌随机源，时钟需另行 Start。
func NewSession(userID int64, cfg SessionConfig, deps SessionDeps, rng *rand.Rand) *Session {
	s := &Session{
		userID:      userID,
		cfg:         cfg,
		deps:        deps,
		queue:       NewQueue(rng),
		active:      DeckA,
		state:       model.PlayerStateIdle,
		flowState:   true,
		attribution: NewAttributionTracker(cfg.PlayCountThreshold, deps.Tracks),
		enhancer:    NewEnhancer(userID, deps.Playlists, deps.Sink),
		stop:        make(chan struct{}),
	}
	s.decks = map[DeckID]*Deck{
		DeckA: NewDeck(DeckA, deps.Sink, deps.StreamURL),
		DeckB: NewDeck(DeckB, deps.Sink, deps.StreamURL),
	}
	s.attribution.SetOnCounted(s.onPlayCounted)
	return s
}

// ApplySettings 恢复持久化的播放器开关，会话创建后调用
func (s *Session) ApplySettings(settings model.PlayerSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowState = settings.FlowStateEnabled
	if settings.ShuffleEnabled {
		s.queue.EnableShuffle()
	}
	s.enhancer.enabled = settings.EnhancerEnabled
}

// Start 启动会话时钟。间隔不为正时不起时钟，由调用方手动驱动 Tick。
func (s *Session) Start() {
	if s.cfg.TickInterval <= 0 {
		return
	}
	go s.run()
}

// Close 停止会话时钟并取消进行中的淡变
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.cancelFadeLocked()
	close(s.stop)
	logger.Info("播放会话已关闭", logger.Int64("userId", s.userID))
}

func (s *Session) run() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick(s.cfg.TickInterval.Seconds())
		}
	}
}

// Tick 推进会话时钟一步。导出以便测试手动驱动。
// 每步的分发顺序固定：归因 → 淡变触发 → 进度事件 → 自然结束。
func (s *Session) Tick(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.PlayerStatePlaying {
		return
	}

	activeDeck := s.decks[s.active]
	ended := activeDeck.Advance(seconds)
	if s.crossfading {
		s.decks[s.active.Other()].Advance(seconds)
	}

	if track := activeDeck.Track(); track != nil {
		s.attribution.Observe(*track, activeDeck.Position())
	}

	s.maybeStartFadeLocked()

	s.emitPositionLocked()

	if ended && !s.crossfading {
		s.playIndexLocked(s.queue.NextIndex())
	}
}

// ========== 内部状态操作（均要求已持锁） ==========

// playIndexLocked 在出声卡座上播放队列指定下标的曲目。
// 手动换曲的统一入口：取消淡变、防御性复位另一卡座、音量还原、
// 归因重新武装、重应用音效。
func (s *Session) playIndexLocked(index int) {
	track, ok := s.queue.TrackAt(index)
	if !ok {
		return
	}

	s.cancelFadeLocked()

	inactive := s.decks[s.active.Other()]
	if inactive.Playing() {
		inactive.Reset()
	}

	s.queue.CommitIndex(index)

	active := s.decks[s.active]
	active.Load(track)
	active.SetVolume(1)
	active.Play()
	s.state = model.PlayerStatePlaying

	s.attribution.Rearm()
	s.enhancer.Apply(s.active, track)

	logger.Info("开始播放",
		logger.Int64("userId", s.userID),
		logger.String("trackId", track.ID),
		logger.String("name", track.Name),
		logger.Int("index", index))

	s.emitStateLocked()
}

// stopToIdleLocked 队列清空后回到空闲态
func (s *Session) stopToIdleLocked() {
	s.cancelFadeLocked()
	s.decks[DeckA].Unload()
	s.decks[DeckB].Unload()
	s.state = model.PlayerStateIdle
	s.emitStateLocked()
}

// onPlayCounted 播放计数落库后同步队列里的内存副本
func (s *Session) onPlayCounted(track model.Track) {
	track.PlayCount++
	now := time.Now()
	track.LastPlayed = &now
	s.queue.UpdateTrackMeta(track)
	for _, d := range s.decks {
		if d.Track() != nil && d.Track().ID == track.ID {
			t := track
			d.track = &t
		}
	}
}

func (s *Session) persistSettingsLocked() {
	settings := model.PlayerSettings{
		FlowStateEnabled: s.flowState,
		ShuffleEnabled:   s.queue.Shuffled(),
		EnhancerEnabled:  s.enhancer.Enabled(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.deps.Settings.SetSettings(ctx, s.userID, settings); err != nil {
			logger.Warn("播放器设置持久化失败",
				logger.Int64("userId", s.userID),
				logger.ErrorField(err))
		}
	}()
}

// ========== 事件 ==========

func (s *Session) snapshotLocked() *model.PlayerSnapshot {
	snap := &model.PlayerSnapshot{
		State:        s.state,
		ActiveDeck:   string(s.active),
		CurrentIndex: s.queue.CurrentIndex(),
		QueueLength:  s.queue.Len(),
		Shuffle:      s.queue.Shuffled(),
		FlowState:    s.flowState,
		Enhancer:     s.enhancer.Enabled(),
		Crossfading:  s.crossfading,
		Decks: []model.DeckSnapshot{
			s.decks[DeckA].Snapshot(),
			s.decks[DeckB].Snapshot(),
		},
	}
	if track, ok := s.queue.Current(); ok {
		t := track
		snap.CurrentTrack = &t
	}
	return snap
}

func (s *Session) emitStateLocked() {
	if s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Publish(s.userID, PlayerEvent{
		Kind:     EventState,
		Snapshot: s.snapshotLocked(),
	})
}

func (s *Session) emitPositionLocked() {
	if s.deps.Notifier == nil {
		return
	}
	active := s.decks[s.active]
	s.deps.Notifier.Publish(s.userID, PlayerEvent{
		Kind:     EventPosition,
		Deck:     s.active,
		Position: active.Position(),
		Duration: active.Duration(),
	})
}

func (s *Session) emitNotifyLocked(message string) {
	if s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Publish(s.userID, PlayerEvent{
		Kind:    EventNotify,
		Message: message,
	})
}
