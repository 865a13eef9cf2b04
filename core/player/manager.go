package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sonata/cache"
	"sonata/logger"
	"sonata/model"
	"sonata/repository"
)

// Manager 播放会话管理器：每个用户一个常驻会话，按需创建，
// 创建时恢复持久化的开关与上次的队列快照。
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	cfg          SessionConfig
	trackRepo    repository.TrackRepository
	playlistRepo repository.PlaylistRepository
	playerCache  *cache.PlayerCache
	notifier     Notifier
	sinkFor      func(userID int64) CommandSink
	streamURL    func(userID int64, track model.Track) string
}

// NewManager 创建会话管理器。sinkFor 按用户返回卡座指令通道
// （WebSocket 中心里的那条连接），streamURL 生成带流令牌的装载地址。
func NewManager(
	cfg SessionConfig,
	trackRepo repository.TrackRepository,
	playlistRepo repository.PlaylistRepository,
	playerCache *cache.PlayerCache,
	notifier Notifier,
	sinkFor func(userID int64) CommandSink,
	streamURL func(userID int64, track model.Track) string,
) *Manager {
	return &Manager{
		sessions:     make(map[int64]*Session),
		cfg:          cfg,
		trackRepo:    trackRepo,
		playlistRepo: playlistRepo,
		playerCache:  playerCache,
		notifier:     notifier,
		sinkFor:      sinkFor,
		streamURL:    streamURL,
	}
}

// Session 获取用户会话，不存在时创建并恢复上次状态
func (m *Manager) Session(userID int64) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s
	}

	deps := SessionDeps{
		Sink:      m.sinkFor(userID),
		Notifier:  m.notifier,
		Tracks:    m.trackRepo,
		Playlists: m.playlistRepo,
		Settings:  m.playerCache,
	}
	if m.streamURL != nil {
		deps.StreamURL = func(t model.Track) string { return m.streamURL(userID, t) }
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := NewSession(userID, m.cfg, deps, rng)
	m.sessions[userID] = s
	m.mu.Unlock()

	m.restoreSession(s, userID)
	s.Start()
	logger.Info("播放会话已创建", logger.Int64("userId", userID))
	return s
}

// Peek 返回已存在的会话，不创建
func (m *Manager) Peek(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// restoreSession 恢复持久化的开关与队列快照
func (m *Manager) restoreSession(s *Session, userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	settings, err := m.playerCache.GetSettings(ctx, userID)
	if err != nil {
		logger.Warn("读取播放器设置失败，使用默认值",
			logger.Int64("userId", userID),
			logger.ErrorField(err))
		settings = model.DefaultPlayerSettings()
	}
	s.ApplySettings(settings)

	snapshot, err := m.playerCache.LoadQueue(ctx, userID)
	if err != nil {
		logger.Warn("读取队列快照失败", logger.Int64("userId", userID), logger.ErrorField(err))
		return
	}
	if snapshot == nil || len(snapshot.ActiveOrder) == 0 {
		return
	}

	ids := make([]string, 0, len(snapshot.OriginalOrder)+len(snapshot.ActiveOrder))
	seen := make(map[string]bool)
	for _, id := range append(append([]string{}, snapshot.OriginalOrder...), snapshot.ActiveOrder...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	tracks, err := m.trackRepo.GetTracksByIDs(ids)
	if err != nil {
		logger.Warn("恢复队列曲目失败", logger.Int64("userId", userID), logger.ErrorField(err))
		return
	}
	byID := make(map[string]model.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = *t
	}

	resolve := func(order []string) []model.Track {
		out := make([]model.Track, 0, len(order))
		for _, id := range order {
			if t, ok := byID[id]; ok {
				out = append(out, t)
			}
		}
		return out
	}
	original := resolve(snapshot.OriginalOrder)
	active := resolve(snapshot.ActiveOrder)

	currentIndex := shiftIndexForMissing(snapshot.ActiveOrder, snapshot.CurrentIndex, byID)
	s.RestoreQueue(original, active, currentIndex)
	logger.Info("队列快照已恢复",
		logger.Int64("userId", userID),
		logger.Int("tracks", len(active)))
}

// SaveQueue 持久化用户当前队列快照
func (m *Manager) SaveQueue(ctx context.Context, userID int64) error {
	s := m.Peek(userID)
	if s == nil {
		return nil
	}
	original, active, currentIndex := s.QueueSnapshot()
	return m.playerCache.SaveQueue(ctx, userID, &cache.QueueSnapshot{
		OriginalOrder: original,
		ActiveOrder:   active,
		CurrentIndex:  currentIndex,
	})
}

// OnTrackDeleted 曲库删除联动：把曲目从该用户的活动队列移除
func (m *Manager) OnTrackDeleted(userID int64, trackID string) {
	if s := m.Peek(userID); s != nil {
		s.RemoveTrack(trackID)
	}
}

// OnTrackUpdated 曲目元数据修改联动
func (m *Manager) OnTrackUpdated(track model.Track) {
	if s := m.Peek(track.UserID); s != nil {
		s.UpdateTrackMeta(track)
	}
}

// CloseAll 关闭全部会话并保存队列快照，进程退出用
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make(map[int64]*Session, len(m.sessions))
	for id, s := range m.sessions {
		sessions[id] = s
	}
	m.mu.Unlock()

	for userID, s := range sessions {
		if err := m.SaveQueue(ctx, userID); err != nil {
			logger.Warn("保存队列快照失败", logger.Int64("userId", userID), logger.ErrorField(err))
		}
		s.Close()
	}
}

// shiftIndexForMissing 去掉快照里已不存在的曲目后，当前下标相应前移
func shiftIndexForMissing(order []string, currentIndex int, exists map[string]model.Track) int {
	idx := currentIndex
	for i, id := range order {
		if i >= currentIndex {
			break
		}
		if _, ok := exists[id]; !ok {
			idx--
		}
	}
	return idx
}
