package player

import (
	"sonata/logger"
	"sonata/model"
)

// 传输控制：对外的播放操作入口，全部经由会话锁串行化。

// PlayTracks 重建队列并从 startIndex 开始播放
func (s *Session) PlayTracks(tracks []model.Track, startIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tracks) == 0 {
		s.emitNotifyLocked("没有可播放的曲目")
		return
	}

	s.queue.SetTracks(tracks, startIndex, s.queue.Shuffled())
	s.playIndexLocked(s.queue.CurrentIndex())
}

// PlayAt 跳到队列指定下标播放
func (s *Session) PlayAt(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue.TrackAt(index); !ok {
		return
	}
	s.playIndexLocked(index)
}

// Append 快速排队：追加到队列尾部，不打断当前播放
func (s *Session) Append(track model.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Append(track)
	s.emitNotifyLocked("已加入播放队列: " + track.Name)
	s.emitStateLocked()
}

// Toggle 播放/暂停切换。空闲且队列非空时从当前下标开播。
func (s *Session) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.PlayerStatePlaying:
		s.decks[s.active].Pause()
		s.state = model.PlayerStatePaused
		s.emitStateLocked()
	case model.PlayerStatePaused:
		s.decks[s.active].Play()
		s.state = model.PlayerStatePlaying
		s.emitStateLocked()
	default:
		if s.queue.IsEmpty() {
			s.emitNotifyLocked("播放队列为空")
			return
		}
		s.playIndexLocked(s.queue.CurrentIndex())
	}
}

// Next 手动下一曲。进行中的淡变会被取消，回到单卡座状态后换曲。
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return
	}
	s.playIndexLocked(s.queue.NextIndex())
}

// Previous 上一曲。当前位置越过门限时改为重播当前曲，
// 否则回退一位（头部回绕到末尾）。
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return
	}

	active := s.decks[s.active]
	if active.Loaded() && active.Position() > s.cfg.PreviousRestart {
		active.SeekTo(0)
		s.emitStateLocked()
		return
	}
	s.playIndexLocked(s.queue.PrevIndex())
}

// SeekFraction 按比例跳转出声卡座
func (s *Session) SeekFraction(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decks[s.active].SeekFraction(fraction)
	s.emitPositionLocked()
}

// SetShuffle 切换随机播放并持久化
func (s *Session) SetShuffle(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled {
		s.queue.EnableShuffle()
		s.emitNotifyLocked("随机播放已开启")
	} else {
		s.queue.DisableShuffle()
		s.emitNotifyLocked("随机播放已关闭")
	}
	s.persistSettingsLocked()
	s.emitStateLocked()
}

// SetFlowState 切换心流模式（无缝淡变衔接）并持久化
func (s *Session) SetFlowState(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flowState = enabled
	if enabled {
		s.emitNotifyLocked("心流模式已开启")
	} else {
		s.emitNotifyLocked("心流模式已关闭")
	}
	s.persistSettingsLocked()
	s.emitStateLocked()
}

// SetEnhancer 切换音效增强并持久化
func (s *Session) SetEnhancer(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var track *model.Track
	if t, ok := s.queue.Current(); ok {
		track = &t
	}
	s.enhancer.SetEnabled(enabled, s.active, track)
	if enabled {
		s.emitNotifyLocked("音效增强已开启")
	} else {
		s.emitNotifyLocked("音效增强已关闭")
	}
	s.persistSettingsLocked()
	s.emitStateLocked()
}

// FlowState 心流模式是否开启
func (s *Session) FlowState() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flowState
}

// RemoveTrack 从队列移除曲目的所有出现（曲库删除联动）。
// 移除当前曲目时取消淡变，按删除后顶上来的下标继续，
// 队列清空则回到空闲态。
func (s *Session) RemoveTrack(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, currentRemoved := s.queue.RemoveTrack(trackID)
	if !removed {
		return
	}
	if s.crossfading {
		s.cancelFadeLocked()
	}

	if s.queue.IsEmpty() {
		s.stopToIdleLocked()
		return
	}

	if currentRemoved {
		if s.state == model.PlayerStatePlaying {
			s.playIndexLocked(s.queue.CurrentIndex())
			return
		}
		// 暂停或空闲时只预装不开播
		if track, ok := s.queue.Current(); ok {
			active := s.decks[s.active]
			active.Load(track)
			active.SetVolume(1)
		}
	}
	s.emitStateLocked()
}

// UpdateTrackMeta 曲目改名、收藏等元数据修改同步进会话
func (s *Session) UpdateTrackMeta(track model.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.UpdateTrackMeta(track)
	for _, d := range s.decks {
		if d.Track() != nil && d.Track().ID == track.ID {
			t := track
			d.track = &t
		}
	}
	s.emitStateLocked()
}

// ReportPosition 客户端位置上报，校准卡座进度
func (s *Session) ReportPosition(deck DeckID, position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decks[deck]
	if !ok {
		return
	}
	d.ReportPosition(position)
}

// HandleEnded 客户端上报曲目自然结束。淡变期间的结束事件被
// 忽略（交棒由淡变收尾完成），备用卡座的结束事件同样忽略。
func (s *Session) HandleEnded(deck DeckID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crossfading || deck != s.active {
		return
	}
	if s.state != model.PlayerStatePlaying {
		return
	}
	if s.queue.IsEmpty() {
		s.stopToIdleLocked()
		return
	}
	s.playIndexLocked(s.queue.NextIndex())
}

// HandleLoadError 客户端上报曲目加载失败。默认只提示用户，
// 自动跳曲策略开启时跳到下一曲。
func (s *Session) HandleLoadError(deck DeckID, trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Warn("曲目加载失败",
		logger.Int64("userId", s.userID),
		logger.String("deck", string(deck)),
		logger.String("trackId", trackID))
	s.emitNotifyLocked("曲目加载失败")

	if s.cfg.AutoSkipOnLoadError && deck == s.active && !s.queue.IsEmpty() {
		s.playIndexLocked(s.queue.NextIndex())
	}
}

// Snapshot 返回完整状态快照
func (s *Session) Snapshot() *model.PlayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// QueueSnapshot 返回队列持久化所需的曲目ID顺序
func (s *Session) QueueSnapshot() (original, active []string, currentIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	original, active = s.queue.TrackIDs()
	return original, active, s.queue.CurrentIndex()
}

// RestoreQueue 恢复上次会话的队列（不自动开播），两个顺序各自原样回填
func (s *Session) RestoreQueue(original, active []model.Track, currentIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Restore(original, active, currentIndex)
	if track, ok := s.queue.Current(); ok {
		active := s.decks[s.active]
		active.Load(track)
		active.SetVolume(1)
	}
	s.state = model.PlayerStatePaused
	if s.queue.IsEmpty() {
		s.state = model.PlayerStateIdle
	}
	s.emitStateLocked()
}
