package player

import (
	"time"

	"sonata/logger"
	"sonata/model"
)

// 淡变步进间隔，窗口被切成 window/fadeStepInterval 个线性音量台阶
const fadeStepInterval = 100 * time.Millisecond

// maybeStartFadeLocked 检查是否进入淡变窗口并启动淡变。
// 触发条件：正在播放、心流模式开启、没有进行中的淡变、
// 出声卡座剩余时长 ≤ 窗口。触发是幂等的，窗口内的后续时钟步
// 不会再次启动。
func (s *Session) maybeStartFadeLocked() {
	if s.crossfading || !s.flowState || s.state != model.PlayerStatePlaying {
		return
	}
	if s.cfg.CrossfadeWindow <= 0 {
		return
	}

	active := s.decks[s.active]
	if !active.Loaded() || active.Duration() <= 0 {
		return
	}
	if active.Duration()-active.Position() > s.cfg.CrossfadeWindow {
		return
	}

	next := s.queue.NextIndex()
	if next < 0 {
		return
	}
	s.beginFadeLocked(next)
}

// beginFadeLocked 启动淡变：下一曲装入备用卡座，音量 0 起播，
// 然后由 100ms 定时器逐步交换两个卡座的音量。
func (s *Session) beginFadeLocked(targetIndex int) {
	track, ok := s.queue.TrackAt(targetIndex)
	if !ok {
		return
	}

	incoming := s.decks[s.active.Other()]
	incoming.Load(track)
	incoming.SetVolume(0)
	incoming.Play()

	s.crossfading = true
	s.fadeTarget = targetIndex
	s.fadeGen++
	s.fadeStop = make(chan struct{})

	steps := int(s.cfg.CrossfadeWindow * 1000 / 100)
	if steps < 1 {
		steps = 1
	}

	logger.Info("开始交叉淡变",
		logger.Int64("userId", s.userID),
		logger.String("nextTrackId", track.ID),
		logger.String("nextName", track.Name),
		logger.Int("steps", steps))

	go s.runFade(s.fadeGen, steps, s.fadeStop)
}

// runFade 淡变定时器协程，每 100ms 一个音量台阶
func (s *Session) runFade(gen, steps int, stop <-chan struct{}) {
	ticker := time.NewTicker(fadeStepInterval)
	defer ticker.Stop()

	for k := 1; ; k++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.fadeStep(gen, k, steps) {
				return
			}
		}
	}
}

// fadeStep 应用第 k/steps 个音量台阶。代次不匹配说明淡变已被
// 取消或被新淡变取代，直接退出。
func (s *Session) fadeStep(gen, k, steps int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.crossfading || gen != s.fadeGen {
		return false
	}

	ratio := float64(k) / float64(steps)
	outgoing := s.decks[s.active]
	incoming := s.decks[s.active.Other()]
	outgoing.SetVolume(1 - ratio)
	incoming.SetVolume(ratio)

	if k >= steps {
		s.finishFadeLocked()
		return false
	}
	return true
}

// finishFadeLocked 淡变收尾：淡出卡座停止归零、音量还原待命，
// 备用卡座转正，队列下标提交，归因重新武装，音效重应用。
func (s *Session) finishFadeLocked() {
	outgoing := s.decks[s.active]
	outgoing.Reset()
	outgoing.SetVolume(1)

	s.active = s.active.Other()
	s.crossfading = false
	s.fadeStop = nil
	s.queue.CommitIndex(s.fadeTarget)
	s.attribution.Rearm()

	if track, ok := s.queue.Current(); ok {
		s.enhancer.Apply(s.active, track)
		logger.Info("淡变完成，卡座交接",
			logger.Int64("userId", s.userID),
			logger.String("activeDeck", string(s.active)),
			logger.String("trackId", track.ID))
	}

	s.emitStateLocked()
}

// cancelFadeLocked 取消进行中的淡变，恢复单卡座干净状态。
// 手动换曲、删除当前曲目、会话关闭时调用。没有淡变时是无操作。
func (s *Session) cancelFadeLocked() {
	if !s.crossfading {
		return
	}

	close(s.fadeStop)
	s.fadeStop = nil
	s.fadeGen++
	s.crossfading = false

	incoming := s.decks[s.active.Other()]
	incoming.Reset()
	incoming.SetVolume(1)
	s.decks[s.active].SetVolume(1)

	logger.Debug("淡变已取消", logger.Int64("userId", s.userID))
}
