package player

import (
	"math/rand"
	"testing"
	"time"

	"sonata/model"
)

func manualConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	// 时钟由测试手动驱动
	cfg.TickInterval = 0
	return cfg
}

func TestPlayTracksStartsPlayback(t *testing.T) {
	s, sink, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b", "c"), 1)

	snap := s.Snapshot()
	if snap.State != model.PlayerStatePlaying {
		t.Fatalf("state = %s, want playing", snap.State)
	}
	if snap.CurrentIndex != 1 {
		t.Errorf("currentIndex = %d, want 1", snap.CurrentIndex)
	}
	if snap.ActiveDeck != "A" {
		t.Errorf("activeDeck = %s, want A", snap.ActiveDeck)
	}
	if sink.countKind(CmdLoad) != 1 || sink.countKind(CmdPlay) != 1 {
		t.Errorf("expected one load and one play command, got %+v", sink.all())
	}
}

func TestToggleTransitions(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a"), 0)

	s.Toggle()
	if got := s.Snapshot().State; got != model.PlayerStatePaused {
		t.Fatalf("after first toggle state = %s, want paused", got)
	}
	s.Toggle()
	if got := s.Snapshot().State; got != model.PlayerStatePlaying {
		t.Fatalf("after second toggle state = %s, want playing", got)
	}
}

func TestToggleEmptyQueueNotifies(t *testing.T) {
	s, _, notifier, _ := newTestSession(manualConfig())
	s.Toggle()

	if got := s.Snapshot().State; got != model.PlayerStateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) == 0 || notifier.events[0].Kind != EventNotify {
		t.Error("expected a notify event for empty queue")
	}
}

func TestNextAdvancesWithWraparound(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b", "c"), 2)

	s.Next()
	snap := s.Snapshot()
	if snap.CurrentIndex != 0 {
		t.Errorf("currentIndex after Next from tail = %d, want 0", snap.CurrentIndex)
	}
	if snap.State != model.PlayerStatePlaying {
		t.Errorf("state = %s, want playing", snap.State)
	}
}

func TestPreviousRestartVsRetreat(t *testing.T) {
	tests := []struct {
		name      string
		position  float64
		wantIndex int
		wantPos   float64
	}{
		{"deep into track restarts current", 5, 1, 0},
		{"near start retreats", 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _ := newTestSession(manualConfig())
			s.PlayTracks(makeTracks("a", "b", "c"), 1)
			s.Tick(tt.position)

			s.Previous()
			snap := s.Snapshot()
			if snap.CurrentIndex != tt.wantIndex {
				t.Errorf("currentIndex = %d, want %d", snap.CurrentIndex, tt.wantIndex)
			}
			for _, d := range snap.Decks {
				if d.Deck == snap.ActiveDeck && d.Position != tt.wantPos {
					t.Errorf("active position = %v, want %v", d.Position, tt.wantPos)
				}
			}
		})
	}
}

func TestPreviousFromHeadWrapsToTail(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b", "c"), 0)

	s.Previous()
	if got := s.Snapshot().CurrentIndex; got != 2 {
		t.Errorf("currentIndex = %d, want 2", got)
	}
}

func TestSeekFraction(t *testing.T) {
	s, sink, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a"), 0) // duration 180

	s.SeekFraction(0.5)
	found := false
	for _, cmd := range sink.all() {
		if cmd.Kind == CmdSeek && cmd.Position == 90 {
			found = true
		}
	}
	if !found {
		t.Error("expected a seek command to 90s")
	}
}

func TestNaturalEndAdvances(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.SetFlowState(false) // 不触发淡变，走自然结束
	s.PlayTracks(makeTracks("a", "b"), 0)

	for i := 0; i < 800; i++ {
		s.Tick(0.25)
	}
	// 180s 曲目在 200s 的时钟推进内必然结束并换曲
	snap := s.Snapshot()
	if snap.CurrentIndex != 1 {
		t.Errorf("currentIndex = %d, want 1 after natural end", snap.CurrentIndex)
	}
	if snap.State != model.PlayerStatePlaying {
		t.Errorf("state = %s, want playing", snap.State)
	}
}

func TestHandleEndedIgnoredDuringFadeAndFromInactiveDeck(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.SetFlowState(false)
	s.PlayTracks(makeTracks("a", "b"), 0)

	s.HandleEnded(DeckB) // 备用卡座的结束事件被忽略
	if got := s.Snapshot().CurrentIndex; got != 0 {
		t.Fatalf("inactive deck ended should be ignored, index = %d", got)
	}

	s.HandleEnded(DeckA)
	if got := s.Snapshot().CurrentIndex; got != 1 {
		t.Errorf("active deck ended should advance, index = %d", got)
	}
}

func TestRemoveCurrentTrackContinuesWithSuccessor(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b", "c"), 1)

	s.RemoveTrack("b")
	snap := s.Snapshot()
	if snap.QueueLength != 2 {
		t.Fatalf("queueLength = %d, want 2", snap.QueueLength)
	}
	if snap.CurrentTrack == nil || snap.CurrentTrack.ID != "c" {
		t.Errorf("current after removal = %v, want c", snap.CurrentTrack)
	}
	if snap.State != model.PlayerStatePlaying {
		t.Errorf("state = %s, want playing", snap.State)
	}
}

func TestRemoveLastTrackGoesIdle(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a"), 0)

	s.RemoveTrack("a")
	snap := s.Snapshot()
	if snap.State != model.PlayerStateIdle {
		t.Errorf("state = %s, want idle", snap.State)
	}
	if snap.QueueLength != 0 || snap.CurrentIndex != -1 {
		t.Errorf("queue not emptied: len=%d index=%d", snap.QueueLength, snap.CurrentIndex)
	}
}

func TestSettingsTogglesPersist(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	settings := s.deps.Settings.(*fakeSettings)

	s.SetShuffle(true)
	s.SetFlowState(false)
	s.SetEnhancer(true)

	if !waitUntil(time.Second, func() bool {
		settings.mu.Lock()
		defer settings.mu.Unlock()
		return len(settings.saved) >= 3
	}) {
		t.Fatal("settings were not persisted")
	}
	// 三次持久化各自在独立协程里落盘，顺序不保证，断言最终组合出现过
	settings.mu.Lock()
	defer settings.mu.Unlock()
	found := false
	for _, saved := range settings.saved {
		if saved.ShuffleEnabled && !saved.FlowStateEnabled && saved.EnhancerEnabled {
			found = true
		}
	}
	if !found {
		t.Errorf("final settings combination never persisted: %+v", settings.saved)
	}
}

func TestRestoreQueueKeepsBothOrders(t *testing.T) {
	s, sink, _, _ := newTestSession(manualConfig())
	s.ApplySettings(model.PlayerSettings{FlowStateEnabled: true, ShuffleEnabled: true})

	// 上次会话洗过牌：实际顺序是 c a b，当前曲目 a
	original := makeTracks("a", "b", "c")
	active := makeTracks("c", "a", "b")
	s.RestoreQueue(original, active, 1)

	snap := s.Snapshot()
	if snap.State != model.PlayerStatePaused {
		t.Fatalf("state after restore = %s, want paused", snap.State)
	}
	if snap.CurrentTrack == nil || snap.CurrentTrack.ID != "a" {
		t.Fatalf("current after restore = %+v, want a", snap.CurrentTrack)
	}
	if sink.countKind(CmdPlay) != 0 {
		t.Error("restore must not auto-start playback")
	}

	// 关闭随机模式必须找回来源顺序，而不是洗过牌的实际顺序
	s.SetShuffle(false)
	originalIDs, activeIDs, idx := s.QueueSnapshot()
	wantOrder := []string{"a", "b", "c"}
	for i, id := range wantOrder {
		if originalIDs[i] != id || activeIDs[i] != id {
			t.Fatalf("orders after disabling shuffle = %v / %v, want %v", originalIDs, activeIDs, wantOrder)
		}
	}
	if idx != 0 {
		t.Errorf("current index after disabling shuffle = %d, want 0 (track a)", idx)
	}
}

func TestRestoreQueueSkipsDeletedTracks(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())

	// 快照里的 b 已从曲库删除，下标相应前移
	original := makeTracks("a", "c")
	active := makeTracks("a", "c")
	s.RestoreQueue(original, active, 1)

	snap := s.Snapshot()
	if snap.QueueLength != 2 {
		t.Fatalf("queue length = %d, want 2", snap.QueueLength)
	}
	if snap.CurrentTrack == nil || snap.CurrentTrack.ID != "c" {
		t.Errorf("current = %+v, want c", snap.CurrentTrack)
	}
}

// 卡座装载地址由注入的生成器决定，音频端点的流令牌从这里带下去
func TestDeckLoadUsesInjectedStreamURL(t *testing.T) {
	sink := &fakeSink{}
	deps := SessionDeps{
		Sink:      sink,
		Notifier:  &fakeNotifier{},
		Tracks:    newFakeTrackStore(),
		Playlists: &fakeFinder{},
		Settings:  &fakeSettings{},
		StreamURL: func(tr model.Track) string {
			return "/api/tracks/" + tr.ID + "/audio?token=signed-" + tr.ID
		},
	}
	s := NewSession(42, manualConfig(), deps, rand.New(rand.NewSource(1)))
	s.PlayTracks(makeTracks("a"), 0)

	var loadURL string
	for _, cmd := range sink.all() {
		if cmd.Kind == CmdLoad {
			loadURL = cmd.URL
		}
	}
	want := "/api/tracks/a/audio?token=signed-a"
	if loadURL != want {
		t.Errorf("load command url = %s, want %s", loadURL, want)
	}
}
