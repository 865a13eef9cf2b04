package player

import (
	"testing"

	"sonata/model"
)

func TestAttributionCountsOncePastThreshold(t *testing.T) {
	store := newFakeTrackStore()
	tracker := NewAttributionTracker(5, store)
	track := model.Track{ID: "a", Name: "track a"}

	tracker.Observe(track, 4.9)
	if got := store.count("a"); got != 0 {
		t.Fatalf("count below threshold = %d, want 0", got)
	}
	tracker.Observe(track, 5.0)
	if got := store.count("a"); got != 0 {
		t.Fatalf("count at exact threshold = %d, want 0", got)
	}

	tracker.Observe(track, 5.1)
	tracker.Observe(track, 30)
	tracker.Observe(track, 120)
	if got := store.count("a"); got != 1 {
		t.Errorf("count = %d, want exactly 1 per instantiation", got)
	}
}

func TestAttributionRearm(t *testing.T) {
	store := newFakeTrackStore()
	tracker := NewAttributionTracker(5, store)
	track := model.Track{ID: "a"}

	tracker.Observe(track, 10)
	tracker.Rearm()
	tracker.Observe(track, 10)
	if got := store.count("a"); got != 2 {
		t.Errorf("count after rearm = %d, want 2", got)
	}
}

func TestAttributionStoreFailureStillMarksCounted(t *testing.T) {
	store := newFakeTrackStore()
	store.failNext = true
	tracker := NewAttributionTracker(5, store)
	track := model.Track{ID: "a"}

	tracker.Observe(track, 10)
	tracker.Observe(track, 11)
	if got := store.count("a"); got != 0 {
		t.Errorf("count = %d, want 0 (first attempt failed, no retry)", got)
	}
	if !tracker.Counted() {
		t.Error("tracker should stay counted after a failed persist")
	}
}

func TestSessionCountsPlayViaClock(t *testing.T) {
	s, _, _, store := newTestSession(manualConfig())
	s.SetFlowState(false)
	s.PlayTracks(makeTracks("a", "b"), 0)

	for i := 0; i < 30; i++ { // 7.5s 时钟
		s.Tick(0.25)
	}
	if got := store.count("a"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	// 暂停再恢复不重置计数
	s.Toggle()
	s.Toggle()
	for i := 0; i < 30; i++ {
		s.Tick(0.25)
	}
	if got := store.count("a"); got != 1 {
		t.Errorf("count after pause/resume = %d, want still 1", got)
	}

	// 换曲重新武装：回到同一首会再计一次
	s.Next()
	s.Previous()
	for i := 0; i < 30; i++ {
		s.Tick(0.25)
	}
	if got := store.count("a"); got != 2 {
		t.Errorf("count after reload = %d, want 2", got)
	}
}

func TestFadeHandoverRearmsAttribution(t *testing.T) {
	s, _, _, store := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b"), 0)
	advanceToRemaining(s, 5)
	s.Tick(0.25)
	if !s.Snapshot().Crossfading {
		t.Fatal("fade not running")
	}

	// 手动推完淡变
	s.mu.Lock()
	close(s.fadeStop)
	s.fadeStop = make(chan struct{})
	gen := s.fadeGen
	s.mu.Unlock()
	steps := int(s.cfg.CrossfadeWindow * 1000 / 100)
	for k := 1; k <= steps; k++ {
		s.fadeStep(gen, k, steps)
	}

	for i := 0; i < 30; i++ {
		s.Tick(0.25)
	}
	if got := store.count("b"); got != 1 {
		t.Errorf("count for b after handover = %d, want 1", got)
	}
	s.Close()
}
