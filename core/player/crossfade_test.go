package player

import (
	"testing"
	"time"

	"sonata/model"
)

// 把出声卡座推进到距结尾 remaining 秒处
func advanceToRemaining(s *Session, remaining float64) {
	s.mu.Lock()
	active := s.decks[s.active]
	active.position = active.duration - remaining
	s.mu.Unlock()
}

func TestFadeTriggersInsideWindow(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b"), 0)

	advanceToRemaining(s, 7)
	s.Tick(0.25) // 剩 6.75s，窗口外
	if s.Snapshot().Crossfading {
		t.Fatal("fade started outside the window")
	}

	s.Tick(1) // 剩 5.75s，进入窗口
	snap := s.Snapshot()
	if !snap.Crossfading {
		t.Fatal("fade did not start inside the window")
	}

	// 备用卡座以音量 0 起播下一曲
	for _, d := range snap.Decks {
		if d.Deck != snap.ActiveDeck {
			if d.TrackID != "b" || !d.Playing || d.Volume != 0 {
				t.Errorf("incoming deck = %+v, want track b playing at volume 0", d)
			}
		}
	}
	s.Close()
}

func TestFadeTriggerIsIdempotent(t *testing.T) {
	s, sink, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b"), 0)

	advanceToRemaining(s, 5)
	s.Tick(0.25)
	loads := sink.countKind(CmdLoad)

	// 窗口内的后续时钟步不再二次装载
	s.Tick(0.25)
	s.Tick(0.25)
	if got := sink.countKind(CmdLoad); got != loads {
		t.Errorf("loads = %d after extra ticks, want %d", got, loads)
	}
	s.Close()
}

func TestFadeDisabledWithoutFlowState(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.SetFlowState(false)
	s.PlayTracks(makeTracks("a", "b"), 0)

	advanceToRemaining(s, 2)
	s.Tick(0.25)
	if s.Snapshot().Crossfading {
		t.Error("fade must not start with flow state disabled")
	}
}

func TestFadeStepVolumesLinearAndConserved(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b"), 0)
	advanceToRemaining(s, 5)
	s.Tick(0.25)
	if !s.Snapshot().Crossfading {
		t.Fatal("fade not running")
	}

	// 停掉定时器协程，手动推台阶保证确定性
	s.mu.Lock()
	close(s.fadeStop)
	s.fadeStop = make(chan struct{})
	gen := s.fadeGen
	s.mu.Unlock()

	steps := int(s.cfg.CrossfadeWindow * 1000 / 100)
	prevOut, prevIn := 1.0, 0.0
	for k := 1; k < steps; k++ {
		s.fadeStep(gen, k, steps)
		snap := s.Snapshot()
		var out, in float64
		for _, d := range snap.Decks {
			if d.Deck == snap.ActiveDeck {
				out = d.Volume
			} else {
				in = d.Volume
			}
		}
		if out > prevOut || in < prevIn {
			t.Fatalf("step %d: volumes not monotonic (out %v→%v, in %v→%v)", k, prevOut, out, prevIn, in)
		}
		if sum := out + in; sum < 0.999 || sum > 1.001 {
			t.Fatalf("step %d: volume sum = %v, want 1", k, sum)
		}
		prevOut, prevIn = out, in
	}

	// 末步收尾：卡座交接、下标提交、淡出卡座归零待命
	s.fadeStep(gen, steps, steps)
	snap := s.Snapshot()
	if snap.Crossfading {
		t.Fatal("fade still marked running after final step")
	}
	if snap.ActiveDeck != "B" {
		t.Errorf("activeDeck = %s, want B", snap.ActiveDeck)
	}
	if snap.CurrentIndex != 1 {
		t.Errorf("currentIndex = %d, want 1", snap.CurrentIndex)
	}
	for _, d := range snap.Decks {
		if d.Deck == "A" {
			if d.Playing || d.Position != 0 || d.Volume != 1 {
				t.Errorf("outgoing deck after handover = %+v, want stopped at 0 with volume 1", d)
			}
		}
	}
	s.Close()
}

func TestManualSkipCancelsFade(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b", "c"), 0)
	advanceToRemaining(s, 5)
	s.Tick(0.25)
	if !s.Snapshot().Crossfading {
		t.Fatal("fade not running")
	}

	s.Next()
	snap := s.Snapshot()
	if snap.Crossfading {
		t.Fatal("manual skip must cancel the fade")
	}
	if snap.CurrentIndex != 1 {
		t.Errorf("currentIndex = %d, want 1", snap.CurrentIndex)
	}
	// 单卡座干净状态：出声卡座满音量播放，备用卡座停止
	for _, d := range snap.Decks {
		if d.Deck == snap.ActiveDeck {
			if !d.Playing || d.Volume != 1 {
				t.Errorf("active deck = %+v, want playing at volume 1", d)
			}
		} else if d.Playing {
			t.Errorf("inactive deck still playing after cancel: %+v", d)
		}
	}
	s.Close()
}

func TestDeleteCurrentDuringFadeForcesCleanState(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a", "b", "c"), 0)
	advanceToRemaining(s, 5)
	s.Tick(0.25)
	if !s.Snapshot().Crossfading {
		t.Fatal("fade not running")
	}

	s.RemoveTrack("a")
	snap := s.Snapshot()
	if snap.Crossfading {
		t.Fatal("deletion must cancel the fade")
	}
	if snap.CurrentTrack == nil || snap.CurrentTrack.ID != "b" {
		t.Errorf("current = %v, want b", snap.CurrentTrack)
	}
	if snap.State != model.PlayerStatePlaying {
		t.Errorf("state = %s, want playing", snap.State)
	}
	s.Close()
}

func TestSingleTrackQueueFadesToItself(t *testing.T) {
	s, _, _, _ := newTestSession(manualConfig())
	s.PlayTracks(makeTracks("a"), 0)
	advanceToRemaining(s, 5)
	s.Tick(0.25)

	snap := s.Snapshot()
	if !snap.Crossfading {
		t.Fatal("single-track queue should fade to itself")
	}
	for _, d := range snap.Decks {
		if d.Deck != snap.ActiveDeck && d.TrackID != "a" {
			t.Errorf("incoming deck track = %s, want a", d.TrackID)
		}
	}
	s.Close()
}

// 端到端：真实定时器跑完一个短窗口淡变
func TestFadeRunsToCompletion(t *testing.T) {
	cfg := manualConfig()
	cfg.CrossfadeWindow = 0.3
	s, _, _, _ := newTestSession(cfg)
	s.PlayTracks(makeTracks("a", "b"), 0)
	advanceToRemaining(s, 0.2)
	s.Tick(0.05)

	if !s.Snapshot().Crossfading {
		t.Fatal("fade not running")
	}
	if !waitUntil(3*time.Second, func() bool {
		snap := s.Snapshot()
		return !snap.Crossfading && snap.ActiveDeck == "B"
	}) {
		t.Fatal("fade never completed")
	}
	if got := s.Snapshot().CurrentIndex; got != 1 {
		t.Errorf("currentIndex = %d, want 1", got)
	}
	s.Close()
}
