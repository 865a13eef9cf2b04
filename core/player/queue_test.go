package player

import (
	"math/rand"
	"sort"
	"testing"
)

func queueIDs(q *Queue) []string {
	_, active := q.TrackIDs()
	return active
}

func TestQueueWraparound(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		current  int
		wantNext int
		wantPrev int
	}{
		{"middle", []string{"a", "b", "c"}, 1, 2, 0},
		{"tail wraps to head", []string{"a", "b", "c"}, 2, 0, 1},
		{"head wraps to tail", []string{"a", "b", "c"}, 0, 1, 2},
		{"single track loops", []string{"a"}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(rand.New(rand.NewSource(1)))
			q.SetTracks(makeTracks(tt.ids...), tt.current, false)
			if got := q.NextIndex(); got != tt.wantNext {
				t.Errorf("NextIndex() = %d, want %d", got, tt.wantNext)
			}
			if got := q.PrevIndex(); got != tt.wantPrev {
				t.Errorf("PrevIndex() = %d, want %d", got, tt.wantPrev)
			}
		})
	}
}

func TestQueueEmptyOps(t *testing.T) {
	q := NewQueue(rand.New(rand.NewSource(1)))
	if q.NextIndex() != -1 || q.PrevIndex() != -1 {
		t.Error("empty queue indexes should be -1")
	}
	if _, ok := q.Current(); ok {
		t.Error("empty queue should have no current track")
	}
	q.EnableShuffle()
	q.DisableShuffle()
	if removed, _ := q.RemoveTrack("x"); removed {
		t.Error("RemoveTrack on empty queue should remove nothing")
	}
}

func TestQueueShufflePermutation(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	q := NewQueue(rand.New(rand.NewSource(7)))
	q.SetTracks(makeTracks(ids...), 3, false)

	q.EnableShuffle()

	got := queueIDs(q)
	if len(got) != len(ids) {
		t.Fatalf("shuffled length = %d, want %d", len(got), len(ids))
	}
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	want := append([]string(nil), ids...)
	sort.Strings(want)
	for i := range want {
		if sorted[i] != want[i] {
			t.Fatalf("shuffle is not a permutation: got %v", got)
		}
	}

	// 当前曲目身份保持不变
	cur, ok := q.Current()
	if !ok || cur.ID != "d" {
		t.Errorf("current after shuffle = %v, want d", cur.ID)
	}
}

func TestQueueShuffleRestore(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	q := NewQueue(rand.New(rand.NewSource(3)))
	q.SetTracks(makeTracks(ids...), 1, false)

	q.EnableShuffle()
	cur, _ := q.Current()

	q.DisableShuffle()
	got := queueIDs(q)
	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("restored order = %v, want %v", got, ids)
		}
	}
	restored, _ := q.Current()
	if restored.ID != cur.ID {
		t.Errorf("current after restore = %s, want %s", restored.ID, cur.ID)
	}
}

func TestQueueAppendActiveOrderOnly(t *testing.T) {
	q := NewQueue(rand.New(rand.NewSource(5)))
	q.SetTracks(makeTracks("a", "b"), 0, false)
	q.Append(makeTracks("c")[0])

	got := queueIDs(q)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("active order after append = %v, want [a b c]", got)
	}
	original, _ := q.TrackIDs()
	if len(original) != 2 {
		t.Errorf("original order length = %d, want 2 (append is session-only)", len(original))
	}

	// 重新推导 activeOrder 时快速排队的曲目被丢弃
	q.EnableShuffle()
	q.DisableShuffle()
	if got := queueIDs(q); len(got) != 2 {
		t.Errorf("queue length after shuffle toggle = %d, want 2", len(got))
	}
}

func TestQueueAppendToEmptySetsCurrent(t *testing.T) {
	q := NewQueue(rand.New(rand.NewSource(5)))
	q.Append(makeTracks("a")[0])
	if q.CurrentIndex() != 0 {
		t.Errorf("current index after append to empty = %d, want 0", q.CurrentIndex())
	}
	if cur, ok := q.Current(); !ok || cur.ID != "a" {
		t.Errorf("current after append to empty = %v, %v", cur, ok)
	}
}

func TestQueueRemoveTrack(t *testing.T) {
	tests := []struct {
		name            string
		ids             []string
		current         int
		remove          string
		wantIndex       int
		wantLen         int
		wantCurrentGone bool
	}{
		{"before current shifts down", []string{"a", "b", "c"}, 2, "a", 1, 2, false},
		{"after current keeps index", []string{"a", "b", "c"}, 0, "c", 0, 2, false},
		{"current removed, successor takes index", []string{"a", "b", "c"}, 1, "b", 1, 2, true},
		{"current removed at tail wraps to head", []string{"a", "b", "c"}, 2, "c", 0, 2, true},
		{"last track empties queue", []string{"a"}, 0, "a", -1, 0, true},
		{"unknown id is a no-op", []string{"a", "b"}, 1, "z", 1, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(rand.New(rand.NewSource(1)))
			q.SetTracks(makeTracks(tt.ids...), tt.current, false)

			_, currentGone := q.RemoveTrack(tt.remove)
			if currentGone != tt.wantCurrentGone {
				t.Errorf("currentRemoved = %v, want %v", currentGone, tt.wantCurrentGone)
			}
			if q.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", q.Len(), tt.wantLen)
			}
			if q.CurrentIndex() != tt.wantIndex {
				t.Errorf("CurrentIndex() = %d, want %d", q.CurrentIndex(), tt.wantIndex)
			}
		})
	}
}

func TestQueueUpdateTrackMeta(t *testing.T) {
	q := NewQueue(rand.New(rand.NewSource(1)))
	tracks := makeTracks("a", "b")
	q.SetTracks(tracks, 0, false)

	updated := tracks[0]
	updated.Name = "renamed"
	updated.IsFavorite = true
	q.UpdateTrackMeta(updated)

	cur, _ := q.Current()
	if cur.Name != "renamed" || !cur.IsFavorite {
		t.Errorf("queued copy not updated: %+v", cur)
	}
}
