package player

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"sonata/model"
)

var errStoreDown = errors.New("store down")

// fakeSink 记录下发的卡座指令，供断言用
type fakeSink struct {
	mu       sync.Mutex
	commands []DeckCommand
}

func (f *fakeSink) Send(cmd DeckCommand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeSink) all() []DeckCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DeckCommand, len(f.commands))
	copy(out, f.commands)
	return out
}

func (f *fakeSink) countKind(kind CommandKind) int {
	n := 0
	for _, c := range f.all() {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// fakeNotifier 记录广播的播放器事件
type fakeNotifier struct {
	mu     sync.Mutex
	events []PlayerEvent
}

func (f *fakeNotifier) Publish(userID int64, event PlayerEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

// fakeTrackStore 统计每首曲目的播放计数次数
type fakeTrackStore struct {
	mu         sync.Mutex
	increments map[string]int
	failNext   bool
}

func newFakeTrackStore() *fakeTrackStore {
	return &fakeTrackStore{increments: make(map[string]int)}
}

func (f *fakeTrackStore) IncrementPlayCount(trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errStoreDown
	}
	f.increments[trackID]++
	return nil
}

func (f *fakeTrackStore) count(trackID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.increments[trackID]
}

// fakeFinder 固定返回某个歌单
type fakeFinder struct {
	playlist *model.Playlist
}

func (f *fakeFinder) FindPlaylistContaining(userID int64, trackID string) (*model.Playlist, error) {
	return f.playlist, nil
}

// fakeSettings 记录落盘的设置
type fakeSettings struct {
	mu    sync.Mutex
	saved []model.PlayerSettings
}

func (f *fakeSettings) SetSettings(ctx context.Context, userID int64, settings model.PlayerSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, settings)
	return nil
}

func makeTracks(ids ...string) []model.Track {
	tracks := make([]model.Track, len(ids))
	for i, id := range ids {
		tracks[i] = model.Track{ID: id, Name: "track " + id, Duration: 180}
	}
	return tracks
}

func newTestSession(cfg SessionConfig) (*Session, *fakeSink, *fakeNotifier, *fakeTrackStore) {
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	store := newFakeTrackStore()
	deps := SessionDeps{
		Sink:      sink,
		Notifier:  notifier,
		Tracks:    store,
		Playlists: &fakeFinder{},
		Settings:  &fakeSettings{},
	}
	s := NewSession(42, cfg, deps, rand.New(rand.NewSource(1)))
	return s, sink, notifier, store
}

// waitUntil 轮询直到条件满足或超时
func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
