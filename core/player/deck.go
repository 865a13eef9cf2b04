package player

import (
	"sonata/logger"
	"sonata/model"
)

// Deck 单个播放卡座。进程内常驻两个实例（A、B），装载不同曲目
// 交替出声实现交叉淡入淡出。所有动作镜像为 DeckCommand 发给
// 客户端的音频元素；位置由会话时钟推进，客户端上报时再校准。
// 非并发安全，由 Session 的锁保护。
type Deck struct {
	id        DeckID
	sink      CommandSink
	streamURL func(model.Track) string
	track     *model.Track
	position  float64
	duration  float64
	volume    float64
	playing   bool
}

// NewDeck 创建卡座，初始音量 1。streamURL 为空时直接用曲目自带地址
func NewDeck(id DeckID, sink CommandSink, streamURL func(model.Track) string) *Deck {
	if streamURL == nil {
		streamURL = func(t model.Track) string { return t.StreamURL() }
	}
	return &Deck{
		id:        id,
		sink:      sink,
		streamURL: streamURL,
		volume:    1,
	}
}

// ID 卡座标识
func (d *Deck) ID() DeckID { return d.id }

// Track 当前装载的曲目
func (d *Deck) Track() *model.Track { return d.track }

// Position 当前播放位置（秒）
func (d *Deck) Position() float64 { return d.position }

// Duration 当前曲目时长（秒）
func (d *Deck) Duration() float64 { return d.duration }

// Volume 当前音量
func (d *Deck) Volume() float64 { return d.volume }

// Playing 是否在播放
func (d *Deck) Playing() bool { return d.playing }

// Loaded 是否装载了曲目
func (d *Deck) Loaded() bool { return d.track != nil }

// Load 装载曲目，位置归零，不自动开播
func (d *Deck) Load(track model.Track) {
	t := track
	d.track = &t
	d.position = 0
	d.duration = track.Duration
	d.playing = false
	d.sink.Send(DeckCommand{
		Deck:    d.id,
		Kind:    CmdLoad,
		TrackID: track.ID,
		URL:     d.streamURL(track),
	})
	logger.Debug("卡座装载曲目",
		logger.String("deck", string(d.id)),
		logger.String("trackId", track.ID),
		logger.String("name", track.Name))
}

// Play 开始播放。未装载曲目时是无操作——宿主拒绝播放属于
// 可恢复状况，只记日志不向上抛错。
func (d *Deck) Play() {
	if d.track == nil {
		logger.Warn("卡座未装载曲目，忽略播放", logger.String("deck", string(d.id)))
		return
	}
	d.playing = true
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdPlay})
}

// Pause 暂停播放
func (d *Deck) Pause() {
	d.playing = false
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdPause})
}

// SetVolume 设置音量，收敛到 [0,1]
func (d *Deck) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	d.volume = v
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdVolume, Volume: v})
}

// SeekTo 跳到绝对位置（秒）
func (d *Deck) SeekTo(seconds float64) {
	if d.track == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if d.duration > 0 && seconds > d.duration {
		seconds = d.duration
	}
	d.position = seconds
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdSeek, Position: seconds})
}

// SeekFraction 按比例 [0,1] 跳转；时长未知时是无操作
func (d *Deck) SeekFraction(fraction float64) {
	if d.duration <= 0 {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	d.SeekTo(fraction * d.duration)
}

// Reset 停止并归零，淡出收尾和防御性复位用
func (d *Deck) Reset() {
	d.playing = false
	d.position = 0
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdPause})
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdSeek, Position: 0})
}

// Unload 卸载曲目并停止，队列清空后回到空闲态用
func (d *Deck) Unload() {
	d.playing = false
	d.track = nil
	d.position = 0
	d.duration = 0
	d.sink.Send(DeckCommand{Deck: d.id, Kind: CmdPause})
}

// Advance 时钟推进位置，返回是否到达曲目末尾
func (d *Deck) Advance(seconds float64) (ended bool) {
	if !d.playing || d.track == nil {
		return false
	}
	d.position += seconds
	if d.duration > 0 && d.position >= d.duration {
		d.position = d.duration
		return true
	}
	return false
}

// ReportPosition 客户端位置上报校准
func (d *Deck) ReportPosition(position float64) {
	if d.track == nil {
		return
	}
	if position < 0 {
		return
	}
	d.position = position
}

// Snapshot 卡座状态快照
func (d *Deck) Snapshot() model.DeckSnapshot {
	snap := model.DeckSnapshot{
		Deck:     string(d.id),
		Position: d.position,
		Duration: d.duration,
		Volume:   d.volume,
		Playing:  d.playing,
	}
	if d.track != nil {
		snap.TrackID = d.track.ID
	}
	return snap
}
