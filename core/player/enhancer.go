package player

import (
	"strings"

	"sonata/logger"
	"sonata/model"
)

// SonicProfile 音效档案，三段均衡增益（dB）
type SonicProfile struct {
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
}

// 各流派的均衡档案
var sonicProfiles = map[string]SonicProfile{
	model.GenreRock:       {Bass: 3, Mid: 0, Treble: 2},
	model.GenrePop:        {Bass: 2, Mid: -1, Treble: 1},
	model.GenreElectronic: {Bass: 4, Mid: 0, Treble: 3},
	model.GenreHipHop:     {Bass: 5, Mid: -1, Treble: 1},
	model.GenreClassical:  {Bass: 1, Mid: 2, Treble: 2},
	model.GenreJazz:       {Bass: 2, Mid: 1, Treble: 1},
	model.GenreMetal:      {Bass: 2, Mid: 2, Treble: 4},
}

// defaultProfile 未识别流派的兜底档案
var defaultProfile = SonicProfile{Bass: 2, Mid: 0, Treble: 2}

// eqSmoothing 增益过渡的时间常数（秒），避免爆音
const eqSmoothing = 0.1

// ResolveProfile 按流派名解析音效档案。精确匹配失败时做模糊
// 匹配（"hop" 归入嘻哈，"rock" 归入摇滚），再不中用默认档案。
func ResolveProfile(genre string) SonicProfile {
	g := strings.ToLower(strings.TrimSpace(genre))
	if p, ok := sonicProfiles[g]; ok {
		return p
	}
	if strings.Contains(g, "hop") {
		return sonicProfiles[model.GenreHipHop]
	}
	if strings.Contains(g, "rock") {
		return sonicProfiles[model.GenreRock]
	}
	return defaultProfile
}

// Enhancer 音效增强器。开启时按当前曲目所属歌单的流派选择
// 均衡档案，通过卡座指令下发给出声卡座。
type Enhancer struct {
	enabled bool
	userID  int64
	finder  PlaylistFinder
	sink    CommandSink
}

// NewEnhancer 创建音效增强器
func NewEnhancer(userID int64, finder PlaylistFinder, sink CommandSink) *Enhancer {
	return &Enhancer{
		userID: userID,
		finder: finder,
		sink:   sink,
	}
}

// Enabled 是否开启
func (e *Enhancer) Enabled() bool {
	return e.enabled
}

// SetEnabled 切换开关。关闭时立即把出声卡座的增益归零。
func (e *Enhancer) SetEnabled(enabled bool, activeDeck DeckID, track *model.Track) {
	e.enabled = enabled
	if !enabled {
		e.sink.Send(DeckCommand{Deck: activeDeck, Kind: CmdEQ, Smoothing: eqSmoothing})
		return
	}
	if track != nil {
		e.Apply(activeDeck, *track)
	}
}

// Apply 为卡座应用当前曲目的音效档案。流派来自第一个包含该
// 曲目的歌单；查不到或未开启时是无操作。
func (e *Enhancer) Apply(deck DeckID, track model.Track) {
	if !e.enabled {
		return
	}

	genre := ""
	playlist, err := e.finder.FindPlaylistContaining(e.userID, track.ID)
	if err != nil {
		logger.Warn("查询曲目所属歌单失败，使用默认音效档案",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
	} else if playlist != nil {
		genre = playlist.Genre
	}

	profile := ResolveProfile(genre)
	e.sink.Send(DeckCommand{
		Deck:      deck,
		Kind:      CmdEQ,
		Bass:      profile.Bass,
		Mid:       profile.Mid,
		Treble:    profile.Treble,
		Smoothing: eqSmoothing,
	})
	logger.Debug("应用音效档案",
		logger.String("deck", string(deck)),
		logger.String("genre", genre),
		logger.Float64("bass", profile.Bass),
		logger.Float64("treble", profile.Treble))
}
