package player

import (
	"encoding/json"
	"strings"
	"testing"
)

// 音量 0、进度 0、增益 0 都必须落到线上，客户端没有默认值可以回退。
func TestDeckCommandZeroValuesOnWire(t *testing.T) {
	tests := []struct {
		name string
		cmd  DeckCommand
		want []string
	}{
		{
			"volume zero at fade start",
			DeckCommand{Deck: DeckB, Kind: CmdVolume, Volume: 0},
			[]string{`"volume":0`},
		},
		{
			"seek back to head",
			DeckCommand{Deck: DeckA, Kind: CmdSeek, Position: 0},
			[]string{`"position":0`},
		},
		{
			"eq gains zeroed on disable",
			DeckCommand{Deck: DeckA, Kind: CmdEQ, Smoothing: 0.1},
			[]string{`"bass":0`, `"mid":0`, `"treble":0`, `"smoothing":0.1`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cmd)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			for _, frag := range tt.want {
				if !strings.Contains(string(data), frag) {
					t.Errorf("serialized command %s missing %s", data, frag)
				}
			}
		})
	}
}

func TestDeckCommandEmptyStringsOmitted(t *testing.T) {
	data, err := json.Marshal(DeckCommand{Deck: DeckA, Kind: CmdPause})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "trackId") || strings.Contains(string(data), "url") {
		t.Errorf("pause command carries empty string fields: %s", data)
	}
}
