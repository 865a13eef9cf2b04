package player

import (
	"testing"

	"sonata/model"
)

func TestResolveProfile(t *testing.T) {
	tests := []struct {
		name  string
		genre string
		want  SonicProfile
	}{
		{"exact rock", "rock", SonicProfile{Bass: 3, Mid: 0, Treble: 2}},
		{"exact metal", "metal", SonicProfile{Bass: 2, Mid: 2, Treble: 4}},
		{"exact classical", "classical", SonicProfile{Bass: 1, Mid: 2, Treble: 2}},
		{"case and spacing normalized", "  Electronic ", SonicProfile{Bass: 4, Mid: 0, Treble: 3}},
		{"fuzzy hip-hop", "trip hop", SonicProfile{Bass: 5, Mid: -1, Treble: 1}},
		{"fuzzy rock", "post-rock", SonicProfile{Bass: 3, Mid: 0, Treble: 2}},
		{"unknown falls back to default", "polka", SonicProfile{Bass: 2, Mid: 0, Treble: 2}},
		{"empty falls back to default", "", SonicProfile{Bass: 2, Mid: 0, Treble: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveProfile(tt.genre); got != tt.want {
				t.Errorf("ResolveProfile(%q) = %+v, want %+v", tt.genre, got, tt.want)
			}
		})
	}
}

func TestEnhancerAppliesPlaylistGenre(t *testing.T) {
	sink := &fakeSink{}
	finder := &fakeFinder{playlist: &model.Playlist{Genre: model.GenreJazz}}
	e := NewEnhancer(1, finder, sink)
	e.SetEnabled(true, DeckA, nil)

	e.Apply(DeckA, model.Track{ID: "a"})

	cmds := sink.all()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Kind != CmdEQ || cmd.Deck != DeckA {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if cmd.Bass != 2 || cmd.Mid != 1 || cmd.Treble != 1 {
		t.Errorf("gains = %v/%v/%v, want jazz 2/1/1", cmd.Bass, cmd.Mid, cmd.Treble)
	}
	if cmd.Smoothing != 0.1 {
		t.Errorf("smoothing = %v, want 0.1", cmd.Smoothing)
	}
}

func TestEnhancerDisabledIsNoop(t *testing.T) {
	sink := &fakeSink{}
	e := NewEnhancer(1, &fakeFinder{}, sink)

	e.Apply(DeckA, model.Track{ID: "a"})
	if len(sink.all()) != 0 {
		t.Error("disabled enhancer must not send commands")
	}
}

func TestEnhancerDisableResetsGains(t *testing.T) {
	sink := &fakeSink{}
	e := NewEnhancer(1, &fakeFinder{playlist: &model.Playlist{Genre: model.GenreRock}}, sink)
	track := model.Track{ID: "a"}
	e.SetEnabled(true, DeckA, &track)

	e.SetEnabled(false, DeckA, &track)
	cmds := sink.all()
	last := cmds[len(cmds)-1]
	if last.Kind != CmdEQ || last.Bass != 0 || last.Mid != 0 || last.Treble != 0 {
		t.Errorf("disable should zero gains, got %+v", last)
	}
}
