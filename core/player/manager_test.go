package player

import (
	"testing"

	"sonata/model"
)

func TestShiftIndexForMissing(t *testing.T) {
	exists := map[string]model.Track{
		"a": {ID: "a"},
		"c": {ID: "c"},
		"d": {ID: "d"},
	}
	tests := []struct {
		name         string
		order        []string
		currentIndex int
		want         int
	}{
		{"nothing missing", []string{"a", "c", "d"}, 2, 2},
		{"missing before current", []string{"a", "b", "c", "d"}, 2, 1},
		{"missing is current", []string{"a", "b", "c"}, 1, 1},
		{"missing after current", []string{"a", "c", "b"}, 1, 1},
		{"all before current missing", []string{"b", "e", "a"}, 2, 0},
		{"index zero", []string{"b", "a"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shiftIndexForMissing(tt.order, tt.currentIndex, exists); got != tt.want {
				t.Errorf("shiftIndexForMissing(%v, %d) = %d, want %d", tt.order, tt.currentIndex, got, tt.want)
			}
		})
	}
}
