//nolint:goconst // test file with repeated string literals
package playlist

import (
	"testing"
	"time"
)

func ids(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(got []Track, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestNewPlaylist(t *testing.T) {
	p := NewPlaylist()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if p.Tracks() == nil {
		t.Error("Tracks() should return empty slice, not nil")
	}
}

func TestPlaylist_Add(t *testing.T) {
	p := NewPlaylist()

	p.Add(Track{ID: "a"}, Track{ID: "b"})

	if !equalIDs(p.Tracks(), "a", "b") {
		t.Errorf("Tracks() = %v, want [a b]", ids(p.Tracks()))
	}
}

func TestPlaylist_Insert(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{"head", 0, []string{"x", "a", "b", "c"}},
		{"middle", 2, []string{"a", "b", "x", "c"}},
		{"end", 3, []string{"a", "b", "c", "x"}},
		{"past end appends", 10, []string{"a", "b", "c", "x"}},
		{"negative clamps to head", -4, []string{"x", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlaylist()
			p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "c"})

			p.Insert(tt.index, Track{ID: "x"})

			if !equalIDs(p.Tracks(), tt.want...) {
				t.Errorf("Tracks() = %v, want %v", ids(p.Tracks()), tt.want)
			}
		})
	}
}

func TestPlaylist_Remove(t *testing.T) {
	p := NewPlaylist()
	p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "c"})

	if !p.Remove(1) {
		t.Error("Remove should return true")
	}
	if !equalIDs(p.Tracks(), "a", "c") {
		t.Errorf("Tracks() = %v, want [a c]", ids(p.Tracks()))
	}
	if p.Remove(5) || p.Remove(-1) {
		t.Error("Remove out of bounds should return false")
	}
}

func TestPlaylist_IndexOf(t *testing.T) {
	p := NewPlaylist()
	p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "a"})

	if got := p.IndexOf("a"); got != 0 {
		t.Errorf("IndexOf(a) = %d, want 0", got)
	}
	if got := p.IndexOf("b"); got != 1 {
		t.Errorf("IndexOf(b) = %d, want 1", got)
	}
	if got := p.IndexOf("z"); got != -1 {
		t.Errorf("IndexOf(z) = %d, want -1", got)
	}
}

func TestPlaylist_Tracks_ReturnsCopy(t *testing.T) {
	p := NewPlaylist()
	p.Add(Track{ID: "a"})

	tracks := p.Tracks()
	tracks[0].ID = "modified"

	if p.Track(0).ID != "a" {
		t.Error("Tracks() should return a copy")
	}
}

func TestPlaylist_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"b", "c", "a"}},
		{"backward", 2, 0, []string{"c", "a", "b"}},
		{"same", 1, 1, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlaylist()
			p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "c"})

			if !p.Move(tt.from, tt.to) {
				t.Fatal("Move should return true")
			}
			if !equalIDs(p.Tracks(), tt.want...) {
				t.Errorf("Tracks() = %v, want %v", ids(p.Tracks()), tt.want)
			}
		})
	}
}

func TestPlaylist_Move_InvalidIndex(t *testing.T) {
	p := NewPlaylist()
	p.Add(Track{ID: "a"}, Track{ID: "b"})

	if p.Move(-1, 0) || p.Move(0, 2) {
		t.Error("Move out of bounds should return false")
	}
}

func TestTrack_ArtistLine(t *testing.T) {
	tr := Track{Title: "Song", Artists: []string{"A", "B"}, Duration: time.Minute}

	if got := tr.ArtistLine(); got != "A, B" {
		t.Errorf("ArtistLine() = %q, want %q", got, "A, B")
	}
	if got := (Track{}).ArtistLine(); got != "" {
		t.Errorf("ArtistLine() = %q, want empty", got)
	}
}

func TestRepeatMode_Next(t *testing.T) {
	m := RepeatOff
	want := []RepeatMode{RepeatAll, RepeatOne, RepeatOff}
	for _, w := range want {
		m = m.Next()
		if m != w {
			t.Errorf("Next() = %v, want %v", m, w)
		}
	}
}
