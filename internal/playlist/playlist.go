// Package playlist holds the track model and the playing queue with its
// next/previous policy.
package playlist

import (
	"slices"
	"strings"
	"time"
)

// Track is a playable item as the backend describes it.
type Track struct {
	ID       string // backend track ID
	Title    string
	Artists  []string
	Album    string
	AlbumID  string
	CoverRef string // backend cover path, empty if the track has none
	Duration time.Duration
}

// ArtistLine joins the artists for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Playlist is an ordered list of tracks. Out-of-range indexes are
// reported, never panicked on.
type Playlist struct {
	tracks []Track
}

func NewPlaylist() *Playlist {
	return &Playlist{}
}

func (p *Playlist) Add(tracks ...Track) {
	p.tracks = append(p.tracks, tracks...)
}

// Insert places tracks before index. Indexes are clamped, so a large
// index appends.
func (p *Playlist) Insert(index int, tracks ...Track) {
	p.tracks = slices.Insert(p.tracks, max(0, min(index, len(p.tracks))), tracks...)
}

func (p *Playlist) Remove(index int) bool {
	if !p.valid(index) {
		return false
	}
	p.tracks = slices.Delete(p.tracks, index, index+1)
	return true
}

func (p *Playlist) Clear() {
	p.tracks = slices.Delete(p.tracks, 0, len(p.tracks))
}

// Tracks returns a copy, never nil.
func (p *Playlist) Tracks() []Track {
	return append(make([]Track, 0, len(p.tracks)), p.tracks...)
}

// Track returns the track at index, or nil.
func (p *Playlist) Track(index int) *Track {
	if !p.valid(index) {
		return nil
	}
	return &p.tracks[index]
}

// IndexOf returns the first position of id, or -1.
func (p *Playlist) IndexOf(id string) int {
	return slices.IndexFunc(p.tracks, func(t Track) bool { return t.ID == id })
}

func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Move shifts the track at from so it ends up at to.
func (p *Playlist) Move(from, to int) bool {
	if !p.valid(from) || !p.valid(to) {
		return false
	}
	t := p.tracks[from]
	p.tracks = slices.Insert(slices.Delete(p.tracks, from, from+1), to, t)
	return true
}

func (p *Playlist) valid(index int) bool {
	return index >= 0 && index < len(p.tracks)
}
