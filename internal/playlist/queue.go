package playlist

import (
	"math/rand/v2"
	"time"
)

// DefaultRestartThreshold is how far into a track "previous" restarts it
// instead of stepping back.
const DefaultRestartThreshold = 3 * time.Second

// PlayingQueue wraps a Playlist with playback position and navigation policy.
type PlayingQueue struct {
	playlist         *Playlist
	currentIndex     int // -1 if nothing playing
	rng              *rand.Rand
	restartThreshold time.Duration
}

// QueueOption configures a PlayingQueue.
type QueueOption func(*PlayingQueue)

// WithRand sets the random source used by shuffle.
func WithRand(r *rand.Rand) QueueOption {
	return func(q *PlayingQueue) {
		if r != nil {
			q.rng = r
		}
	}
}

// WithRestartThreshold sets the elapsed time after which PreviousIndex
// restarts the current track.
func WithRestartThreshold(d time.Duration) QueueOption {
	return func(q *PlayingQueue) {
		if d > 0 {
			q.restartThreshold = d
		}
	}
}

// NewQueue creates a new empty playing queue.
func NewQueue(opts ...QueueOption) *PlayingQueue {
	q := &PlayingQueue{
		playlist:         NewPlaylist(),
		currentIndex:     -1,
		rng:              rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // shuffle order
		restartThreshold: DefaultRestartThreshold,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Current returns the currently playing track, or nil if none.
func (q *PlayingQueue) Current() *Track {
	if q.currentIndex < 0 || q.currentIndex >= q.playlist.Len() {
		return nil
	}
	return q.playlist.Track(q.currentIndex)
}

// CurrentIndex returns the index of the currently playing track (-1 if none).
func (q *PlayingQueue) CurrentIndex() int {
	return q.currentIndex
}

// SetQueue replaces the sequence and points the index at currentID.
// Falls back to 0 when the ID is absent, -1 when tracks is empty.
func (q *PlayingQueue) SetQueue(tracks []Track, currentID string) {
	q.playlist.Clear()
	q.playlist.Add(tracks...)
	switch {
	case len(tracks) == 0:
		q.currentIndex = -1
	case q.playlist.IndexOf(currentID) >= 0:
		q.currentIndex = q.playlist.IndexOf(currentID)
	default:
		q.currentIndex = 0
	}
}

// Locate points the index at the first track with the given ID.
// The index becomes -1 when the track is not queued.
func (q *PlayingQueue) Locate(id string) int {
	q.currentIndex = q.playlist.IndexOf(id)
	return q.currentIndex
}

// NextIndex picks the index that follows from.
//
// Shuffle draws uniformly among every other index. Otherwise it steps
// forward, wrapping only with RepeatAll. The bool is false when playback
// should stop.
func (q *PlayingQueue) NextIndex(from int, shuffle bool, repeat RepeatMode) (int, bool) {
	n := q.playlist.Len()
	if n == 0 {
		return -1, false
	}

	if shuffle {
		valid := from >= 0 && from < n
		if n == 1 {
			return 0, true
		}
		if !valid {
			return q.rng.IntN(n), true
		}
		r := q.rng.IntN(n - 1)
		if r >= from {
			r++
		}
		return r, true
	}

	if from+1 < n {
		return from + 1, true
	}
	if repeat == RepeatAll {
		return 0, true
	}
	return -1, false
}

// PreviousIndex picks the index for a "previous" request.
// Returning from itself means restart the current track.
func (q *PlayingQueue) PreviousIndex(from int, elapsed time.Duration, repeat RepeatMode) int {
	switch {
	case elapsed > q.restartThreshold:
		return from
	case from > 0:
		return from - 1
	case repeat == RepeatAll && q.playlist.Len() > 0:
		return q.playlist.Len() - 1
	default:
		return from
	}
}

// Detach clears the index, keeping the tracks.
func (q *PlayingQueue) Detach() {
	q.currentIndex = -1
}

// JumpTo sets the current index to the specified position.
// Returns the track at that position, or nil if invalid.
func (q *PlayingQueue) JumpTo(index int) *Track {
	if index < 0 || index >= q.playlist.Len() {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// Add appends tracks to the queue without changing playback.
func (q *PlayingQueue) Add(tracks ...Track) {
	q.playlist.Add(tracks...)
}

// InsertAfterCurrent queues track to play right after current.
// When current is not in the sequence (or the index is unset) the queue
// gains current followed by track at its head.
func (q *PlayingQueue) InsertAfterCurrent(track, current Track) {
	if c := q.Current(); c != nil && c.ID == current.ID {
		q.playlist.Insert(q.currentIndex+1, track)
		return
	}
	if i := q.playlist.IndexOf(current.ID); i >= 0 {
		q.currentIndex = i
		q.playlist.Insert(i+1, track)
		return
	}
	q.playlist.Insert(0, current, track)
	q.currentIndex = 0
}

// RemoveAt removes the track at the given index.
// Adjusts currentIndex if necessary.
func (q *PlayingQueue) RemoveAt(index int) bool {
	if !q.playlist.Remove(index) {
		return false
	}

	if q.currentIndex > index {
		q.currentIndex--
	} else if q.currentIndex == index {
		// Removed the current track: the slot now points at what followed it.
		if q.currentIndex >= q.playlist.Len() {
			q.currentIndex = q.playlist.Len() - 1
		}
	}

	return true
}

// Move moves a track, keeping the index on the same track.
func (q *PlayingQueue) Move(fromIndex, toIndex int) bool {
	if !q.playlist.Move(fromIndex, toIndex) {
		return false
	}
	switch {
	case q.currentIndex == fromIndex:
		q.currentIndex = toIndex
	case fromIndex < q.currentIndex && toIndex >= q.currentIndex:
		q.currentIndex--
	case fromIndex > q.currentIndex && toIndex <= q.currentIndex:
		q.currentIndex++
	}
	return true
}

// Clear removes all tracks and resets playback.
func (q *PlayingQueue) Clear() {
	q.playlist.Clear()
	q.currentIndex = -1
}

// Tracks returns all tracks in the queue.
func (q *PlayingQueue) Tracks() []Track {
	return q.playlist.Tracks()
}

// Track returns the track at index, or nil.
func (q *PlayingQueue) Track(index int) *Track {
	return q.playlist.Track(index)
}

// Len returns the number of tracks in the queue.
func (q *PlayingQueue) Len() int {
	return q.playlist.Len()
}

// IsEmpty returns true if the queue has no tracks.
func (q *PlayingQueue) IsEmpty() bool {
	return q.playlist.Len() == 0
}
