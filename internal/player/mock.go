// internal/player/mock.go
package player

import (
	"sync"
	"time"
)

// LoadCall records one Mock.Load invocation.
type LoadCall struct {
	URL string
	Tag uint64
}

// Mock is a test double for Sink. Events only reach the handler through
// Emit, which tests call from their own goroutine.
type Mock struct {
	mu        sync.Mutex
	state     State
	position  time.Duration
	duration  time.Duration
	level     float64
	playErr   error
	handler   func(Event)
	loads     []LoadCall
	playCalls int
	pauses    int
	stops     int
	seeks     []time.Duration
}

// NewMock creates a new mock sink for testing.
func NewMock() *Mock {
	return &Mock{state: Empty, level: 1}
}

func (m *Mock) Load(url string, tag uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, LoadCall{URL: url, Tag: tag})
	m.state = Fetching
	m.position = 0
	m.duration = 0
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
	if m.playErr != nil {
		return m.playErr
	}
	m.state = Playing
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	if m.state == Playing {
		m.state = Ready
	}
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.state = Empty
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, d)
	m.position = d
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = ClampLevel(level)
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Mock) OnEvent(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// Test helpers

// Emit delivers an event to the registered handler.
func (m *Mock) Emit(e Event) {
	m.mu.Lock()
	fn := m.handler
	switch e.Kind {
	case EventMetadata, EventBuffered:
		m.duration = e.Duration
		if e.Kind == EventBuffered {
			m.state = Ready
		}
	case EventTimeUpdate:
		m.position = e.Position
	case EventEnded:
		m.state = Ready
	case EventError:
		m.state = Empty
	}
	m.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

// SetClock sets position and duration without recording a seek.
func (m *Mock) SetClock(pos, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
	m.duration = duration
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Loads() []LoadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoadCall(nil), m.loads...)
}

// LastTag returns the tag of the most recent Load, 0 if none.
func (m *Mock) LastTag() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.loads) == 0 {
		return 0
	}
	return m.loads[len(m.loads)-1].Tag
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}

// Verify Mock implements Sink at compile time.
var _ Sink = (*Mock)(nil)
