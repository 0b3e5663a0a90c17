// Package nowplaying is the terminal view shown while the player runs.
// It drives the controller only through playback.Service.
package nowplaying

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/playback"
)

const (
	tickInterval = 500 * time.Millisecond
	volumeStep   = 0.05
)

type tickMsg time.Time

// eventMsg carries any subscription event; the view re-reads the snapshot.
type eventMsg struct {
	err *playback.ErrorEvent
}

type closedMsg struct{}

// Model is the now-playing view.
type Model struct {
	svc      playback.Service
	sub      *playback.Subscription
	source   string
	seekStep time.Duration

	keys keyMap
	help help.Model

	session playback.Session
	queue   []playback.Track
	cursor  int
	err     string

	width  int
	height int
}

// New creates the view. source names what is playing, e.g. an album title.
func New(svc playback.Service, source string, seekStep time.Duration) Model {
	if seekStep <= 0 {
		seekStep = 10 * time.Second
	}
	m := Model{
		svc:      svc,
		sub:      svc.Subscribe(),
		source:   source,
		seekStep: seekStep,
		keys:     defaultKeys(),
		help:     help.New(),
	}
	m.refresh()
	m.cursor = max(m.session.QueueIndex, 0)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.watchEvents(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchEvents waits for the next subscription event.
func (m Model) watchEvents() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		select {
		case <-sub.StateChanged:
		case <-sub.TrackChanged:
		case <-sub.QueueChanged:
		case <-sub.ModeChanged:
		case <-sub.VolumeChanged:
		case <-sub.PositionChanged:
		case e := <-sub.Error:
			return eventMsg{err: &e}
		case <-sub.Done:
			return closedMsg{}
		}
		return eventMsg{}
	}
}

func (m *Model) refresh() {
	m.session = m.svc.Snapshot()
	m.queue = m.svc.Queue()
	if m.cursor >= len(m.queue) {
		m.cursor = max(len(m.queue)-1, 0)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case eventMsg:
		if msg.err != nil {
			m.refresh()
			m.err = errmsg.FormatWith(errOp(msg.err.Operation), m.trackLabel(msg.err.TrackID), msg.err.Err)
			return m, m.watchEvents()
		}
		m.refresh()
		return m, m.watchEvents()

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.PlayPause):
		m.err = ""
		m.svc.TogglePlay()
	case key.Matches(msg, m.keys.Next):
		m.err = ""
		m.svc.PlayNext()
	case key.Matches(msg, m.keys.Previous):
		m.err = ""
		m.svc.PlayPrevious()
	case key.Matches(msg, m.keys.SeekFwd):
		m.svc.SeekBy(m.seekStep)
	case key.Matches(msg, m.keys.SeekBack):
		m.svc.SeekBy(-m.seekStep)
	case key.Matches(msg, m.keys.VolumeUp):
		m.svc.SetVolume(min(m.session.Volume+volumeStep, 1))
	case key.Matches(msg, m.keys.VolumeDown):
		m.svc.SetVolume(max(m.session.Volume-volumeStep, 0))
	case key.Matches(msg, m.keys.Shuffle):
		m.svc.ToggleShuffle()
	case key.Matches(msg, m.keys.Repeat):
		m.svc.ToggleRepeat()
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.queue)-1, 0))
		return m, nil
	case key.Matches(msg, m.keys.Jump):
		m.err = ""
		if err := m.svc.JumpTo(m.cursor); err != nil {
			m.err = errmsg.Format(errmsg.OpPlaybackStart, err)
		}
	case key.Matches(msg, m.keys.Remove):
		if err := m.svc.RemoveFromQueue(m.cursor); err != nil {
			m.err = errmsg.Format(errmsg.OpQueueEdit, err)
		}
	case key.Matches(msg, m.keys.Clear):
		m.svc.ClearQueue()
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m Model) trackLabel(id string) string {
	for _, t := range m.queue {
		if t.ID == id {
			return t.Title
		}
	}
	return id
}

func errOp(operation string) errmsg.Op {
	if operation == "resolve" {
		return errmsg.OpStreamResolve
	}
	return errmsg.OpPlaybackStart
}
