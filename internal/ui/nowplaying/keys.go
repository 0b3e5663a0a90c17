package nowplaying

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PlayPause  key.Binding
	Next       key.Binding
	Previous   key.Binding
	SeekFwd    key.Binding
	SeekBack   key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Shuffle    key.Binding
	Repeat     key.Binding
	Up         key.Binding
	Down       key.Binding
	Jump       key.Binding
	Remove     key.Binding
	Clear      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		PlayPause:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Next:       key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next")),
		Previous:   key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "previous")),
		SeekFwd:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "seek +")),
		SeekBack:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "seek -")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		Shuffle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Jump:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		Remove:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove")),
		Clear:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear queue")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Next, k.Previous, k.SeekFwd, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Next, k.Previous, k.SeekFwd, k.SeekBack},
		{k.VolumeUp, k.VolumeDown, k.Shuffle, k.Repeat},
		{k.Up, k.Down, k.Jump, k.Remove, k.Clear},
		{k.Help, k.Quit},
	}
}
