// Package icons holds the glyphs used by the terminal view.
package icons

// Style represents the icon style to use.
type Style string

const (
	StyleNerd    Style = "nerd"
	StyleUnicode Style = "unicode"
	StyleNone    Style = "none"
)

// Icons holds the icon characters for the current style.
type Icons struct {
	Play      string
	Pause     string
	Loading   string
	Shuffle   string
	RepeatAll string
	RepeatOne string
	Volume    string
	Mute      string
}

var (
	nerdIcons = Icons{
		Play:      "󰐊", // nf-md-play
		Pause:     "󰏤", // nf-md-pause
		Loading:   "󰔟", // nf-md-timer_sand
		Shuffle:   "󰒟", // nf-md-shuffle
		RepeatAll: "󰑖", // nf-md-repeat
		RepeatOne: "󰑘", // nf-md-repeat_once
		Volume:    "󰕾", // nf-md-volume_high
		Mute:      "󰝟", // nf-md-volume_mute
	}

	unicodeIcons = Icons{
		Play:      "▶",
		Pause:     "⏸",
		Loading:   "⏳",
		Shuffle:   "🔀",
		RepeatAll: "🔁",
		RepeatOne: "🔂",
		Volume:    "🔊",
		Mute:      "🔇",
	}

	noneIcons = Icons{
		Play:      ">",
		Pause:     "||",
		Loading:   "...",
		Shuffle:   "[S]",
		RepeatAll: "[R]",
		RepeatOne: "[1]",
		Volume:    "vol",
		Mute:      "mute",
	}

	// current holds the active icon set
	current = unicodeIcons
)

// Init selects the icon set. Unknown styles fall back to plain text.
func Init(style string) {
	switch Style(style) {
	case StyleNerd:
		current = nerdIcons
	case StyleUnicode:
		current = unicodeIcons
	case StyleNone:
		current = noneIcons
	default:
		current = noneIcons
	}
}

func Play() string      { return current.Play }
func Pause() string     { return current.Pause }
func Loading() string   { return current.Loading }
func Shuffle() string   { return current.Shuffle }
func RepeatAll() string { return current.RepeatAll }
func RepeatOne() string { return current.RepeatOne }

// Volume returns the speaker glyph, or the muted one at level 0.
func Volume(level float64) string {
	if level <= 0 {
		return current.Mute
	}
	return current.Volume
}
