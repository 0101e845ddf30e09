package ui

import "github.com/gdamore/tcell/v2"

// Theme colors for the TUI.
var (
	ColorBackground      = tcell.NewHexColor(0x1e1e2e)
	ColorBackgroundPanel = tcell.NewHexColor(0x181825)
	ColorBackgroundElem  = tcell.NewHexColor(0x313244)
	ColorPrimary         = tcell.NewHexColor(0x89b4fa) // blue
	ColorAccent          = tcell.NewHexColor(0xcba6f7) // mauve
	ColorText            = tcell.NewHexColor(0xcdd6f4)
	ColorTextMuted       = tcell.NewHexColor(0x6c7086)
	ColorSuccess         = tcell.NewHexColor(0xa6e3a1) // green
	ColorWarning         = tcell.NewHexColor(0xf9e2af) // yellow
	ColorError           = tcell.NewHexColor(0xf38ba8) // red
	ColorBorder          = tcell.NewHexColor(0x45475a)
	ColorSelected        = tcell.NewHexColor(0x89b4fa)
	ColorSelectedText    = tcell.NewHexColor(0x1e1e2e)
)

// Row icons
const (
	IconLive      = "●"
	IconEnded     = "○"
	IconMalformed = "✗"
)

// RowIcon picks the icon for a feed row. The newest row is the only one
// that can still grow.
func RowIcon(newest, malformed bool) (string, tcell.Color) {
	switch {
	case malformed:
		return IconMalformed, ColorError
	case newest:
		return IconLive, ColorWarning
	default:
		return IconEnded, ColorTextMuted
	}
}

// ConnIcon renders the connection state shown in the header.
func ConnIcon(connected bool) (string, string) {
	if connected {
		return "[green]●[-]", "connected"
	}
	return "[red]◻[-]", "disconnected"
}
