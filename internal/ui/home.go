package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/zsprackett/audioid-web/internal/events"
)

// Home is the main screen: the event list on the left, details of the
// selected event on the right.
type Home struct {
	*tview.Flex
	table   *tview.Table
	preview *tview.TextView
	header  *tview.TextView
	footer  *tview.TextView

	url       string
	events    []events.Event
	connected bool
	follow    bool
	selected  int

	onLabels func()
	onQuit   func()
}

func NewHome(url string) *Home {
	h := &Home{url: url, follow: true}

	h.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	h.header.SetBackgroundColor(ColorBackgroundPanel)

	h.table = tview.NewTable().
		SetSelectable(true, false).
		SetSelectedStyle(tcell.StyleDefault.
			Background(ColorSelected).
			Foreground(ColorSelectedText))
	h.table.SetBackgroundColor(ColorBackground)

	h.preview = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	h.preview.SetBackgroundColor(ColorBackground)

	h.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	h.footer.SetBackgroundColor(ColorBackgroundPanel)
	h.footer.SetText(
		"[green]↑↓[-] navigate  [green]f[-] follow newest  [green]l[-] labels  [green]?[-] help  [green]q[-] quit")

	separator := tview.NewBox().SetBackgroundColor(ColorBorder)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(h.table, 0, 60, true).
		AddItem(separator, 1, 0, false).
		AddItem(h.preview, 0, 40, false)

	h.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(h.header, 1, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(h.footer, 1, 0, false)

	h.table.SetSelectionChangedFunc(func(row, col int) {
		h.selected = row
		h.updatePreview()
	})
	h.setupInput()
	h.updateHeader()
	return h
}

func (h *Home) SetCallbacks(onLabels, onQuit func()) {
	h.onLabels = onLabels
	h.onQuit = onQuit
}

// Update redraws the list. Rows are shown newest first.
func (h *Home) Update(list []events.Event, connected bool) {
	h.events = list
	h.connected = connected
	h.renderTable()
	h.updateHeader()
	h.updatePreview()
}

func (h *Home) SetConnected(connected bool) {
	h.connected = connected
	h.updateHeader()
}

// Refresh re-renders relative timestamps without new data.
func (h *Home) Refresh() {
	h.renderTable()
	h.updatePreview()
}

func (h *Home) renderTable() {
	h.table.Clear()
	n := len(h.events)
	for row := 0; row < n; row++ {
		e := h.events[n-1-row]
		icon, color := RowIcon(row == 0, e.Malformed())
		text := fmt.Sprintf(" %s %-10s %-16s %8s  %s",
			icon, truncate(e.Type, 10), truncate(e.Label, 16),
			formatSeconds(e.Duration), formatAge(e.Created))
		h.table.SetCell(row, 0, tview.NewTableCell(text).
			SetTextColor(color).
			SetBackgroundColor(ColorBackground).
			SetExpansion(1))
	}

	if h.follow || h.selected >= n {
		h.selected = 0
	}
	if n > 0 {
		h.table.Select(h.selected, 0)
	}
}

func (h *Home) updateHeader() {
	icon, state := ConnIcon(h.connected)
	h.header.SetText(fmt.Sprintf(
		"[blue]AUDIOID[-]   %s %s  %d events   [gray]%s[-]",
		icon, state, len(h.events), h.url))
}

func (h *Home) updatePreview() {
	n := len(h.events)
	if h.selected < 0 || h.selected >= n {
		h.preview.Clear()
		return
	}
	e := h.events[n-1-h.selected]
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-]\n\n", orDash(e.Label))
	fmt.Fprintf(&b, " type      %s\n", orDash(e.Type))
	fmt.Fprintf(&b, " time      %s\n", formatSeconds(e.Time))
	fmt.Fprintf(&b, " duration  %s\n", formatSeconds(e.Duration))
	fmt.Fprintf(&b, " started   %s\n", formatStamp(e.Created))
	fmt.Fprintf(&b, " updated   %s\n", formatStamp(e.Updated))
	if e.Malformed() {
		b.WriteString("\n [red]analyzer sent unparseable numbers[-]\n")
	}
	h.preview.SetText(b.String())
}

func (h *Home) setupInput() {
	h.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyDown, tcell.KeyPgUp, tcell.KeyPgDn:
			h.follow = false
			return event
		}
		switch event.Rune() {
		case 'k', 'j':
			h.follow = false
			return event
		case 'f':
			h.follow = true
			h.renderTable()
			h.updatePreview()
			return nil
		case 'l':
			if h.onLabels != nil {
				h.onLabels()
			}
			return nil
		case 'q':
			if h.onQuit != nil {
				h.onQuit()
			}
			return nil
		}
		return event
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-2] + ".."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatSeconds(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return humanize.FtoaWithDigits(v, 2) + "s"
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Format("15:04:05.000"), humanize.Time(t))
}
