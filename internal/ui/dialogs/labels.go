package dialogs

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/zsprackett/audioid-web/internal/events"
)

const sparkChars = "▁▂▃▄▅▆▇█"

// LabelStat summarizes one label across the feed.
type LabelStat struct {
	Label    string
	Count    int
	Duration float64
}

// SummarizeLabels groups events by label, busiest first.
func SummarizeLabels(list []events.Event) []LabelStat {
	idx := map[string]int{}
	var stats []LabelStat
	for _, e := range list {
		i, ok := idx[e.Label]
		if !ok {
			i = len(stats)
			idx[e.Label] = i
			stats = append(stats, LabelStat{Label: e.Label})
		}
		stats[i].Count++
		if !math.IsNaN(e.Duration) {
			stats[i].Duration += e.Duration
		}
	}
	slices.SortStableFunc(stats, func(a, b LabelStat) int {
		return cmp.Compare(b.Duration, a.Duration)
	})
	return stats
}

// LabelsDialog shows how the recent window splits across labels.
func LabelsDialog(list []events.Event, onClose func()) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetBorder(true).SetTitle(" Labels ").SetTitleAlign(tview.AlignLeft)
	tv.SetDynamicColors(true)
	tv.SetBackgroundColor(tcell.ColorDefault)
	tv.SetText(buildLabelText(list))
	tv.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' || event.Rune() == 'l' {
			onClose()
			return nil
		}
		return event
	})
	return tv
}

func buildLabelText(list []events.Event) string {
	var sb strings.Builder
	stats := SummarizeLabels(list)
	if len(stats) == 0 {
		sb.WriteString("\n  [yellow]No events yet.[-]\n")
		sb.WriteString("\n  [dim]Press Q or Esc to close.[-]")
		return sb.String()
	}

	var total float64
	for _, s := range stats {
		total += s.Duration
	}

	sb.WriteString("\n")
	for _, s := range stats {
		frac := 0.0
		if total > 0 {
			frac = s.Duration / total
		}
		label := s.Label
		if label == "" {
			label = "(none)"
		}
		sb.WriteString(fmt.Sprintf("  %-14s %s %3d  %.1fs\n", label, progressBar(frac, 20), s.Count, s.Duration))
	}

	if len(list) > 1 {
		sb.WriteString("\n  [yellow]Durations (newest right)[-]\n")
		sb.WriteString(fmt.Sprintf("  %s\n", sparkline(list)))
	}
	sb.WriteString("\n  [green]Q/Esc[-] close")
	return sb.String()
}

// progressBar renders a text bar for a share in [0,1].
func progressBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	return fmt.Sprintf("[green]%s[gray]%s[-]", strings.Repeat("█", filled), strings.Repeat("░", width-filled))
}

// sparkline scales each event's duration against the longest one. list is
// oldest first.
func sparkline(list []events.Event) string {
	var peak float64
	for _, e := range list {
		if !math.IsNaN(e.Duration) {
			peak = max(peak, e.Duration)
		}
	}
	runes := []rune(sparkChars)
	var sb strings.Builder
	for _, e := range list {
		v := 0.0
		if peak > 0 && !math.IsNaN(e.Duration) {
			v = e.Duration / peak
		}
		sb.WriteRune(runes[int(v*float64(len(runes)-1))])
	}
	return sb.String()
}
