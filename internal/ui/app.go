package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"

	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/ui/dialogs"
)

const (
	reconnectDelay = 2 * time.Second
	refreshEvery   = 5 * time.Second
)

// App is the watch viewer: a read-only terminal client of the event socket.
type App struct {
	tapp   *tview.Application
	pages  *tview.Pages
	home   *Home
	feed   *Feed
	url    string
	logger *slog.Logger
}

func NewApp(url string, capacity int, logger *slog.Logger) *App {
	a := &App{
		url:    url,
		feed:   NewFeed(capacity),
		logger: logger,
	}

	a.tapp = tview.NewApplication()
	a.pages = tview.NewPages()
	a.home = NewHome(url)

	a.pages.AddPage("home", a.home, true, true)
	a.tapp.SetRoot(a.pages, true).EnableMouse(false)
	a.tapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == '?' {
			a.showHelp()
			return nil
		}
		return event
	})

	a.home.SetCallbacks(a.showLabels, func() { a.tapp.Stop() })
	return a
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.connectLoop(ctx)
	go a.refreshLoop(ctx)

	return a.tapp.Run()
}

func (a *App) showDialog(name string, widget tview.Primitive, width, height int) {
	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(widget, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(name, modal, true, true)
	a.tapp.SetFocus(widget)
}

func (a *App) closeDialog(name string) {
	a.pages.RemovePage(name)
	a.tapp.SetFocus(a.home.table)
}

func (a *App) showHelp() {
	help := dialogs.HelpDialog(func() {
		a.closeDialog("help")
	})
	a.showDialog("help", help, 60, 18)
}

func (a *App) showLabels() {
	labels := dialogs.LabelsDialog(a.feed.Events(), func() {
		a.closeDialog("labels")
	})
	a.showDialog("labels", labels, 64, 24)
}

// connectLoop keeps one socket open until ctx ends, redialing after drops.
func (a *App) connectLoop(ctx context.Context) {
	for {
		if err := a.stream(ctx); err != nil {
			a.logger.Debug("watch: connection lost", "url", a.url, "err", err)
		}
		a.tapp.QueueUpdateDraw(func() {
			a.home.SetConnected(false)
		})
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (a *App) stream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	a.tapp.QueueUpdateDraw(func() {
		a.home.SetConnected(true)
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			a.logger.Warn("watch: bad message", "err", err)
			continue
		}
		a.tapp.QueueUpdateDraw(func() {
			if err := a.feed.Apply(env); err != nil {
				a.logger.Warn("watch: apply message", "err", err)
				return
			}
			a.home.Update(a.feed.Events(), true)
		})
	}
}

func (a *App) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tapp.QueueUpdateDraw(a.home.Refresh)
		}
	}
}
