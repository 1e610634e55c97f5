// Package app runs the terminal monitor of a session.
package app

import (
	"time"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/atomic"

	"github.com/darkhz/bleconnmgr/config"
	"github.com/darkhz/bleconnmgr/scenario"
	"github.com/darkhz/bleconnmgr/session"
	"github.com/darkhz/bleconnmgr/ui/app/views"
)

// redrawDelay is how long queued updates are collected before the screen
// is redrawn.
const redrawDelay = 50 * time.Millisecond

// Application is the terminal monitor. It implements [views.AppBinder].
type Application struct {
	*tview.Application

	views   *views.Views
	session *session.Session

	pending chan struct{}
	stopped chan struct{}
	suspend atomic.Bool
}

// NewApplication returns a new monitor.
func NewApplication() *Application {
	return &Application{views: views.NewViews()}
}

// Start shows the session, replaying the scenario if one is provided.
// It returns once the monitor is closed, or the session stops.
func (a *Application) Start(sess *session.Session, cfg *config.Config, sc *scenario.Scenario) error {
	a.Application = tview.NewApplication()
	a.session = sess
	a.pending = make(chan struct{}, 1)
	a.stopped = make(chan struct{})
	defer close(a.stopped)

	data, err := a.views.Initialize(a, cfg)
	if err != nil {
		return err
	}

	a.SetInputCapture(data.InputCapture)
	a.SetMouseCapture(data.MouseFunc)
	a.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		if a.suspend.CompareAndSwap(true, false) {
			suspendScreen(screen)
		}

		return data.BeforeDrawFunc(screen)
	})

	go a.redrawPending()
	go a.stopWithSession()

	a.views.Replay(sc)

	return a.SetRoot(data.Layout, true).
		SetFocus(data.InitialFocus).
		EnableMouse(true).
		Run()
}

// Session returns the monitored session.
func (a *Application) Session() *session.Session {
	return a.session
}

// InstantDraw runs drawFunc on the drawing routine and redraws at once.
func (a *Application) InstantDraw(drawFunc func()) {
	a.QueueUpdateDraw(drawFunc)
}

// QueueDraw runs drawFunc on the drawing routine. Redraws of queued
// updates are batched.
func (a *Application) QueueDraw(drawFunc func()) {
	a.QueueUpdate(drawFunc)

	select {
	case a.pending <- struct{}{}:
	default:
	}
}

// FocusPrimitive focuses the primitive.
func (a *Application) FocusPrimitive(primitive tview.Primitive) {
	a.SetFocus(primitive)
}

// GetFocused returns the focused primitive.
func (a *Application) GetFocused() tview.Primitive {
	return a.GetFocus()
}

// Suspend suspends the monitor before the next redraw.
func (a *Application) Suspend() {
	a.suspend.Store(true)
	go a.Draw()
}

// Close closes the monitor.
func (a *Application) Close() {
	a.Stop()
}

func (a *Application) stopWithSession() {
	select {
	case <-a.session.Done():
		a.Stop()

	case <-a.stopped:
	}
}

func (a *Application) redrawPending() {
	for {
		select {
		case <-a.stopped:
			return

		case <-a.pending:
		}

		select {
		case <-a.stopped:
			return

		case <-time.After(redrawDelay):
			a.Draw()
		}
	}
}
