package views

import (
	"bytes"
	"context"
	"strconv"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/bleconnmgr/config"
	"github.com/darkhz/bleconnmgr/scenario"
	"github.com/darkhz/bleconnmgr/session"
	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

// AppData holds all the necessary layout and event handling data for the root application to initialize.
// This is passed to the application once all the views are initialized using [Views.Initialize].
type AppData struct {
	// layout holds the layout of the application.
	Layout         *tview.Flex
	InitialFocus   *tview.Flex
	MouseFunc      func(event *tcell.EventMouse, action tview.MouseAction) (*tcell.EventMouse, tview.MouseAction)
	BeforeDrawFunc func(t tcell.Screen) bool
	InputCapture   func(event *tcell.EventKey) *tcell.EventKey
}

// AppBinder binds all the root application's functions to the views manager ([Views]).
type AppBinder interface {
	Session() *session.Session

	QueueDraw(drawFunc func())
	InstantDraw(drawFunc func())
	FocusPrimitive(primitive tview.Primitive)

	Suspend()
	GetFocused() tview.Primitive
	Close()
}

// viewInitializer represents an initializer for a view.
// All views must implement this interface.
type viewInitializer interface {
	Initialize() error
	SetRootView(v *Views)
}

// Views holds all the views as well as different managers for
// the view layouts, operations and actions.
type Views struct {
	// pages holds and renders the different views, along with
	// any modals that will be added.
	pages  *viewPages
	layout *tview.Flex

	help   *helpView
	status *statusBarView
	modals *modalViews
	peers  *peerView
	direct *directView

	actions *viewActions
	op      *viewOperation
	kb      *keybindings.Keybindings
	cfg     *config.Config

	app AppBinder
}

// NewViews returns a new Views instance.
func NewViews() *Views {
	return &Views{
		pages:   &viewPages{},
		help:    &helpView{},
		status:  &statusBarView{},
		modals:  &modalViews{},
		peers:   &peerView{},
		direct:  &directView{},
		actions: &viewActions{},
		op:      &viewOperation{},
		kb:      &keybindings.Keybindings{},
	}
}

// Initialize initializes all the views.
func (v *Views) Initialize(binder AppBinder, cfg *config.Config) (*AppData, error) {
	v.app = binder
	v.cfg = cfg
	v.kb = v.cfg.Values.Kb

	v.actions = newViewActions(v)
	v.op = newViewOperation(v)

	v.pages = newViewPages()
	v.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.pages, 0, 10, true)

	initializers := []viewInitializer{
		v.status,
		v.help,
		v.modals,
		v.peers,
		v.direct,
	}

	for _, i := range initializers {
		i.SetRootView(v)

		if err := i.Initialize(); err != nil {
			return nil, err
		}
	}

	return &AppData{
		Layout:       v.layout,
		InitialFocus: v.arrangeViews(),
		MouseFunc: func(event *tcell.EventMouse, action tview.MouseAction) (*tcell.EventMouse, tview.MouseAction) {
			return v.modals.modalMouseHandler(event, action)
		},
		BeforeDrawFunc: func(t tcell.Screen) bool {
			v.modals.resizeModal()

			return false
		},
		InputCapture: func(event *tcell.EventKey) *tcell.EventKey {
			operation := v.kb.Key(event)

			if e, ok := v.kb.IsNavigation(operation, event); ok {
				focused := v.app.GetFocused()
				if focused != nil && focused.InputHandler() != nil {
					focused.InputHandler()(e, nil)
					return nil
				}
			}

			switch operation {
			case keybindings.KeySuspend:
				v.app.Suspend()

			case keybindings.KeyCancel:
				v.op.cancelOperation()
			}

			return tcell.NewEventKey(event.Key(), event.Rune(), event.Modifiers())
		},
	}, nil
}

// Replay plays the scenario against the session in the background.
// The replay can be cancelled with the cancel keybinding.
func (v *Views) Replay(sc *scenario.Scenario) {
	if sc == nil {
		return
	}

	v.op.startOperation("Replaying "+sc.Name, func(ctx context.Context) error {
		var dump bytes.Buffer

		runner := scenario.NewRunner(v.app.Session(), &dump, nil)
		runner.OnStep = func(index int, step scenario.Step, err error) {
			if err != nil && !step.Fail {
				v.status.ErrorMessage(err)
				return
			}

			if step.Op == scenario.OpDump {
				text := dump.String()
				dump.Reset()

				v.app.QueueDraw(func() {
					v.actions.showDump(text)
				})
			}

			v.status.InfoMessage("#"+strconv.Itoa(index)+" "+step.String(), false)
		}

		return runner.Run(ctx, sc)
	})
}

// arrangeViews arranges all the views and their layouts.
func (v *Views) arrangeViews() *tview.Flex {
	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.peers.topStatus, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(v.peers.table, 0, 10, true)
	flex.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	v.pages.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	v.pages.SetChangedFunc(func() {
		page, _ := v.pages.GetFrontPage()

		contexts := map[string]keybindings.Context{
			peerPage.String():   keybindings.ContextPeers,
			directPage.String(): keybindings.ContextDirect,
		}

		switch page {
		case peerPage.String(), directPage.String():
			v.pages.currentPage(page)
			v.pages.currentContext(contexts[page])

		default:
			v.pages.currentContext(keybindings.ContextApp)
		}

		v.help.showStatusHelp(page)
	})

	v.layout.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	v.pages.AddAndSwitchToPage(peerPage.String(), flex, true)
	v.status.InfoMessage("bleconnmgr is ready.", false)

	return flex
}

// viewName represents the name of a particular view.
type viewName string

// String returns the string representation of the view's name.
func (v viewName) String() string {
	return string(v)
}

// ignoreDefaultEvent ignores the default keyevents in the provided event.
func ignoreDefaultEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlF, tcell.KeyCtrlB:
		return nil
	}

	switch event.Rune() {
	case 'g', 'G', 'j', 'k', 'h', 'l':
		return nil
	}

	return event
}

// horizontalLine returns a box with a thick horizontal line.
func horizontalLine() *tview.Box {
	return tview.NewBox().
		SetBackgroundColor(tcell.ColorDefault).
		SetDrawFunc(func(
			screen tcell.Screen,
			x, y, width, height int) (int, int, int, int) {
			centerY := y + height/2
			for cx := x; cx < x+width; cx++ {
				screen.SetContent(
					cx,
					centerY,
					tview.BoxDrawingsLightHorizontal,
					nil,
					tcell.StyleDefault.Foreground(theme.GetColor(theme.ThemeBorder)),
				)
			}

			return x + 1,
				centerY + 1,
				width - 2,
				height - (centerY + 1 - y)
		})
}
