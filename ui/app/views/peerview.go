package views

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/errorkinds"
	"github.com/darkhz/bleconnmgr/eventbus"
	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

const peerPage viewName = "peers"

// peerView holds the tracked peers view.
type peerView struct {
	table     *tview.Table
	topStatus *tview.TextView

	refreshes chan struct{}

	*Views
}

// peerColumns are the headers of the peers table.
var peerColumns = []string{"Address", "Accept List", "Background", "Targeted", "Direct"}

// Initialize initializes the peers view.
func (p *peerView) Initialize() error {
	p.topStatus = tview.NewTextView()
	p.topStatus.SetDynamicColors(true)
	p.topStatus.SetTextAlign(tview.AlignLeft)
	p.topStatus.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	p.table = tview.NewTable()
	p.table.SetFixed(1, 0)
	p.table.SetSelectorWrap(true)
	p.table.SetSelectable(true, false)
	p.table.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	p.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch key := p.kb.Key(event, keybindings.ContextPeers); key {
		case keybindings.KeyHelp:
			p.help.showHelp()
			return event

		case keybindings.KeyReset, keybindings.KeyDump, keybindings.KeyPeerInfo,
			keybindings.KeyPeerConnected, keybindings.KeyPeerCancelDirect,
			keybindings.KeyPeerForget, keybindings.KeyDirectView, keybindings.KeyQuit:
			p.actions.handler(key)()
		}

		return ignoreDefaultEvent(event)
	})

	p.refreshes = make(chan struct{}, 1)

	p.setHeader()
	p.setStatus(connmgr.State{}, 0)

	go p.refreshLoop()
	go p.event()

	return nil
}

// SetRootView sets the root view of the peers view.
func (p *peerView) SetRootView(v *Views) {
	p.Views = v
}

// setHeader writes the column headers into the first row of the peers view.
func (p *peerView) setHeader() {
	for col, name := range peerColumns {
		p.table.SetCell(0, col, tview.NewTableCell(strings.ToUpper(name)).
			SetExpansion(1).
			SetSelectable(false).
			SetAlign(tview.AlignLeft).
			SetAttributes(tcell.AttrBold).
			SetTextColor(theme.GetColor(theme.ThemeHeader)),
		)
	}
}

// setStatus writes the controller state into the top status area.
func (p *peerView) setStatus(state connmgr.State, acceptListUsed int) {
	var sb strings.Builder

	ctrl := p.app.Session().Controller()

	sb.WriteString(theme.ColorWrap(theme.ThemeController, "Controller", "::b"))
	sb.WriteString(" accept list ")
	sb.WriteString(strconv.Itoa(acceptListUsed))
	sb.WriteString("/")
	sb.WriteString(strconv.Itoa(ctrl.Capacity()))

	sb.WriteString(" | ")
	if state.FilterEnabled {
		sb.WriteString(theme.ColorWrap(theme.ThemeFilterEnabled,
			"Filter on ("+strconv.Itoa(state.FilteringPeers)+" filtering)"))
	} else {
		sb.WriteString("Filter off")
	}

	sb.WriteString(" | ")
	if state.DirectConnects > 0 {
		sb.WriteString(theme.ColorWrap(theme.ThemeFastMode,
			"Fast mode ("+strconv.Itoa(state.DirectConnects)+" direct)"))
	} else {
		sb.WriteString("Slow mode")
	}

	p.topStatus.SetText(sb.String())
}

// list lists the tracked peers within the peers view, keeping the
// current selection if the peer is still tracked.
func (p *peerView) list(state connmgr.State) {
	selected := p.getSelection()

	p.table.Clear()
	p.setHeader()

	row := 1
	for i, peer := range state.Peers {
		p.setInfo(i+1, peer)

		if peer.Address == selected.Address {
			row = i + 1
		}
	}

	p.table.Select(row, 0)
}

// setInfo writes peer information into the specified row of the peers view.
func (p *peerView) setInfo(row int, peer connmgr.PeerSnapshot) {
	addressColor := theme.ThemePeer
	switch {
	case len(peer.Direct) > 0:
		addressColor = theme.ThemeDirect

	case peer.Filtering:
		addressColor = theme.ThemeFiltering

	case peer.InAcceptList:
		addressColor = theme.ThemeAcceptList
	}

	p.table.SetCell(row, 0, tview.NewTableCell(peer.Address.String()).
		SetExpansion(1).
		SetReference(peer).
		SetAlign(tview.AlignLeft).
		SetAttributes(tcell.AttrBold).
		SetTextColor(theme.GetColor(addressColor)).
		SetSelectedStyle(tcell.Style{}.
			Foreground(theme.GetColor(addressColor)).
			Background(theme.BackgroundColor(addressColor)),
		),
	)

	admission := "-"
	admissionColor := theme.ThemePeerApps
	switch {
	case peer.InAcceptList:
		admission = "yes"
		admissionColor = theme.ThemeAcceptList

	case peer.Filtering:
		admission = "filtering"
		admissionColor = theme.ThemeFiltering
	}

	direct := make([]string, 0, len(peer.Direct))
	for _, d := range peer.Direct {
		direct = append(direct, d.App.String())
	}

	cells := []struct {
		text  string
		color theme.Context
	}{
		{admission, admissionColor},
		{connmgr.JoinApps(peer.Background), theme.ThemePeerApps},
		{connmgr.JoinApps(peer.Targeted), theme.ThemePeerApps},
		{orNone(strings.Join(direct, ",")), theme.ThemeDirect},
	}

	for i, cell := range cells {
		p.table.SetCell(row, i+1, tview.NewTableCell(cell.text).
			SetExpansion(1).
			SetAlign(tview.AlignLeft).
			SetTextColor(theme.GetColor(cell.color)).
			SetSelectedStyle(tcell.Style{}.
				Bold(true),
			),
		)
	}
}

// getSelection retrieves peer information from the current selection in the peers view.
func (p *peerView) getSelection() connmgr.PeerSnapshot {
	row, _ := p.table.GetSelection()

	cell := p.table.GetCell(row, 0)
	if cell == nil {
		return connmgr.PeerSnapshot{}
	}

	peer, ok := cell.GetReference().(connmgr.PeerSnapshot)
	if !ok {
		return connmgr.PeerSnapshot{}
	}

	return peer
}

// showDetailedInfo shows detailed information about the selected peer.
func (p *peerView) showDetailedInfo() {
	peer := p.getSelection()
	if peer.Address.IsNil() {
		return
	}

	yesno := func(val bool) string {
		if !val {
			return "no"
		}

		return "yes"
	}

	props := [][]string{
		{"Address", peer.Address.String()},
		{"In accept list", yesno(peer.InAcceptList)},
		{"Filtering", yesno(peer.Filtering)},
		{"Background", connmgr.JoinApps(peer.Background)},
		{"Targeted announcement", connmgr.JoinApps(peer.Targeted)},
	}

	now := p.app.Session().Now()
	for _, d := range peer.Direct {
		props = append(props, []string{
			"Direct (app " + d.App.String() + ")",
			d.Deadline.Sub(now).Round(100*time.Millisecond).String() + " left",
		})
	}

	infoModal := p.modals.newModalWithTable("info", "Peer Information", 40, 80)
	infoModal.table.SetSelectionChangedFunc(func(row, _ int) {
		_, _, _, height := infoModal.table.GetRect()
		infoModal.table.SetOffset(row-((height-1)/2), 0)
	})

	for i, prop := range props {
		infoModal.table.SetCell(i, 0, tview.NewTableCell("[::b]"+prop[0]+":").
			SetExpansion(1).
			SetAlign(tview.AlignLeft).
			SetTextColor(theme.GetColor(theme.ThemeText)).
			SetSelectedStyle(tcell.Style{}.
				Bold(true).
				Underline(true),
			),
		)

		infoModal.table.SetCell(i, 1, tview.NewTableCell(prop[1]).
			SetExpansion(1).
			SetAlign(tview.AlignLeft).
			SetTextColor(theme.GetColor(theme.ThemeText)),
		)
	}

	infoModal.height = min(infoModal.table.GetRowCount()+4, 60)

	infoModal.show()
}

// queueRefresh requests a refresh of the peers view.
func (p *peerView) queueRefresh() {
	select {
	case p.refreshes <- struct{}{}:
	default:
	}
}

// refreshLoop refreshes the peers view when requested, until the session stops.
func (p *peerView) refreshLoop() {
	p.queueRefresh()

	for {
		select {
		case <-p.app.Session().Done():
			return

		case <-p.refreshes:
			p.refresh()
		}
	}
}

// refresh reads the manager state and redraws the peers view.
func (p *peerView) refresh() {
	state, err := p.app.Session().State(context.Background())
	if err != nil {
		if !errors.Is(err, errorkinds.ErrLoopStopped) {
			p.status.ErrorMessage(err)
		}

		return
	}

	used := len(p.app.Session().Controller().AcceptList())

	p.app.QueueDraw(func() {
		p.setStatus(state, used)
		p.list(state)
	})

	p.direct.update(state)
}

// event handles manager state transitions.
func (p *peerView) event() {
	transitions := p.app.Session().Subscribe(eventbus.EventTransition)
	defer transitions.Unsubscribe()

	for ev := range transitions.C {
		t, ok := ev.(connmgr.Transition)
		if !ok {
			continue
		}

		p.status.InfoMessage(transitionMessage(t), false)
		p.queueRefresh()
	}
}

// transitionMessage returns a status message for a transition.
func transitionMessage(t connmgr.Transition) string {
	var sb strings.Builder

	sb.WriteString(strings.ReplaceAll(string(t.Kind), "_", " "))

	if !t.Address.IsNil() {
		sb.WriteString(": ")
		sb.WriteString(t.Address.String())
	}

	switch t.Kind {
	case connmgr.TransitionDirectStarted, connmgr.TransitionDirectRemoved,
		connmgr.TransitionDirectTimedOut, connmgr.TransitionAcceptListRejected:
		sb.WriteString(" (app ")
		sb.WriteString(t.App.String())
		sb.WriteString(")")
	}

	return sb.String()
}

// peerApps returns every app with an interest in the peer.
func peerApps(peer connmgr.PeerSnapshot) (apps []connmgr.AppID, direct []connmgr.AppID) {
	seen := make(map[connmgr.AppID]struct{})

	for _, list := range [][]connmgr.AppID{peer.Background, peer.Targeted} {
		for _, app := range list {
			if _, ok := seen[app]; ok {
				continue
			}

			seen[app] = struct{}{}
			apps = append(apps, app)
		}
	}

	for _, d := range peer.Direct {
		direct = append(direct, d.App)
	}

	return apps, direct
}

// orNone returns "-" for an empty string.
func orNone(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
