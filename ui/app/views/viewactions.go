package views

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/ui/keybindings"
)

// viewActions holds an instance of a view actions manager,
// which maps keybindings to their respective actions.
type viewActions struct {
	rv *Views

	fnmap map[keybindings.Key]func() bool
}

// newViewActions returns a new view actions manager.
func newViewActions(rv *Views) *viewActions {
	v := &viewActions{rv: rv}

	return v.initViewActions()
}

// initViewActions initializes and stores the different view actions.
func (v *viewActions) initViewActions() *viewActions {
	v.fnmap = map[keybindings.Key]func() bool{
		keybindings.KeyReset:            v.reset,
		keybindings.KeyDump:             v.dump,
		keybindings.KeyPeerInfo:         v.info,
		keybindings.KeyPeerConnected:    v.connected,
		keybindings.KeyPeerCancelDirect: v.cancelDirect,
		keybindings.KeyPeerForget:       v.forget,
		keybindings.KeyDirectView:       v.directView,
		keybindings.KeyQuit:             v.quit,
	}

	return v
}

// handler returns the handler assigned to the key type.
// The handler runs outside the drawing routine.
func (v *viewActions) handler(key keybindings.Key) func() bool {
	handler, ok := v.fnmap[key]
	if !ok {
		return func() bool { return false }
	}

	return func() bool {
		go handler()
		return false
	}
}

// manager runs fn on the connection manager and shows any error it returns.
func (v *viewActions) manager(fn func(m *connmgr.Manager) error) bool {
	var err error

	if doErr := v.rv.app.Session().Do(context.Background(), func(m *connmgr.Manager) {
		err = fn(m)
	}); doErr != nil {
		err = doErr
	}

	if err != nil {
		v.rv.status.ErrorMessage(err)
		return false
	}

	return true
}

// selected returns the selected peer in the peers view.
func (v *viewActions) selected() (connmgr.PeerSnapshot, bool) {
	var peer connmgr.PeerSnapshot

	v.rv.app.InstantDraw(func() {
		peer = v.rv.peers.getSelection()
	})

	if peer.Address.IsNil() {
		v.rv.status.ErrorMessage(errNoSelection)
		return peer, false
	}

	return peer, true
}

// reset resets the connection manager after asking for confirmation.
func (v *viewActions) reset() bool {
	modal := v.rv.modals.newConfirmModal("reset", "Reset",
		"Clear every request, the accept list and the announcement filter?")

	if modal.getReply(context.Background()) != "y" {
		return false
	}

	if !v.manager(func(m *connmgr.Manager) error {
		m.Reset(false)
		return nil
	}) {
		return false
	}

	v.rv.status.InfoMessage("Connection manager was reset", false)

	return true
}

// dump shows the manager state in a modal.
func (v *viewActions) dump() bool {
	var sb strings.Builder

	if !v.manager(func(m *connmgr.Manager) error {
		return m.Dump(&sb)
	}) {
		return false
	}

	v.rv.app.QueueDraw(func() {
		v.showDump(sb.String())
	})

	return true
}

// showDump displays a state dump in a modal.
// It must be called from the drawing routine.
func (v *viewActions) showDump(text string) {
	if m, ok := v.rv.modals.getModal("dump"); ok {
		m.remove(false)
	}

	lines := strings.Count(text, "\n")

	modal := v.rv.modals.newTextModal("dump", "Connection Manager State", text, min(lines+4, 40), 100)
	modal.show()
}

// info shows information about the selected peer.
func (v *viewActions) info() bool {
	if _, ok := v.selected(); !ok {
		return false
	}

	v.rv.app.QueueDraw(v.rv.peers.showDetailedInfo)

	return true
}

// connected reports that a connection to the selected peer was established.
func (v *viewActions) connected() bool {
	peer, ok := v.selected()
	if !ok {
		return false
	}

	return v.manager(func(m *connmgr.Manager) error {
		m.ConnectionComplete(peer.Address)
		return nil
	})
}

// cancelDirect removes every direct connection attempt to the selected peer.
func (v *viewActions) cancelDirect() bool {
	peer, ok := v.selected()
	if !ok {
		return false
	}

	_, direct := peerApps(peer)
	if len(direct) == 0 {
		v.rv.status.InfoMessage("No direct connections to "+peer.Address.String(), false)
		return false
	}

	return v.manager(func(m *connmgr.Manager) error {
		var err error

		for _, app := range direct {
			err = multierr.Append(err, m.RemoveDirectConnect(app, peer.Address))
		}

		return err
	})
}

// forget removes every request for the selected peer.
func (v *viewActions) forget() bool {
	peer, ok := v.selected()
	if !ok {
		return false
	}

	apps, direct := peerApps(peer)

	return v.manager(func(m *connmgr.Manager) error {
		var err error

		for _, app := range direct {
			err = multierr.Append(err, m.RemoveDirectConnect(app, peer.Address))
		}

		for _, app := range apps {
			err = multierr.Append(err, m.RemoveBackground(app, peer.Address))
		}

		return err
	})
}

// directView shows the direct connections view.
func (v *viewActions) directView() bool {
	v.rv.app.QueueDraw(v.rv.direct.show)

	return true
}

// quit stops the scenario replay, and closes the application.
func (v *viewActions) quit() bool {
	if v.rv.cfg.Values.ConfirmOnQuit && v.rv.status.SetInput("Quit (y/n)?") != "y" {
		return false
	}

	v.rv.op.cancelOperation()
	v.rv.status.Release()
	v.rv.app.Close()

	return true
}

// errNoSelection is returned when an action needs a selected peer.
var errNoSelection = errors.New("no peer is selected")
