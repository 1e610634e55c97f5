package views

import (
	"github.com/darkhz/tview"
	"go.uber.org/atomic"

	"github.com/darkhz/bleconnmgr/ui/keybindings"
)

// viewPages holds a pages manager for multiple views.
type viewPages struct {
	page        atomic.String
	pageContext atomic.String

	*tview.Pages
}

// newViewPages returns a new viewPages.
func newViewPages() *viewPages {
	p := &viewPages{
		Pages: tview.NewPages(),
	}

	p.page.Store(peerPage.String())
	p.pageContext.Store(string(keybindings.ContextPeers))

	return p
}

// currentPage returns the currently focused page.
func (v *viewPages) currentPage(set ...string) string {
	if set != nil {
		v.page.Store(set[0])
		return set[0]
	}

	return v.page.Load()
}

// currentContext gets or sets the current keybinding/page context of the currently focused page.
func (v *viewPages) currentContext(set ...keybindings.Context) keybindings.Context {
	if set != nil {
		v.pageContext.Store(string(set[0]))
		return set[0]
	}

	return keybindings.Context(v.pageContext.Load())
}
