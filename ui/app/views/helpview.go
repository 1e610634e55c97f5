package views

import (
	"strings"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

// helpTopic lists the actions available on a page.
type helpTopic struct {
	title string
	page  viewName
	items []helpItem
}

// helpItem describes an action. Items with a short name are shown in
// the status help line.
type helpItem struct {
	short, description string
	keys               []keybindings.Key
}

var helpTopics = []helpTopic{
	{"Peers", peerPage, []helpItem{
		{"Navigate", "Navigate between peers", []keybindings.Key{keybindings.KeyNavigateUp, keybindings.KeyNavigateDown}},
		{"State", "Show the manager state", []keybindings.Key{keybindings.KeyDump}},
		{"Info", "Show peer information", []keybindings.Key{keybindings.KeyPeerInfo}},
		{"Direct", "Show direct connection attempts", []keybindings.Key{keybindings.KeyDirectView}},
		{"Connected", "Mark the selected peer as connected", []keybindings.Key{keybindings.KeyPeerConnected}},
		{"Cancel", "Cancel direct connections to the selected peer", []keybindings.Key{keybindings.KeyPeerCancelDirect}},
		{"Forget", "Remove every request for the selected peer", []keybindings.Key{keybindings.KeyPeerForget}},
		{"", "Reset the connection manager", []keybindings.Key{keybindings.KeyReset}},
		{"", "Stop the scenario replay", []keybindings.Key{keybindings.KeyCancel}},
		{"Help", "Show help", []keybindings.Key{keybindings.KeyHelp}},
		{"", "Suspend", []keybindings.Key{keybindings.KeySuspend}},
		{"", "Quit", []keybindings.Key{keybindings.KeyQuit}},
	}},
	{"Direct Connections", directPage, []helpItem{
		{"Navigate", "Navigate between attempts", []keybindings.Key{keybindings.KeyNavigateUp, keybindings.KeyNavigateDown}},
		{"Cancel", "Cancel the selected attempt", []keybindings.Key{keybindings.KeyPeerCancelDirect}},
		{"Exit", "Return to the peers", []keybindings.Key{keybindings.KeyClose}},
	}},
}

// helpView shows the keybindings of the current page below the status
// bar, and all of them in the help modal.
type helpView struct {
	page string

	*Views
}

// Initialize initializes the help view.
func (h *helpView) Initialize() error {
	if h.cfg.Values.NoHelpDisplay {
		return nil
	}

	h.layout.AddItem(tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(horizontalLine(), 1, 0, false).
		AddItem(h.status.Help, 1, 0, false), 2, 0, false)

	return nil
}

// SetRootView sets the root view for the help view.
func (h *helpView) SetRootView(v *Views) {
	h.Views = v
}

// keyNames returns the names of the keys bound to the actions.
func (h *helpView) keyNames(keys []keybindings.Key) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, h.kb.Name(k))
	}

	return strings.Join(names, "/")
}

// showStatusHelp shows the short help of the page below the status bar.
func (h *helpView) showStatusHelp(page string) {
	if h.cfg.Values.NoHelpDisplay || h.page == page {
		return
	}

	h.page = page

	var entries []string

	for _, topic := range helpTopics {
		if topic.page.String() != page {
			continue
		}

		for _, item := range topic.items {
			if item.short == "" {
				continue
			}

			entries = append(entries,
				theme.ColorWrap(theme.ThemeText, item.short, "::b")+
					theme.ColorWrap(theme.ThemeText, " "+h.keyNames(item.keys)),
			)
		}
	}

	h.status.Help.SetText(strings.Join(entries, ", "))
}

// showHelp displays a modal with the keybindings of every page.
func (h *helpView) showHelp() {
	help := h.modals.newModalWithTable("help", "Help", 40, 64)

	cell := func(text string) *tview.TableCell {
		return tview.NewTableCell(text).
			SetTextColor(theme.GetColor(theme.ThemeText)).
			SetSelectedStyle(tcell.Style{}.
				Foreground(theme.GetColor(theme.ThemeText)).
				Background(theme.BackgroundColor(theme.ThemeText)),
			)
	}

	row := 0
	for _, topic := range helpTopics {
		help.table.SetCell(row, 0, cell("[::bu]"+topic.title).SetSelectable(false))
		row++

		for _, item := range topic.items {
			help.table.SetCell(row, 0, cell(item.description).SetExpansion(1))
			help.table.SetCell(row, 1, cell(h.keyNames(item.keys)))
			row++
		}

		row++
	}

	help.table.Select(1, 0)
	help.show()
}
