package views

import (
	"context"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

// modalViews holds the modals stacked over the current page, the most
// recently shown last.
type modalViews struct {
	stack []*modalView

	rv *Views
}

// modalView is a bordered primitive displayed over the current page.
type modalView struct {
	name          string
	height, width int

	// page is added to the pages, window is the bordered area within it.
	page   tview.Primitive
	window *tview.Box

	// fit lays the window out within the page dimensions. It is nil for
	// windows that lay themselves out.
	fit func(pageWidth, pageHeight int)

	mgr *modalViews
}

// tableModalView is a modal displaying a table.
type tableModalView struct {
	table *tview.Table

	*modalView
}

// textModalView is a modal displaying scrollable text.
type textModalView struct {
	textview *tview.TextView

	*modalView
}

// confirmModalView is a modal asking for a confirmation.
type confirmModalView struct {
	dialog *tview.Modal
	reply  chan string

	*modalView
}

// Initialize initializes the modals view.
func (m *modalViews) Initialize() error {
	m.stack = nil

	return nil
}

// SetRootView sets the root view of the modals view.
func (m *modalViews) SetRootView(v *Views) {
	m.rv = v
}

// newModal returns a modal centering the item within a titled border.
func (m *modalViews) newModal(name, title string, item tview.Primitive, height, width int) *modalView {
	window := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(item, 0, 1, true)
	window.SetBorder(true)
	window.SetTitle("[::b] " + title + " ")
	window.SetTitleColor(theme.GetColor(theme.ThemeText))
	window.SetBorderColor(theme.GetColor(theme.ThemeBorder))
	window.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	window.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if m.rv.kb.Key(event) == keybindings.KeyClose {
			m.close(name)
			return nil
		}

		return ignoreDefaultEvent(event)
	})

	grid := tview.NewGrid().AddItem(window, 1, 1, 1, 1, 0, 0, true)

	modal := &modalView{
		name:   name,
		height: height,
		width:  width,
		page:   grid,
		window: window.Box,
		mgr:    m,
	}
	modal.fit = func(pageWidth, pageHeight int) {
		grid.SetRows(0, min(modal.height, pageHeight), 0)
		grid.SetColumns(0, min(modal.width, pageWidth), 0)
	}

	return modal
}

// newModalWithTable returns a modal displaying a selectable table.
func (m *modalViews) newModalWithTable(name, title string, height, width int) *tableModalView {
	table := tview.NewTable()
	table.SetSelectorWrap(true)
	table.SetSelectable(true, false)
	table.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	return &tableModalView{
		table:     table,
		modalView: m.newModal(name, title, table, height, width),
	}
}

// newTextModal returns a modal displaying scrollable text.
func (m *modalViews) newTextModal(name, title, text string, height, width int) *textModalView {
	textview := tview.NewTextView()
	textview.SetText(text)
	textview.SetScrollable(true)
	textview.SetTextColor(theme.GetColor(theme.ThemeText))
	textview.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	return &textModalView{
		textview:  textview,
		modalView: m.newModal(name, title, textview, height, width),
	}
}

// newConfirmModal returns a modal asking to confirm the message.
// It is answered with the buttons, or with the y and n keys.
func (m *modalViews) newConfirmModal(name, title, message string) *confirmModalView {
	reply := make(chan string, 1)
	answer := func(r string) {
		select {
		case reply <- r:
		default:
		}

		m.close(name)
	}

	dialog := tview.NewModal().
		SetText(message + "\n\nPress y to confirm, n to cancel.").
		AddButtons([]string{"Confirm", "Cancel"}).
		SetTextColor(theme.GetColor(theme.ThemeText)).
		SetBackgroundColor(theme.GetColor(theme.ThemeBackground)).
		SetButtonTextColor(theme.GetColor(theme.ThemeText)).
		SetButtonBackgroundColor(theme.GetColor(theme.ThemeBackground)).
		SetDoneFunc(func(index int, _ string) {
			if index == 0 {
				answer("y")
				return
			}

			answer("n")
		})
	dialog.SetTitle("[::b] " + title + " ")
	dialog.SetBorderColor(theme.GetColor(theme.ThemeBorder))
	dialog.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'y', 'n':
			answer(string(event.Rune()))
			return nil
		}

		return event
	})

	return &confirmModalView{
		dialog: dialog,
		reply:  reply,
		modalView: &modalView{
			name:   name,
			page:   dialog,
			window: dialog.Box,
			mgr:    m,
		},
	}
}

// getReply shows the modal and waits for an answer, returning an empty
// reply if the context is done first.
func (c *confirmModalView) getReply(ctx context.Context) string {
	c.mgr.rv.app.QueueDraw(func() {
		c.mgr.close(c.name)
		c.show()
	})

	select {
	case <-ctx.Done():
		c.mgr.rv.app.QueueDraw(func() {
			c.mgr.close(c.name)
		})

		return ""

	case r := <-c.reply:
		return r
	}
}

// show displays the modal over the current page, unless a modal with the
// same name is already displayed.
func (m *modalView) show() {
	if _, ok := m.mgr.getModal(m.name); ok {
		return
	}

	m.mgr.stack = append(m.mgr.stack, m)
	m.mgr.resizeModal()

	m.mgr.rv.pages.AddPage(m.name, m.page, true, true)
	m.mgr.rv.app.FocusPrimitive(m.page)
}

// remove removes the modal from the screen.
func (m *modalView) remove(focusInput bool) {
	if m == nil {
		return
	}

	m.mgr.removeModal(m, focusInput)
}

// close removes the named modal if it is displayed.
func (m *modalViews) close(name string) {
	if modal, ok := m.getModal(name); ok {
		modal.remove(false)
	}
}

// getModal returns the displayed modal with the given name.
func (m *modalViews) getModal(name string) (*modalView, bool) {
	for _, modal := range m.stack {
		if modal.name == name {
			return modal, true
		}
	}

	return nil, false
}

// removeModal removes the modal and moves the focus to the status input
// or to the topmost remaining primitive.
func (m *modalViews) removeModal(modal *modalView, focusInput bool) {
	for i, displayed := range m.stack {
		if displayed == modal {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			break
		}
	}

	m.rv.pages.RemovePage(modal.name)

	if focusInput {
		m.rv.app.FocusPrimitive(m.rv.status.InputField)
		return
	}

	m.setPrimaryFocus()
}

// resizeModal fits the displayed modals within the current screen dimensions.
func (m *modalViews) resizeModal() {
	_, _, pageWidth, pageHeight := m.rv.layout.GetInnerRect()

	for _, modal := range m.stack {
		if modal.fit != nil {
			modal.fit(pageWidth, pageHeight)
		}
	}
}

// setPrimaryFocus focuses the status input if it is shown, then the
// topmost modal, then the current page.
func (m *modalViews) setPrimaryFocus() {
	if pg, _ := m.rv.status.GetFrontPage(); pg == statusInputPage.String() {
		m.rv.app.FocusPrimitive(m.rv.status.InputField)
		return
	}

	if len(m.stack) > 0 {
		m.rv.app.FocusPrimitive(m.stack[len(m.stack)-1].page)
		return
	}

	m.rv.app.FocusPrimitive(m.rv.pages)
}

// modalMouseHandler closes the topmost modal when clicking outside it.
func (m *modalViews) modalMouseHandler(event *tcell.EventMouse, action tview.MouseAction) (*tcell.EventMouse, tview.MouseAction) {
	if action != tview.MouseLeftClick || len(m.stack) == 0 {
		return event, action
	}

	top := m.stack[len(m.stack)-1]
	if !top.window.InRect(event.Position()) {
		top.remove(false)
		return nil, action
	}

	return event, action
}
