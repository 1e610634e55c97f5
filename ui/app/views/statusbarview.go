package views

import (
	"context"
	"errors"
	"time"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/bleconnmgr/eventbus"
	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

const (
	statusInputPage    viewName = "input"
	statusMessagesPage viewName = "messages"

	// messageTimeout is how long a transient message stays before the
	// last persistent message is shown again.
	messageTimeout = 3 * time.Second
)

// statusBarView shows messages, and asks single key questions, below the pages.
type statusBarView struct {
	MessageBox *tview.TextView
	InputField *tview.InputField

	// Help is the line of keybindings shown by the help view.
	Help *tview.TextView

	messages chan statusMessage
	stop     context.CancelFunc

	*Views
	*tview.Pages
}

type statusMessage struct {
	text    string
	persist bool
}

// Initialize initializes the status bar.
func (s *statusBarView) Initialize() error {
	background := theme.GetColor(theme.ThemeBackground)

	s.MessageBox = tview.NewTextView().SetDynamicColors(true)
	s.MessageBox.SetBackgroundColor(background)

	s.Help = tview.NewTextView().SetDynamicColors(true)
	s.Help.SetBackgroundColor(background)

	s.InputField = tview.NewInputField().
		SetLabelColor(theme.GetColor(theme.ThemeText)).
		SetFieldTextColor(theme.GetColor(theme.ThemeText)).
		SetFieldBackgroundColor(background).
		SetAcceptanceFunc(tview.InputFieldMaxLength(1))
	s.InputField.SetBackgroundColor(background)

	s.Pages = tview.NewPages().
		AddPage(statusInputPage.String(), s.InputField, true, false).
		AddPage(statusMessagesPage.String(), s.MessageBox, true, true)
	s.Pages.SetBackgroundColor(background)

	s.layout.AddItem(s.Pages, 1, 0, false)

	var ctx context.Context

	s.messages = make(chan statusMessage, 10)
	ctx, s.stop = context.WithCancel(context.Background())

	go s.showMessages(ctx)
	go s.showErrors()

	return nil
}

// SetRootView sets the root view of the status bar.
func (s *statusBarView) SetRootView(root *Views) {
	s.Views = root
}

// Release stops showing messages.
func (s *statusBarView) Release() {
	if s.stop != nil {
		s.stop()
	}
}

// showErrors shows the errors published by the session, such as timed
// out direct connection attempts.
func (s *statusBarView) showErrors() {
	errs := s.app.Session().Subscribe(eventbus.EventError)
	defer errs.Unsubscribe()

	for ev := range errs.C {
		if err, ok := ev.(error); ok {
			s.ErrorMessage(err)
		}
	}
}

// SetInput asks the question in the status bar and returns the key typed
// in reply, or an empty string if the question was closed.
func (s *statusBarView) SetInput(label string) string {
	reply := make(chan string, 1)

	s.app.InstantDraw(func() {
		s.InputField.SetText("")
		s.InputField.SetLabel("[::b]" + label + " ")
		s.InputField.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			if s.kb.Key(event) == keybindings.KeyClose {
				reply <- ""
			} else {
				reply <- string(event.Rune())
			}

			s.SwitchToPage(statusMessagesPage.String())
			s.modals.setPrimaryFocus()

			return nil
		})

		s.SwitchToPage(statusInputPage.String())
		s.app.FocusPrimitive(s.InputField)
	})

	return <-reply
}

// InfoMessage shows an informational message. A persistent message stays
// until the next persistent message replaces it.
func (s *statusBarView) InfoMessage(text string, persist bool) {
	s.send(statusMessage{theme.ColorWrap(theme.ThemeStatusInfo, text), persist})
}

// ErrorMessage shows an error, unless it is a cancellation.
func (s *statusBarView) ErrorMessage(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	s.send(statusMessage{theme.ColorWrap(theme.ThemeStatusError, "Error: "+err.Error()), false})
}

// send drops the message if the status bar is not initialized or is
// falling behind.
func (s *statusBarView) send(msg statusMessage) {
	if s.messages == nil {
		return
	}

	select {
	case s.messages <- msg:
	default:
	}
}

// showMessages displays the messages, and restores the last persistent
// message once a transient one times out.
func (s *statusBarView) showMessages(ctx context.Context) {
	var persistent string

	timeout := time.NewTimer(messageTimeout)
	defer timeout.Stop()

	for {
		var text string

		select {
		case <-ctx.Done():
			return

		case msg := <-s.messages:
			if msg.persist {
				persistent = msg.text
			}

			text = msg.text
			timeout.Reset(messageTimeout)

		case <-timeout.C:
			text = persistent
		}

		s.app.InstantDraw(func() {
			s.MessageBox.SetText(text)
		})
	}
}
