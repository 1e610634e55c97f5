package views

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"

	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

const directPage viewName = "directview"

// directTick is how often the remaining time of the attempts is redrawn.
const directTick = 250 * time.Millisecond

// directView displays the remaining time of every direct connection attempt.
type directView struct {
	view *tview.Table
	flex *tview.Flex

	indicators map[directKey]*directIndicator
	lock       sync.Mutex

	total atomic.Int64

	*Views
}

// directKey identifies a direct connection attempt.
type directKey struct {
	address bluetooth.MacAddress
	app     connmgr.AppID
}

// directIndicator describes a countdown indicator, which will display
// a description and a progress bar.
type directIndicator struct {
	key      directKey
	deadline time.Time

	desc        *tview.TableCell
	progress    *tview.TableCell
	progressBar *progressbar.ProgressBar

	appDrawFunc func(func())
}

// Initialize initializes the direct connections view.
func (d *directView) Initialize() error {
	title := tview.NewTextView()
	title.SetDynamicColors(true)
	title.SetTextAlign(tview.AlignLeft)
	title.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	title.SetText(theme.ColorWrap(theme.ThemeText, "Direct Connections", "::bu"))

	d.view = tview.NewTable()
	d.view.SetSelectable(true, false)
	d.view.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	d.view.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch d.kb.Key(event, keybindings.ContextDirect) {
		case keybindings.KeyClose:
			d.pages.SwitchToPage(peerPage.String())

		case keybindings.KeyPeerCancelDirect:
			go d.cancelSelected()

		case keybindings.KeyHelp:
			d.help.showHelp()

		case keybindings.KeyQuit:
			go d.actions.quit()
		}

		return ignoreDefaultEvent(event)
	})

	d.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(title, 1, 0, false).
		AddItem(d.view, 0, 10, true)

	d.indicators = make(map[directKey]*directIndicator)

	go d.tick()

	return nil
}

// SetRootView sets the root view of the direct connections view.
func (d *directView) SetRootView(v *Views) {
	d.Views = v
}

// show displays the direct connections view.
func (d *directView) show() {
	if d.total.Load() == 0 {
		d.status.InfoMessage("No direct connections are in progress", false)
		return
	}

	d.pages.AddAndSwitchToPage(directPage.String(), d.flex, true)
}

// newIndicator returns a new countdown indicator for the attempt.
func (d *directView) newIndicator(key directKey, deadline time.Time) *directIndicator {
	timeout := d.cfg.Values.Timeout

	indicator := &directIndicator{
		key:         key,
		deadline:    deadline,
		appDrawFunc: d.app.QueueDraw,
	}

	title := " [::b]App " + key.app.String() + " to " + key.address.String() + "[-:-:-]"

	indicator.desc = tview.NewTableCell(title).
		SetExpansion(1).
		SetSelectable(false).
		SetAlign(tview.AlignLeft).
		SetTextColor(theme.GetColor(theme.ThemeProgressText))

	indicator.progress = tview.NewTableCell("").
		SetExpansion(1).
		SetSelectable(false).
		SetReference(indicator).
		SetAlign(tview.AlignRight).
		SetTextColor(theme.GetColor(theme.ThemeProgressBar))

	indicator.progressBar = progressbar.NewOptions64(
		timeout.Milliseconds(),
		progressbar.OptionSetWriter(indicator),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(200*time.Millisecond),
	)

	return indicator
}

// update synchronizes the indicators with the direct connection attempts
// of the state, and redraws the view if attempts were added or removed.
func (d *directView) update(state connmgr.State) {
	d.lock.Lock()
	defer d.lock.Unlock()

	seen := make(map[directKey]struct{}, state.DirectConnects)
	changed := false

	for _, peer := range state.Peers {
		for _, attempt := range peer.Direct {
			key := directKey{peer.Address, attempt.App}
			seen[key] = struct{}{}

			if indicator, ok := d.indicators[key]; ok {
				indicator.deadline = attempt.Deadline
				continue
			}

			d.indicators[key] = d.newIndicator(key, attempt.Deadline)
			changed = true
		}
	}

	for key := range d.indicators {
		if _, ok := seen[key]; !ok {
			delete(d.indicators, key)
			changed = true
		}
	}

	d.total.Store(int64(len(d.indicators)))
	d.setProgress(d.app.Session().Now())

	if !changed {
		return
	}

	indicators := d.sortedIndicators()

	d.app.QueueDraw(func() {
		d.view.Clear()

		for i, indicator := range indicators {
			row := i * 2

			d.view.SetCell(row+1, 0, tview.NewTableCell("#"+strconv.Itoa(i+1)).
				SetReference(indicator.key).
				SetAlign(tview.AlignCenter),
			)
			d.view.SetCell(row+1, 1, indicator.desc)
			d.view.SetCell(row+1, 2, indicator.progress)
		}

		if len(indicators) == 0 {
			if pg, _ := d.pages.GetFrontPage(); pg == directPage.String() {
				d.pages.SwitchToPage(peerPage.String())
			}
		}
	})
}

// setProgress advances every progress bar to the elapsed part of its timeout.
func (d *directView) setProgress(now time.Time) {
	timeout := d.cfg.Values.Timeout

	for _, indicator := range d.indicators {
		elapsed := timeout - indicator.deadline.Sub(now)
		indicator.progressBar.Set64(max(0, min(elapsed, timeout)).Milliseconds())
	}
}

// sortedIndicators returns the indicators in address and app order.
func (d *directView) sortedIndicators() []*directIndicator {
	indicators := make([]*directIndicator, 0, len(d.indicators))
	for _, indicator := range d.indicators {
		indicators = append(indicators, indicator)
	}

	slices.SortFunc(indicators, func(a, b *directIndicator) int {
		if c := a.key.address.Compare(b.key.address); c != 0 {
			return c
		}

		return int(a.key.app) - int(b.key.app)
	})

	return indicators
}

// tick advances the countdowns while attempts are in progress.
func (d *directView) tick() {
	t := time.NewTicker(directTick)
	defer t.Stop()

	for {
		select {
		case <-d.app.Session().Done():
			return

		case <-t.C:
			d.lock.Lock()
			d.setProgress(d.app.Session().Now())
			d.lock.Unlock()
		}
	}
}

// cancelSelected removes the selected direct connection attempt.
func (d *directView) cancelSelected() {
	var (
		key directKey
		ok  bool
	)

	d.app.InstantDraw(func() {
		row, _ := d.view.GetSelection()

		cell := d.view.GetCell(row, 0)
		if cell == nil {
			return
		}

		key, ok = cell.GetReference().(directKey)
	})
	if !ok {
		return
	}

	var err error

	if doErr := d.app.Session().Do(context.Background(), func(m *connmgr.Manager) {
		err = m.RemoveDirectConnect(key.app, key.address)
	}); doErr != nil {
		err = doErr
	}

	if err != nil {
		d.status.ErrorMessage(err)
	}
}

// Write is used by the progressbar to display the countdown on the screen.
func (p *directIndicator) Write(b []byte) (int, error) {
	text := string(b)

	p.appDrawFunc(func() {
		p.progress.SetText(text)
	})

	return len(b), nil
}
