// Package keybindings maps key presses to monitor actions.
package keybindings

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"go.uber.org/multierr"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Key is a monitor action that can be bound to a key press.
type Key string

// The monitor actions.
const (
	KeyCancel           Key = "Cancel"
	KeySuspend          Key = "Suspend"
	KeyQuit             Key = "Quit"
	KeyClose            Key = "Close"
	KeyHelp             Key = "Help"
	KeyNavigateUp       Key = "NavigateUp"
	KeyNavigateDown     Key = "NavigateDown"
	KeyReset            Key = "Reset"
	KeyDump             Key = "Dump"
	KeyPeerInfo         Key = "PeerInfo"
	KeyPeerConnected    Key = "PeerConnected"
	KeyPeerCancelDirect Key = "PeerCancelDirect"
	KeyPeerForget       Key = "PeerForget"
	KeyDirectView       Key = "DirectView"
)

// Context is the screen an action applies to. Actions of the App
// context apply everywhere.
type Context string

// The different screens.
const (
	ContextApp    Context = "App"
	ContextPeers  Context = "Peers"
	ContextDirect Context = "Direct"
)

// Keybinding is a key press.
type Keybinding struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

func runeKey(r rune) Keybinding {
	return Keybinding{tcell.KeyRune, r, tcell.ModNone}
}

func namedKey(key tcell.Key, mod tcell.ModMask) Keybinding {
	return Keybinding{key, ' ', mod}
}

// defaults are the bindings and contexts of every action.
var defaults = map[Key]struct {
	contexts []Context
	binding  Keybinding
}{
	KeyClose:            {app, namedKey(tcell.KeyEscape, tcell.ModNone)},
	KeyQuit:             {app, runeKey('Q')},
	KeyCancel:           {app, namedKey(tcell.KeyCtrlX, tcell.ModCtrl)},
	KeySuspend:          {app, namedKey(tcell.KeyCtrlZ, tcell.ModCtrl)},
	KeyHelp:             {app, runeKey('?')},
	KeyNavigateUp:       {app, namedKey(tcell.KeyUp, tcell.ModNone)},
	KeyNavigateDown:     {app, namedKey(tcell.KeyDown, tcell.ModNone)},
	KeyReset:            {peers, runeKey('R')},
	KeyDump:             {peers, runeKey('d')},
	KeyPeerInfo:         {peers, runeKey('i')},
	KeyPeerConnected:    {peers, runeKey('c')},
	KeyPeerCancelDirect: {[]Context{ContextPeers, ContextDirect}, runeKey('x')},
	KeyPeerForget:       {peers, runeKey('f')},
	KeyDirectView:       {peers, runeKey('v')},
}

var (
	app   = []Context{ContextApp}
	peers = []Context{ContextPeers}
)

// navigation maps the navigation actions to the keys the views understand.
var navigation = map[Key]Keybinding{
	KeyNavigateUp:   namedKey(tcell.KeyUp, tcell.ModNone),
	KeyNavigateDown: namedKey(tcell.KeyDown, tcell.ModNone),
}

// aliases maps alternate spellings to tcell key names.
var aliases = map[string]string{
	"Pgup":      "PgUp",
	"Pgdn":      "PgDn",
	"Pageup":    "PgUp",
	"Pagedown":  "PgDn",
	"Escape":    "Esc",
	"Backspace": "Backspace2",
}

// Keybindings holds the binding of every action.
type Keybindings struct {
	bindings map[Key]Keybinding
	lookup   map[Context]map[Keybinding]Key
}

// NewKeybindings returns the default keybindings.
func NewKeybindings() *Keybindings {
	k := &Keybindings{bindings: make(map[Key]Keybinding, len(defaults))}
	for key, d := range defaults {
		k.bindings[key] = d.binding
	}

	k.index()

	return k
}

// Key returns the action bound to the event within the given contexts,
// falling back to the App context.
func (k *Keybindings) Key(event *tcell.EventKey, contexts ...Context) Key {
	pressed := bindingOf(event)

	for _, context := range append(contexts, ContextApp) {
		if key, ok := k.lookup[context][pressed]; ok {
			return key
		}
	}

	return ""
}

// Binding returns the key press bound to the action.
func (k *Keybindings) Binding(key Key) Keybinding {
	return k.bindings[key]
}

// Name returns a readable name of the key press bound to the action.
func (k *Keybindings) Name(key Key) string {
	kb, ok := k.bindings[key]
	if !ok {
		return ""
	}

	if kb.Key != tcell.KeyRune {
		return tcell.NewEventKey(kb.Key, kb.Rune, kb.Mod).Name()
	}

	name := string(kb.Rune)
	if kb.Rune == ' ' {
		name = "Space"
	}
	if kb.Mod&tcell.ModAlt != 0 {
		name = "Alt+" + name
	}

	return name
}

// IsNavigation returns the arrow key event to replay if the pressed action
// is a navigation action bound to another key.
func (k *Keybindings) IsNavigation(pressed Key, event *tcell.EventKey) (*tcell.EventKey, bool) {
	n, ok := navigation[pressed]
	if !ok || n == bindingOf(event) {
		return nil, false
	}

	return tcell.NewEventKey(n.Key, n.Rune, n.Mod), true
}

// Validate applies the configured bindings, keyed by action name.
// Every invalid binding and conflict is reported, and nothing is applied
// unless the whole configuration is valid.
func (k *Keybindings) Validate(config map[string]string) error {
	var errs error

	bindings := maps.Clone(k.bindings)

	for _, name := range slices.Sorted(maps.Keys(config)) {
		if _, ok := defaults[Key(name)]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("keybindings: unknown action %q", name))
			continue
		}

		kb, err := parseBinding(config[name])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("keybindings: %s: %w", name, err))
			continue
		}

		bindings[Key(name)] = kb
	}

	if errs != nil {
		return errs
	}

	if err := conflicts(bindings); err != nil {
		return err
	}

	k.bindings = bindings
	k.index()

	return nil
}

func (k *Keybindings) index() {
	k.lookup = make(map[Context]map[Keybinding]Key)

	for key, kb := range k.bindings {
		for _, context := range defaults[key].contexts {
			if k.lookup[context] == nil {
				k.lookup[context] = make(map[Keybinding]Key)
			}

			k.lookup[context][kb] = key
		}
	}
}

// conflicts reports actions sharing a key press within a context, or with
// an action of the App context.
func conflicts(bindings map[Key]Keybinding) error {
	var errs error

	keys := slices.Sorted(maps.Keys(bindings))

	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if bindings[a] != bindings[b] {
				continue
			}

			if overlap(defaults[a].contexts, defaults[b].contexts) {
				errs = multierr.Append(errs, fmt.Errorf("keybindings: %s and %s are bound to the same key", a, b))
			}
		}
	}

	return errs
}

func overlap(a, b []Context) bool {
	for _, c := range a {
		if c == ContextApp || slices.Contains(b, c) || slices.Contains(b, ContextApp) {
			return true
		}
	}

	return false
}

// bindingOf returns the key press of the event. The rune of a shifted
// character already carries the shift.
func bindingOf(event *tcell.EventKey) Keybinding {
	if event.Key() != tcell.KeyRune {
		return namedKey(event.Key(), event.Modifiers())
	}

	return Keybinding{tcell.KeyRune, event.Rune(), event.Modifiers() &^ tcell.ModShift}
}

var keyNames = func() map[string]tcell.Key {
	names := make(map[string]tcell.Key, len(tcell.KeyNames))
	for key, name := range tcell.KeyNames {
		names[name] = key
	}

	return names
}()

// parseBinding parses a key press such as "d", "Ctrl+r", "Alt+Space" or "PgUp".
func parseBinding(s string) (Keybinding, error) {
	var (
		mod   tcell.ModMask
		char  rune
		named string
		keys  int
	)

	title := cases.Title(language.Und)

	for _, token := range strings.FieldsFunc(s, func(c rune) bool {
		return c == '+' || unicode.IsSpace(c)
	}) {
		if runewidth.StringWidth(token) == 1 {
			char, _ = utf8.DecodeRuneInString(token)
			keys++

			continue
		}

		name := title.String(token)
		if alias, ok := aliases[name]; ok {
			name = alias
		}

		switch name {
		case "Ctrl":
			mod |= tcell.ModCtrl

		case "Alt":
			mod |= tcell.ModAlt

		case "Shift":
			mod |= tcell.ModShift

		case "Space":
			char = ' '
			keys++

		case "Plus":
			char = '+'
			keys++

		default:
			if _, ok := keyNames[name]; !ok {
				return Keybinding{}, fmt.Errorf("unknown key %q", token)
			}

			named = name
			keys++
		}
	}

	switch {
	case keys == 0:
		return Keybinding{}, fmt.Errorf("no key in %q", s)

	case keys > 1:
		return Keybinding{}, fmt.Errorf("more than one key in %q", s)

	case named != "":
		if mod&tcell.ModCtrl != 0 {
			if key, ok := keyNames["Ctrl-"+named]; ok {
				return namedKey(key, mod), nil
			}
		}

		return namedKey(keyNames[named], mod), nil
	}

	if mod&tcell.ModShift != 0 {
		char = unicode.ToUpper(char)
		mod &^= tcell.ModShift
	}

	if mod&tcell.ModCtrl != 0 {
		name := string(unicode.ToUpper(char))
		if char == ' ' {
			name = "Space"
		}

		if key, ok := keyNames["Ctrl-"+name]; ok {
			return namedKey(key, mod), nil
		}
	}

	return Keybinding{tcell.KeyRune, char, mod}, nil
}
