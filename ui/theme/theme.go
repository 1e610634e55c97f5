// Package theme holds the colors of the monitor's elements.
package theme

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/multierr"
)

// Context is a colored element of the monitor.
type Context string

// The themeable elements.
const (
	ThemeText          Context = "Text"
	ThemeBorder        Context = "Border"
	ThemeBackground    Context = "Background"
	ThemeStatusInfo    Context = "StatusInfo"
	ThemeStatusError   Context = "StatusError"
	ThemeHeader        Context = "Header"
	ThemeController    Context = "Controller"
	ThemeFilterEnabled Context = "FilterEnabled"
	ThemeFastMode      Context = "FastMode"
	ThemePeer          Context = "Peer"
	ThemePeerApps      Context = "PeerApps"
	ThemeAcceptList    Context = "AcceptList"
	ThemeFiltering     Context = "Filtering"
	ThemeDirect        Context = "Direct"
	ThemeProgressBar   Context = "ProgressBar"
	ThemeProgressText  Context = "ProgressText"
)

// colors maps every element to a tcell color name or hex value.
var colors = map[Context]string{
	ThemeText:          "white",
	ThemeBorder:        "white",
	ThemeBackground:    "default",
	ThemeStatusInfo:    "white",
	ThemeStatusError:   "red",
	ThemeHeader:        "grey",
	ThemeController:    "white",
	ThemeFilterEnabled: "aqua",
	ThemeFastMode:      "yellow",
	ThemePeer:          "white",
	ThemePeerApps:      "grey",
	ThemeAcceptList:    "green",
	ThemeFiltering:     "mediumorchid",
	ThemeDirect:        "orange",
	ThemeProgressBar:   "white",
	ThemeProgressText:  "white",
}

// ParseThemeConfig applies the configured element colors. Every unknown
// element and invalid color is reported, and nothing is applied unless
// the whole configuration is valid.
func ParseThemeConfig(config map[string]string) error {
	var errs error

	parsed := make(map[Context]string, len(config))

	for _, name := range slices.Sorted(maps.Keys(config)) {
		element, color := Context(name), config[name]

		if _, ok := colors[element]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("theme: unknown element %q", name))
			continue
		}

		switch {
		case color == "transparent":
			color = "default"

		case color == "black":
			// tcell renders named black as the terminal default.
			color = "#000000"

		case tcell.GetColor(color) == tcell.ColorDefault && color != "default":
			errs = multierr.Append(errs, fmt.Errorf("theme: invalid color %q for %s", color, name))
			continue
		}

		parsed[element] = color
	}

	if errs != nil {
		return errs
	}

	maps.Copy(colors, parsed)

	return nil
}

// GetColor returns the color of the element.
func GetColor(element Context) tcell.Color {
	return tcell.GetColor(colors[element])
}

// ColorWrap wraps text in a tview color tag of the element. The attributes
// default to bold.
func ColorWrap(element Context, text string, attributes ...string) string {
	attr := "::b"
	if len(attributes) > 0 {
		attr = attributes[0]
	}

	return "[" + colors[element] + attr + "]" + text + "[-:-:-]"
}

// BackgroundColor returns black or white, whichever stays readable
// behind text in the element's color.
func BackgroundColor(element Context) tcell.Color {
	r, g, b := GetColor(element).RGB()

	// Perceived brightness, ITU-R BT.601 weights.
	if (r*299+g*587+b*114)/1000 > 130 {
		return tcell.ColorBlack
	}

	return tcell.ColorWhite
}
