package theme

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestParseThemeConfig(t *testing.T) {
	saved := colors[ThemeAcceptList]
	t.Cleanup(func() { colors[ThemeAcceptList] = saved })

	require.NoError(t, ParseThemeConfig(map[string]string{"AcceptList": "blue"}))
	assert.Equal(t, tcell.GetColor("blue"), GetColor(ThemeAcceptList))
	assert.Equal(t, "[blue::b]peer[-:-:-]", ColorWrap(ThemeAcceptList, "peer"))
	assert.Equal(t, "[blue::bu]peer[-:-:-]", ColorWrap(ThemeAcceptList, "peer", "::bu"))
}

func TestParseThemeConfigInvalid(t *testing.T) {
	err := ParseThemeConfig(map[string]string{
		"AcceptList": "notacolor",
		"Adapter":    "blue",
		"Direct":     "red",
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)

	// A rejected configuration applies nothing.
	assert.Equal(t, "orange", colors[ThemeDirect])
}

func TestBackgroundColor(t *testing.T) {
	saved := colors[ThemeText]
	t.Cleanup(func() { colors[ThemeText] = saved })

	colors[ThemeText] = "white"
	assert.Equal(t, tcell.ColorBlack, BackgroundColor(ThemeText))

	colors[ThemeText] = "navy"
	assert.Equal(t, tcell.ColorWhite, BackgroundColor(ThemeText))
}
