//go:build windows

package app

import "github.com/gdamore/tcell/v2"

// suspendScreen does nothing, job control is unavailable.
func suspendScreen(tcell.Screen) {}
