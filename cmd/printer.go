package cmd

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault/fmsg"
	"github.com/fatih/color"
	"go.uber.org/multierr"

	"github.com/darkhz/bleconnmgr/errorkinds"
	"github.com/darkhz/bleconnmgr/scenario"
)

// printInfo prints an informational message to the screen.
func printInfo(message string) {
	message = "[*] " + message

	color.New(color.FgCyan, color.Bold).Println(message)
}

// printWarn prints a warning to the screen.
func printWarn(message string) {
	message = "[-] " + message

	color.New(color.FgYellow, color.Bold).Println(message)
}

// printError prints an error to the screen.
// Combined errors are printed one per line.
func printError(err error) {
	for _, e := range multierr.Errors(unwrapGeneric(err)) {
		message := "[!] " + e.Error()
		if issue := fmsg.GetIssue(e); issue != "" {
			message = "[!] " + issue + " (" + e.Error() + ")"
		}

		color.New(color.FgRed, color.Bold).Println(message)
	}
}

// printStep prints the result of a scenario step.
func printStep(index int, step scenario.Step, err error, quiet bool) {
	prefix := fmt.Sprintf("#%-3d ", index)

	switch {
	case err == nil && !step.Fail:
		if !quiet {
			color.New(color.FgGreen).Println(prefix + step.String())
		}

	case err != nil && step.Fail:
		if !quiet {
			printWarn(prefix + step.String() + ": " + err.Error())
		}

	default:
		msg := "succeeded unexpectedly"
		if err != nil {
			msg = err.Error()
		}

		color.New(color.FgRed, color.Bold).Println("[!] " + prefix + step.String() + ": " + msg)
	}
}

// unwrapGeneric returns the combined errors of a generic error.
func unwrapGeneric(err error) error {
	var generic errorkinds.GenericError
	if errors.As(err, &generic) {
		return generic.Errors
	}

	return err
}
