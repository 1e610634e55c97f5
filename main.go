package main

import (
	"os"

	"github.com/darkhz/bleconnmgr/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
