package main

import (
	"github.com/awnumar/memguard"

	"github.com/jmcleod/focusflow/cmd/focusflow/cmd"
)

func main() {
	memguard.CatchInterrupt()
	memguard.SafeExit(cmd.Execute())
}
