package main

import (
	"os"

	"github.com/securedeploy/guardrail/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
