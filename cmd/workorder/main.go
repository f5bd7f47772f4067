// Command workorder is the conversational work order assistant.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/workorder-assistant/internal/adapters/driving/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
