// Command castforge drives the content-production pipeline described by
// internal/registry's phase catalogues through internal/orchestrator.
package main

import (
	"os"

	"github.com/castforge/castforge/internal/cmdline"
)

func main() {
	os.Exit(cmdline.Execute())
}
