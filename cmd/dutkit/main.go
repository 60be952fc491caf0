// Command dutkit runs hardware design entities across functional,
// gate-level and analog backends.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dutkit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dutkit:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
