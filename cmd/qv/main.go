// Command qv compiles entity declarations into OPENJSON fragments and
// serializes rows into their payloads.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/queryvalues/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
