// Command navexpect runs browser navigation scenarios and checks the
// reported lifecycle events against their expected traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/navexpect/internal/cli"
	"github.com/roach88/navexpect/internal/ir"
)

func main() {
	root := cli.NewRootCommand()
	root.Version = ir.ToolVersion

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
