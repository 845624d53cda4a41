// Command flowlua replays packet streams through Lua detection rules with
// per-flow variables.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/flowlua/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flowlua:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
