package main

import (
	"context"
	"fmt"
	"os"

	"treasury/internal/cli"
)

// main hands off to the cobra command tree; commands own their lifecycle.
func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
