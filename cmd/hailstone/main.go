package main

import (
	"fmt"
	"os"

	"github.com/dustinober1/3x1-Project/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hailstone:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
