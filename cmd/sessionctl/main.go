package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bionicotaku/lingo-utils-sessionx/cmd/sessionctl/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
