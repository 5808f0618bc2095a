package main

import (
	"context"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/platinummonkey/resetd/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	rootCmd := cli.NewRootCommand(cli.Options{Version: version})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
