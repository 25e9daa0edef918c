// Command sparkrelease builds the spark web release of a Lightning app.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lngkit/sparkrelease/pkg/cli"
	"github.com/lngkit/sparkrelease/pkg/release"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.NewOptions()
	opts.Version = version

	if err := cli.NewCLI(opts).ExecuteContext(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, release.Describe(err))
		stop()
		os.Exit(1)
	}
}
