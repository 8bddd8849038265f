// swapctl is the control-plane client for swapd, mirroring lncli's
// cli.App structure but talking to swapd's bare REST facade
// (internal/httpapi) over plain HTTP instead of lncli's TLS+macaroon
// gRPC channel — there is no auth layer to thread through here.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[swapctl] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "swapctl"
	app.Version = "0.1"
	app.Usage = "control plane for swapd, the atomic swap node"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "apiaddr",
			Value: "http://localhost:8213",
			Usage: "base URL of swapd's REST API",
		},
	}
	app.Commands = []cli.Command{
		getInfoCommand,
		listOrdersCommand,
		listSwapsCommand,
		proposeSwapCommand,
		swapStatusCommand,
		declineSwapCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
