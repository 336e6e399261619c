// Package main implements the node of the relay authorities of an EVM chain.
//
// Usage:
//
//	relayd --config relay.yaml start
//	relayd --config relay.yaml inspect
//	relayd --config relay.yaml call --origin alice --command REQUEST_AUTHORITY ...
//	relayd keygen
//	relayd sign --key <hex> --message <hex>
//
// The database is opened by one command at a time.
package main

import (
	"fmt"
	"io"
	"os"

	ucli "github.com/urfave/cli/v2"
)

var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
	}
}

func run(args []string) error {
	return newApp(os.Stdout).Run(args)
}

func newApp(out io.Writer) *ucli.App {
	a := action{out: out}

	return &ucli.App{
		Name:  "relayd",
		Usage: "run the relay authorities",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:   "start",
				Usage:  "start producing blocks",
				Action: a.start,
			},
			{
				Name:   "inspect",
				Usage:  "print the state of the relay authorities",
				Action: a.inspect,
			},
			{
				Name:  "call",
				Usage: "dispatch a call to the relay authorities",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "origin", Usage: "root or the account signing the call", Required: true},
					&ucli.StringFlag{Name: "command", Usage: "command of the call", Required: true},
					&ucli.Uint64Flag{Name: "stake", Usage: "stake of a request"},
					&ucli.StringFlag{Name: "signer", Usage: "address of the signer of a request"},
					&ucli.StringSliceFlag{Name: "account", Usage: "account to add or remove"},
					&ucli.Uint64Flag{Name: "block", Usage: "scheduled block of a signature"},
					&ucli.StringFlag{Name: "signature", Usage: "hexadecimal signature"},
				},
				Action: a.call,
			},
			{
				Name:   "keygen",
				Usage:  "generate a key of the external chain",
				Action: a.keygen,
			},
			{
				Name:  "sign",
				Usage: "sign a message with a key of the external chain",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "key", Usage: "hexadecimal private key", Required: true},
					&ucli.StringFlag{Name: "message", Usage: "hexadecimal message", Required: true},
				},
				Action: a.sign,
			},
		},
	}
}
