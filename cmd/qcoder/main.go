// qcoder encodes, decodes, sends and captures V2X messages.
//
// Usage:
//
//	qcoder <command> [flags]
//
// Commands:
//
//	encode   build a frame from the configured headers and a hex payload
//	decode   decode hex frames
//	send     encode and transmit messages over the configured channel
//	listen   receive, decode and optionally capture messages
//	replay   decode, import or retransmit a capture file
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"encode", "build a frame from the configured headers and a hex payload", runEncode},
	{"decode", "decode hex frames", runDecode},
	{"send", "encode and transmit messages over the configured channel", runSend},
	{"listen", "receive, decode and optionally capture messages", runListen},
	{"replay", "decode, import or retransmit a capture file", runReplay},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			err := c.run(args[1:])
			if errors.Is(err, pflag.ErrHelp) {
				return nil
			}
			return err
		}
	}
	printUsage()
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "qcoder encodes, decodes, sends and captures V2X messages.\n\nUsage:\n  qcoder <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'qcoder <command> --help' for command flags.\n")
}
