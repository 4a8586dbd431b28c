// Starvectl is the operator client for a DHCP address-exhaustion lab
// service.
//
// The lab service does the packet-level work; starvectl picks the network
// interface, discovers the DHCP server, starts and stops the attack, shows
// the acquired leases as they arrive and gives them back, one at a time or
// all at once.
//
// Usage:
//
//	starvectl [command] [flags]
//
// Running without arguments launches the interactive console.
// See 'starvectl --help' for available commands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
