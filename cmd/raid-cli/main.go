// Command raid-cli is a thin demo client for the Raid protocol: connect
// to a server, issue a single request, print the response. Grounded on
// the teacher's cmd/dittofs layout (a root cobra.Command wired up in
// commands.Execute, called from a minimal main.go).
package main

import (
	"fmt"
	"os"

	"github.com/glhrmfrts/raid-go/cmd/raid-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
