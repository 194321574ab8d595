// Command backintime is the CLI entry point: it wires the cli package's
// App onto a kingpin.Application and runs it.
//
// Grounded on kopia's cmd/kopia/main.go (github.com/kopia/kopia/cmd/kopia),
// which is similarly a thin kingpin.MustParse driver over cli.App.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/mscherer/backintime/cli"
)

func main() {
	app := kingpin.New("backintime", "incremental file backup via rsync hardlink snapshots")

	a := cli.NewApp()
	a.Attach(app)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "backintime: %v\n", err)
		os.Exit(1)
	}
}
