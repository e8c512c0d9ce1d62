// Command inkwell is the CLI for managing an inkwell event store:
// initializing the schema, importing legacy notes, and operating the
// projections that derive read models from the event log.
package main

import (
	"os"

	"github.com/inkwell-notes/inkwell/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
