// Command c4arch generates and edits C4 architecture diagrams from the
// terminal, or serves editing sessions over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err.Error())
		os.Exit(1)
	}
}
