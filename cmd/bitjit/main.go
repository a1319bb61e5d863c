// Command bitjit indexes a YAML document file and runs boolean queries
// against it with the compiled query engine.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
