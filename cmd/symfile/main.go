// Command symfile attaches external debug symbol files to binaries after
// verifying their unique build identifiers.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
