// Command session-prune lists and removes stale session credential directories.
package main

import (
	"os"

	"github.com/jonboulle/clockwork"
)

func main() {
	if err := newRootCmd(clockwork.NewRealClock()).Execute(); err != nil {
		os.Exit(1)
	}
}
