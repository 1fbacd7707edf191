// Command shelfsync reconciles the bookseller's inventory across the FTP
// feed drop, the inventory database, and the eBay marketplace.
package main

import "github.com/bookbridge/shelfsync/cmd/shelfsync/cmd"

// Version information set by the build system.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
