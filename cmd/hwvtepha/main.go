// Command hwvtepha runs the hwvtep HA replication engine.
package main

import (
	"fmt"
	"os"

	"github.com/opendaylight/netvirt-sub025/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
