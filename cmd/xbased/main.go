// Command xbased is the xbase daemon: it owns the Project Registry and
// exposes the Registration RPC control socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xbased",
	Short: "Build/run/watch daemon for Apple platform projects",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
