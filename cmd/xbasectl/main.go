// Command xbasectl is the debug CLI for xbased's Registration RPC: register
// and unregister projects, and watch a project's live Broadcast feed.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var controlSocket string

var rootCmd = &cobra.Command{
	Use:   "xbasectl",
	Short: "Debug client for the xbase daemon's Registration RPC",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&controlSocket, "control-socket", filepath.Join(os.TempDir(), "xbase", "control.sock"), "path to the daemon's control socket")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
