package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xbase-lab/xbase/internal/control"
)

var registerCmd = &cobra.Command{
	Use:   "register <project-root>",
	Short: "Register a project root with the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		client, err := control.Dial(controlSocket)
		if err != nil {
			return err
		}
		defer client.Close()

		addr, err := client.Register(root)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister <project-root>",
	Short: "Unregister a project root from the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		client, err := control.Dial(controlSocket)
		if err != nil {
			return err
		}
		defer client.Close()

		return client.Unregister(root)
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
}
