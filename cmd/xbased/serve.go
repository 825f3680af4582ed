package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xbase-lab/xbase/internal/config"
	"github.com/xbase-lab/xbase/internal/control"
	"github.com/xbase-lab/xbase/internal/registry"
	"github.com/xbase-lab/xbase/internal/xlog"
)

var (
	serveSocketDir     string
	serveControlSocket string
	serveLogFile       string
	serveLogToStdout   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the daemon: Project Registry + Registration RPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Fall back to .xbaserc for unset flags.
		rc := config.ReadRC()
		if serveSocketDir == "" && rc["SOCKET_DIR"] != "" {
			serveSocketDir = rc["SOCKET_DIR"]
		}
		if serveControlSocket == "" && rc["CONTROL_SOCKET"] != "" {
			serveControlSocket = rc["CONTROL_SOCKET"]
		}

		store, storeErr := config.NewConfigStore()
		if serveSocketDir == "" && storeErr == nil {
			if def, _ := store.GetDefault(); def != "" {
				serveSocketDir = def
			}
		}
		if serveSocketDir == "" {
			serveSocketDir = filepath.Join(os.TempDir(), "xbase")
		}
		if serveControlSocket == "" {
			serveControlSocket = filepath.Join(serveSocketDir, "control.sock")
		}

		logger, closeLog, err := xlog.Setup(serveLogFile, slog.LevelInfo, serveLogToStdout)
		if err != nil {
			return err
		}
		defer closeLog()

		reg := registry.New(serveSocketDir)
		if storeErr == nil {
			if window, _ := store.GetDefaultDebounceWindow(); window > 0 {
				reg.SetDebounceWindow(window)
			}
		}
		server := control.NewServer(reg, serveControlSocket)
		if err := server.Listen(); err != nil {
			return err
		}
		logger.Info("xbased listening", "control_socket", serveControlSocket, "socket_dir", serveSocketDir)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		logger.Info("xbased shutting down")
		return server.Shutdown()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSocketDir, "socket-dir", "", "directory for per-project broadcast sockets (default: $TMPDIR/xbase, or .xbaserc SOCKET_DIR)")
	serveCmd.Flags().StringVar(&serveControlSocket, "control-socket", "", "path for the Registration RPC control socket (default: <socket-dir>/control.sock)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", filepath.Join(os.TempDir(), "xbased.log"), "daemon log file path")
	serveCmd.Flags().BoolVar(&serveLogToStdout, "log-stdout", false, "also write logs to stdout")
	rootCmd.AddCommand(serveCmd)
}
