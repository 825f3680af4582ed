package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/control"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <project-root>",
	Short: "Register a project and render its live Broadcast feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	client, err := control.Dial(controlSocket)
	if err != nil {
		return err
	}
	addr, err := client.Register(root)
	client.Close()
	if err != nil {
		return err
	}

	conn, err := net.Dial("unix", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	app := tview.NewApplication()
	feed := tview.NewTextView().
		SetDynamicColors(true).
		SetChangedFunc(func() { app.Draw() })
	feed.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", root))

	go streamBroadcast(app, feed, conn)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(feed, true).Run()
}

// streamBroadcast reads newline-delimited Messages from conn and appends a
// rendered line to feed for each one, until the connection closes.
func streamBroadcast(app *tview.Application, feed *tview.TextView, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg broadcast.Message
		line := scanner.Bytes()
		if err := json.Unmarshal(line, &msg); err != nil {
			app.QueueUpdateDraw(func() {
				fmt.Fprintf(feed, "[red]unparseable: %s[-]\n", line)
			})
			continue
		}
		rendered := renderMessage(msg)
		app.QueueUpdateDraw(func() {
			fmt.Fprintln(feed, rendered)
		})
	}
}

func renderMessage(msg broadcast.Message) string {
	switch {
	case msg.IsNotify():
		return fmt.Sprintf("[%s]notify[-] %s", levelColor(msg.Level()), msg.Text())
	case msg.IsLog():
		return fmt.Sprintf("[%s]log[-]    %s", levelColor(msg.Level()), msg.Text())
	default:
		return "[yellow]execute[-]"
	}
}

func levelColor(level broadcast.MessageLevel) string {
	switch level {
	case broadcast.LevelError:
		return "red"
	case broadcast.LevelWarn:
		return "yellow"
	case broadcast.LevelSuccess:
		return "green"
	default:
		return "white"
	}
}
