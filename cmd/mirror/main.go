package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"mirror/internal/app"
	"mirror/internal/client"
	"mirror/internal/config"
	"mirror/internal/logging"
)

const usageText = `mirror is a live transcript viewer for mirrord sessions.

Usage:
  mirror <command> [flags]

Commands:
  ui       run the terminal UI (default)
  ps       list sessions
  new      create a session
  help     show help

Flags:
  -h, --help   show help
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnErr("ui", runUI(nil))
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	case "ps":
		exitOnErr("ps", runPS(args[1:]))
	case "new":
		exitOnErr("new", runNew(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func exitOnErr(command string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "mirror %s: %v\n", command, err)
	os.Exit(1)
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, closeLog := uiLogger(cfg)
	defer closeLog()

	return app.Run(cfg, logger)
}

// uiLogger writes to a file under the data dir; stderr belongs to the
// terminal UI.
func uiLogger(cfg config.Config) (logging.Logger, func()) {
	dataDir, err := config.DataDir()
	if err != nil {
		return logging.Nop(), func() {}
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return logging.Nop(), func() {}
	}
	logPath := filepath.Join(dataDir, "ui.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return logging.Nop(), func() {}
	}
	return logging.New(file, logging.ParseLevel(cfg.Logging.Level)), func() { _ = file.Close() }
}

func runPS(args []string) error {
	fs := flag.NewFlagSet("ps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMSGS\tREV\tFORKED FROM\tUPDATED")
	for _, info := range sessions {
		updated := ""
		if !info.UpdatedAt.IsZero() {
			updated = info.UpdatedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			info.ID, info.Title, info.Messages, info.Revision, info.ForkedFrom, updated)
	}
	return w.Flush()
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	title := fs.String("title", "", "session title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := c.CreateSession(ctx, *title)
	if err != nil {
		return err
	}
	fmt.Println(info.ID)
	return nil
}

func newClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.DaemonAddress())
}
