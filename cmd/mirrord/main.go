package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mirror/internal/config"
	"mirror/internal/daemon"
	"mirror/internal/logging"
)

const version = "dev"

const usageText = `mirrord serves revision-stamped session transcripts.

Usage:
  mirrord [flags]

Flags:
  --address addr   listen address (default from config)
  --background     log to the data dir instead of stderr
  -h, --help       show help
`

func main() {
	fs := flag.NewFlagSet("mirrord", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	address := fs.String("address", "", "listen address")
	background := fs.Bool("background", false, "log to the data dir instead of stderr")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	if err := run(*address, *background); err != nil {
		fmt.Fprintf(os.Stderr, "mirrord: %v\n", err)
		os.Exit(1)
	}
}

func run(address string, background bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if address == "" {
		address = cfg.DaemonAddress()
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}

	logOut, closeLog, err := logOutput(background)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := logging.New(logOut, logging.ParseLevel(cfg.Logging.Level))

	tokenPath, err := config.TokenPath()
	if err != nil {
		return err
	}
	token, err := daemon.LoadOrCreateToken(tokenPath)
	if err != nil {
		return err
	}

	manager := daemon.NewSessionManager(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(address, token, version, manager, logger)
	return d.Run(ctx)
}

func logOutput(background bool) (io.Writer, func(), error) {
	if !background {
		return os.Stderr, func() {}, nil
	}
	logPath, err := config.DaemonLogPath()
	if err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}
