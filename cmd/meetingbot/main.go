package main

import (
	"fmt"
	"os"

	"github.com/anemonautas/meetingbot/config"
	"github.com/anemonautas/meetingbot/internal/app"
	"github.com/anemonautas/meetingbot/internal/cli"
	"github.com/anemonautas/meetingbot/internal/logging"
	"github.com/anemonautas/meetingbot/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}
	defer application.Close()
	application.Record.Exit = func(code int) {
		_ = application.Close()
		os.Exit(code)
	}

	deps := &cli.Dependencies{
		App:    application,
		Config: cfg,
	}

	return cli.NewRootCmd(deps).Execute()
}
