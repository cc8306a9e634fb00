package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/annko/keiba-bot-go/cmd/keiba/commands"
	"github.com/annko/keiba-bot-go/internal/app"
	"github.com/annko/keiba-bot-go/internal/config"
	"github.com/annko/keiba-bot-go/internal/util"
)

func open(ctx context.Context) (*commands.Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	// the bot's log level would drown table output
	logger, err := util.NewLogger("warn", "console", "")
	if err != nil {
		return nil, nil, err
	}

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	env := &commands.Env{Races: container.Races}
	if container.Archiver != nil {
		env.Archiver = container.Archiver
	}
	if container.Cache != nil {
		env.Cache = container.Cache
	}
	release := func() {
		container.Close()
		_ = logger.Sync()
	}
	return env, release, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx, open)
}
