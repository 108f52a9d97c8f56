package root

import (
	"context"

	"go.uber.org/zap"

	"caseline/internal/app"
	"caseline/internal/config"
)

func openApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var log *zap.Logger
	if cfg.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		_ = a.Close()
		_ = log.Sync()
	}
	return a, cleanup, nil
}
