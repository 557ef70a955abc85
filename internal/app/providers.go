package app

import (
	"context"

	"tradesim/internal/config"
)

func provideAppBuilder(cfg *config.Config, watcher *config.Watcher) *AppBuilder {
	return NewAppBuilder(cfg, watcher)
}

func provideAppFromBuilder(ctx context.Context, b *AppBuilder) (*App, error) {
	return b.Build(ctx)
}
