// Command mmrag is the multimodal RAG command line tool.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/mmrag/internal/bootstrap"
)

func main() {
	cli.SetLoader(load)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func load(ctx context.Context, opts cli.LoadOptions) (*cli.Services, error) {
	bopts := bootstrap.Options{
		DataDir:    opts.DataDir,
		ConfigPath: opts.ConfigPath,
	}

	if opts.SettingsOnly {
		settings, _, err := bootstrap.Settings(bopts)
		if err != nil {
			return nil, err
		}
		return &cli.Services{Settings: settings}, nil
	}

	app, err := bootstrap.Build(ctx, bopts)
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Settings:   app.SettingsService,
		Ingest:     app.Pipeline,
		Queue:      app.Queue,
		Retrieval:  app.Retriever,
		Answer:     app.Answers,
		Status:     app.Status,
		Files:      app.Finder,
		Metrics:    app.Metrics.Handler(),
		RawDataDir: app.Settings.Paths.RawData,
		ServerAddr: app.Settings.Server.Addr,
		Close:      app.Close,
	}, nil
}
