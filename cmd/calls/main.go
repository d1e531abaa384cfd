package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/w-h-a/calls/internal/config"
)

var errNoWork = errors.New("nothing to do")

var cli struct {
	Config   string `help:"Path to the YAML configuration" default:"config/config.yaml" type:"path"`
	LogLevel string `help:"Minimum log level" default:"info" enum:"debug,info,warn,error"`

	Ingest   IngestCmd   `cmd:"" help:"Transcribe new recordings into call records"`
	Enrich   EnrichCmd   `cmd:"" help:"Compute missing analysis facets for every call record"`
	Index    IndexCmd    `cmd:"" help:"Embed transcripts into the vector index"`
	Search   SearchCmd   `cmd:"" help:"Find calls semantically similar to a query"`
	Pipeline PipelineCmd `cmd:"" name:"run" help:"Ingest, enrich and index in one pass"`
	Serve    ServeCmd    `cmd:"" help:"Serve the read API for the dashboard"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("calls"),
		kong.Description("Call recording analysis: transcription, enrichment and semantic search."),
		kong.UsageOnError(),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cli.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "path", cli.Config, "error", err)
		os.Exit(2)
	}

	if err := kctx.Run(&app{ctx: ctx, cfg: cfg}); err != nil {
		slog.ErrorContext(ctx, "command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrConfiguration):
		return 2
	case errors.Is(err, errNoWork):
		return 3
	default:
		return 1
	}
}
