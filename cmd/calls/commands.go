package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/w-h-a/calls"
	"github.com/w-h-a/calls/internal/config"
	handler "github.com/w-h-a/calls/internal/handler/http"
	"github.com/w-h-a/calls/internal/service/enrich"
	"github.com/w-h-a/calls/internal/service/ingest"
	"github.com/w-h-a/calls/internal/service/search"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/server"
	httpserver "github.com/w-h-a/calls/server/http"
)

const previewSize = 200

type app struct {
	ctx context.Context
	cfg config.Config
}

type need int

const (
	needGenerator need = 1 << iota
	needTranscriber
	needSearch
)

// build assembles the facade with only the providers a command uses, so a
// command never asks for credentials it does not need.
func (a *app) build(needs need) (*calls.Calls, error) {
	opts := calls.ConfigOptions(a.cfg)

	if needs&needGenerator != 0 {
		gen, err := calls.NewGenerator(a.cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, calls.WithGenerator(gen))
	}

	if needs&needTranscriber != 0 {
		t, err := calls.NewTranscriber(a.cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, calls.WithTranscriber(t, a.cfg.RecordingsDir, calls.IngestOptions(a.cfg)...))
	}

	if needs&needSearch != 0 {
		e, err := calls.NewEmbedder(a.cfg)
		if err != nil {
			return nil, err
		}
		idx, err := calls.NewIndex(a.cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, calls.WithEmbedder(e), calls.WithIndex(idx))
	}

	return calls.New(calls.NewStore(a.cfg), opts...), nil
}

func (a *app) requireRecords(c *calls.Calls) error {
	ids, err := c.RecordIDs(a.ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no call records in %s", errNoWork, a.cfg.StoreLocation())
	}
	return nil
}

type IngestCmd struct {
	Watch bool `help:"Keep running and ingest recordings as they appear"`
}

func (cmd *IngestCmd) Run(a *app) error {
	c, err := a.build(needTranscriber)
	if err != nil {
		return err
	}

	if cmd.Watch {
		return c.Watch(a.ctx, printIngest)
	}

	summary, err := c.Ingest(a.ctx)
	if err != nil {
		return err
	}

	printIngest(summary)

	if summary.Discovered == 0 {
		return fmt.Errorf("%w: no .wav or .mp3 recordings in %s", errNoWork, a.cfg.RecordingsDir)
	}

	return nil
}

type EnrichCmd struct {
	Stage []string `help:"Facets to compute (repeatable); all five when omitted"`
}

func (cmd *EnrichCmd) Run(a *app) error {
	facets := make([]record.Facet, 0, len(cmd.Stage))
	for _, s := range cmd.Stage {
		f, err := record.ParseFacet(s)
		if err != nil {
			return err
		}
		facets = append(facets, f)
	}

	c, err := a.build(needGenerator)
	if err != nil {
		return err
	}

	if err := a.requireRecords(c); err != nil {
		return err
	}

	summaries, err := c.Enrich(a.ctx, facets...)
	printEnrich(summaries)

	return err
}

type IndexCmd struct{}

func (cmd *IndexCmd) Run(a *app) error {
	c, err := a.build(needSearch)
	if err != nil {
		return err
	}

	if err := a.requireRecords(c); err != nil {
		return err
	}

	summary, err := c.BuildIndex(a.ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d call(s), skipped %d with empty transcripts\n", summary.Indexed, summary.SkippedEmpty)

	return nil
}

type SearchCmd struct {
	Query     []string `arg:"" help:"Free-text query"`
	K         int      `short:"k" help:"Number of results" default:"5"`
	RiskLevel string   `help:"Only calls with this risk level"`
	Sentiment string   `help:"Only calls with this overall sentiment"`
	Intent    string   `help:"Only calls with this primary intent"`
}

func (cmd *SearchCmd) Run(a *app) error {
	c, err := a.build(needSearch)
	if err != nil {
		return err
	}

	filter := map[string]any{}
	if len(cmd.RiskLevel) > 0 {
		filter["risk_level"] = cmd.RiskLevel
	}
	if len(cmd.Sentiment) > 0 {
		filter["sentiment_label"] = cmd.Sentiment
	}
	if len(cmd.Intent) > 0 {
		filter["primary_intent"] = cmd.Intent
	}

	var opts []search.Option
	if len(filter) > 0 {
		opts = append(opts, search.WithFilter(filter))
	}

	query := strings.Join(cmd.Query, " ")

	fmt.Printf("Searching for: %q\n", query)

	matches, err := c.Search(a.ctx, query, cmd.K, opts...)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("No results.")
		return nil
	}

	fmt.Printf("\nTop %d result(s):\n\n", len(matches))

	for i, m := range matches {
		fmt.Printf("Result %d:\n", i+1)
		fmt.Printf("  call_id       : %v\n", m.ID)
		fmt.Printf("  client_id     : %v\n", field(m.Metadata, "client_id"))
		fmt.Printf("  sentiment     : %v\n", field(m.Metadata, "sentiment_label"))
		fmt.Printf("  primary_intent: %v\n", field(m.Metadata, "primary_intent"))
		fmt.Printf("  risk_level    : %v\n", field(m.Metadata, "risk_level"))
		fmt.Printf("  quality_score : %v\n", field(m.Metadata, "quality_score"))
		fmt.Printf("  distance      : %.4f\n", m.Distance)
		fmt.Printf("  text          : %s\n", search.Preview(m.Text, previewSize))
		fmt.Println(strings.Repeat("-", 60))
	}

	return nil
}

type PipelineCmd struct{}

func (cmd *PipelineCmd) Run(a *app) error {
	c, err := a.build(needGenerator | needTranscriber | needSearch)
	if err != nil {
		return err
	}

	fmt.Println("=== Call analysis: full pipeline ===")
	fmt.Printf("Client ID: %s\nRecordings dir: %s\nStore: %s (%s)\nOracle: %s/%s\n",
		a.cfg.ClientID, a.cfg.RecordingsDir, a.cfg.Store.Provider, a.cfg.StoreLocation(), a.cfg.Oracle.Provider, a.cfg.Oracle.Model)

	fmt.Println("\n[1/3] Ingesting recordings...")
	ingested, err := c.Ingest(a.ctx)
	if err != nil {
		return err
	}
	printIngest(ingested)

	if ingested.Discovered == 0 {
		return fmt.Errorf("%w: no .wav or .mp3 recordings in %s", errNoWork, a.cfg.RecordingsDir)
	}

	fmt.Println("\n[2/3] Running analysis stages...")
	summaries, err := c.Enrich(a.ctx)
	printEnrich(summaries)
	if err != nil {
		return err
	}

	fmt.Println("\n[3/3] Building the search index...")
	built, err := c.BuildIndex(a.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d call(s), skipped %d with empty transcripts\n", built.Indexed, built.SkippedEmpty)

	fmt.Println("\nDone.")

	return nil
}

type ServeCmd struct {
	Address string `help:"Listen address; overrides server.address"`
}

func (cmd *ServeCmd) Run(a *app) error {
	c, err := a.build(needSearch)
	if err != nil {
		return err
	}

	addr := a.cfg.Server.Address
	if len(cmd.Address) > 0 {
		addr = cmd.Address
	}

	srv := httpserver.NewServer(
		server.WithName("calls"),
		server.WithAddress(addr),
		httpserver.WithMiddleware(handler.LogRequests),
	)

	if err := srv.Handle(c.Handler()); err != nil {
		return err
	}

	return srv.Run(a.ctx)
}

func printIngest(s ingest.Summary) {
	fmt.Printf("Recordings: %d discovered, %d ingested, %d already stored, %d failed\n",
		s.Discovered, s.Ingested, s.Existing, s.Failed)
}

func printEnrich(summaries []enrich.Summary) {
	for _, s := range summaries {
		fmt.Println(s.String())
		for _, f := range s.Failures {
			fmt.Printf("  - %s [%s] %s\n", f.CallID, f.Kind, f.Reason)
		}
	}
}

func field(m map[string]any, key string) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return "-"
}
