package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/salesmind/ragindex/internal/config"
	"github.com/salesmind/ragindex/internal/retrieval"
)

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var tenantRef string
	var topK int
	var vectorOnly, keywordBoost, jsonOutput, verbose bool

	fs.StringVar(&tenantRef, "tenant", "", "Tenant public id or name (required)")
	fs.IntVar(&topK, "k", 0, "Number of results to return")
	fs.BoolVar(&vectorOnly, "vector-only", false, "Use vector search only")
	fs.BoolVar(&keywordBoost, "hybrid", false, "Force hybrid keyword+vector search")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	fs.BoolVar(&verbose, "v", false, "Verbose output (show distances and scores)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    ragindex search -tenant <id-or-name> [options] "<query>"

DESCRIPTION:
    Retrieve the chunks most relevant to a natural language query from
    the tenant's active index. Results carry the source document id and
    chunk position for citation.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Natural language search
    ragindex search -tenant acme "house with a pool under 200k"

    # Get the top 10 results
    ragindex search -tenant acme -k 10 "payment terms"

    # JSON output for scripting
    ragindex search -tenant acme -json "warranty period"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := fs.Arg(0)

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	t, err := resolveTenant(ctx, a.registry, tenantRef)
	if err != nil {
		log.Fatalf("Failed to resolve tenant: %v", err)
	}

	if topK <= 0 {
		topK = cfg.Search.DefaultTopK
	}

	var results []retrieval.Result
	if !vectorOnly && (cfg.Search.EnableHybrid || keywordBoost) {
		opts := retrieval.SearchOptions{
			TopK:          topK,
			VectorWeight:  float64(cfg.Search.VectorWeight),
			KeywordWeight: float64(cfg.Search.KeywordWeight),
		}
		results, err = a.engine.SearchHybrid(ctx, t.ID, cfg.Search.IndexName, query, opts)
	} else {
		results, err = a.engine.Search(ctx, t.ID, cfg.Search.IndexName, query, topK)
	}
	if errors.Is(err, retrieval.ErrNoIndex) {
		fmt.Fprintf(os.Stderr, "Tenant %q has no index yet. Run 'ragindex index -tenant %s' first.\n", t.Name, t.Name)
		os.Exit(1)
	}
	if errors.Is(err, retrieval.ErrUnavailable) {
		fmt.Fprintf(os.Stderr, "Search is temporarily unavailable: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		outputJSON(results, query)
	} else {
		outputText(results, query, verbose)
	}
}

// outputText prints search results as human-readable text
func outputText(results []retrieval.Result, query string, verbose bool) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(results), query)

	for i, result := range results {
		fmt.Printf("%d. document %d, chunk %d\n", i+1, result.DocumentID, result.ChunkIndex)
		if verbose {
			fmt.Printf("   Distance: %.4f\n", result.Distance)
			fmt.Printf("   Score:    %.4f\n", result.Score)
		}

		text := result.ChunkText
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}
}

// outputJSON prints search results as JSON
func outputJSON(results []retrieval.Result, query string) {
	output := map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}

	fmt.Println(string(jsonData))
}
