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
	"github.com/salesmind/ragindex/internal/store"
)

type tenantStats struct {
	Tenant       string `json:"tenant"`
	PublicID     string `json:"public_id"`
	Documents    int    `json:"documents"`
	Embeddings   int    `json:"embeddings"`
	IndexVersion int    `json:"index_version"`
	IndexVectors int    `json:"index_vectors"`
	HasIndex     bool   `json:"has_index"`
}

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)

	var tenantRef string
	var jsonOutput bool
	fs.StringVar(&tenantRef, "tenant", "", "Limit to one tenant")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    ragindex stats [options]

DESCRIPTION:
    Show document, embedding, and index statistics per tenant.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # All tenants
    ragindex stats

    # One tenant, as JSON
    ragindex stats -tenant acme -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	ctx := context.Background()

	var tenants []*store.Tenant
	if tenantRef != "" {
		t, err := resolveTenant(ctx, a.registry, tenantRef)
		if err != nil {
			log.Fatalf("Failed to resolve tenant: %v", err)
		}
		tenants = []*store.Tenant{t}
	} else {
		tenants, err = a.registry.List(ctx)
		if err != nil {
			log.Fatalf("Failed to list tenants: %v", err)
		}
	}

	stats := make([]tenantStats, 0, len(tenants))
	for _, t := range tenants {
		docs, _ := a.documents.Count(ctx, t.ID)
		embs, _ := a.embeddings.CountByTenant(ctx, t.ID)

		row := tenantStats{
			Tenant:     t.Name,
			PublicID:   t.PublicID,
			Documents:  docs,
			Embeddings: embs,
		}
		idx, err := a.indexes.GetActive(ctx, t.ID, cfg.Search.IndexName)
		if err == nil {
			row.HasIndex = true
			row.IndexVersion = idx.Version
			row.IndexVectors = idx.TotalVectors
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("failed to read index for tenant %q: %v", t.Name, err)
		}
		stats = append(stats, row)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(stats) == 0 {
		fmt.Println("No tenants yet")
		return
	}
	for _, row := range stats {
		fmt.Printf("Tenant %q (%s)\n", row.Tenant, row.PublicID)
		fmt.Printf("  Documents:  %6d\n", row.Documents)
		fmt.Printf("  Embeddings: %6d\n", row.Embeddings)
		if row.HasIndex {
			fmt.Printf("  Index:      v%d, %d vector(s)\n", row.IndexVersion, row.IndexVectors)
		} else {
			fmt.Printf("  Index:      none\n")
		}
		fmt.Println()
	}
}
