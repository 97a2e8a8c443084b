package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/salesmind/ragindex/internal/config"
	"github.com/salesmind/ragindex/internal/indexer"
)

// handleIndex implements the index subcommand
func handleIndex(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)

	var tenantRef string
	var all bool
	fs.StringVar(&tenantRef, "tenant", "", "Tenant public id or name")
	fs.BoolVar(&all, "all", false, "Rebuild indexes for every tenant")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    ragindex index -tenant <id-or-name>
    ragindex index -all

DESCRIPTION:
    Embed documents that have no embeddings yet, then rebuild the
    tenant's search index from the complete embedding set and activate
    it. Searches keep using the previous index until the new one is
    activated.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Embed and rebuild for one tenant
    ragindex index -tenant acme

    # Rebuild for every tenant
    ragindex index -all
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if tenantRef == "" && !all {
		fmt.Fprintf(os.Stderr, "Error: -tenant or -all is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	a.pipeline.SetProgress(indexer.NewEmbedProgress(indexer.DefaultProgressEnabled()))

	ctx := context.Background()
	startTime := time.Now()

	if all {
		tenants, err := a.registry.List(ctx)
		if err != nil {
			log.Fatalf("Failed to list tenants: %v", err)
		}
		for _, t := range tenants {
			indexTenant(ctx, a, t.ID, t.Name)
		}
		fmt.Printf("\nDone in %v\n", time.Since(startTime).Round(time.Millisecond))
		return
	}

	t, err := resolveTenant(ctx, a.registry, tenantRef)
	if err != nil {
		log.Fatalf("Failed to resolve tenant: %v", err)
	}
	indexTenant(ctx, a, t.ID, t.Name)
	fmt.Printf("\nDone in %v\n", time.Since(startTime).Round(time.Millisecond))
}

func indexTenant(ctx context.Context, a *app, tenantID int64, name string) {
	created, err := a.pipeline.EmbedAllDocuments(ctx, tenantID)
	if err != nil {
		log.Fatalf("Embedding failed for tenant %q: %v", name, err)
	}
	if created > 0 {
		fmt.Printf("Tenant %q: created %d embedding(s)\n", name, created)
	}

	idx, err := a.builder.BuildIndex(ctx, tenantID, a.cfg.Search.IndexName)
	if errors.Is(err, indexer.ErrNoEmbeddings) {
		fmt.Printf("Tenant %q: nothing to index yet\n", name)
		return
	}
	if err != nil {
		log.Fatalf("Index build failed for tenant %q: %v", name, err)
	}
	fmt.Printf("Tenant %q: index %q v%d active (%d vectors)\n",
		name, idx.Name, idx.Version, idx.TotalVectors)
}
