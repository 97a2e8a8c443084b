package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/salesmind/ragindex/internal/config"
)

// handlePrune implements the prune subcommand
func handlePrune(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)

	var tenantRef string
	var keep int
	fs.StringVar(&tenantRef, "tenant", "", "Tenant public id or name (required)")
	fs.IntVar(&keep, "keep", 2, "Retired index versions to keep")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    ragindex prune -tenant <id-or-name> [options]

DESCRIPTION:
    Delete retired index versions for a tenant, keeping the newest few
    for rollback. The active index is never pruned.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Keep the two newest retired versions
    ragindex prune -tenant acme

    # Drop all retired versions
    ragindex prune -tenant acme -keep 0
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
	t, err := resolveTenant(ctx, a.registry, tenantRef)
	if err != nil {
		log.Fatalf("Failed to resolve tenant: %v", err)
	}

	pruned, err := a.indexes.PruneInactive(ctx, t.ID, cfg.Search.IndexName, keep)
	if err != nil {
		log.Fatalf("Prune failed: %v", err)
	}
	fmt.Printf("Pruned %d retired index version(s) for tenant %q\n", pruned, t.Name)
}
