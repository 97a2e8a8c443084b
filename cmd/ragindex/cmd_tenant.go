package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/salesmind/ragindex/internal/config"
)

// handleTenant implements the tenant subcommand
func handleTenant(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("tenant", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    ragindex tenant create <name>
    ragindex tenant list

DESCRIPTION:
    Manage tenants. Every document, embedding, and index belongs to
    exactly one tenant; the public id printed here is the handle used
    by every other command.

EXAMPLES:
    # Create a tenant
    ragindex tenant create acme

    # List all tenants
    ragindex tenant list
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	ctx := context.Background()

	switch fs.Arg(0) {
	case "create":
		if fs.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "Error: tenant name is required\n\n")
			fs.Usage()
			os.Exit(1)
		}
		t, err := a.registry.Create(ctx, fs.Arg(1))
		if err != nil {
			log.Fatalf("Failed to create tenant: %v", err)
		}
		fmt.Printf("Created tenant %q\n", t.Name)
		fmt.Printf("  Public ID: %s\n", t.PublicID)

	case "list":
		tenants, err := a.registry.List(ctx)
		if err != nil {
			log.Fatalf("Failed to list tenants: %v", err)
		}
		if len(tenants) == 0 {
			fmt.Println("No tenants yet")
			return
		}
		for _, t := range tenants {
			docs, _ := a.documents.Count(ctx, t.ID)
			fmt.Printf("%s  %-20s  %d document(s)\n", t.PublicID, t.Name, docs)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown tenant action: %s\n\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}
}
