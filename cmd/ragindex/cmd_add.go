package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/salesmind/ragindex/cmd/ragindex/internal"
	"github.com/salesmind/ragindex/internal/config"
)

// handleAdd implements the add subcommand
func handleAdd(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)

	var tenantRef, folder string
	var patterns, exclude internal.StringList

	fs.StringVar(&tenantRef, "tenant", "", "Tenant public id or name (required)")
	fs.StringVar(&folder, "folder", "", "Ingest every matching file under this directory")
	fs.Var(&patterns, "pattern", "Glob to include during folder ingestion (repeatable)")
	fs.Var(&exclude, "exclude", "Glob to skip during folder ingestion (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    ragindex add -tenant <id-or-name> <file> [file...]
    ragindex add -tenant <id-or-name> -folder <dir> [options]

DESCRIPTION:
    Upload documents for a tenant. Identical bytes uploaded twice for
    the same tenant are stored once. Text is extracted on upload; run
    'ragindex index' afterwards to embed and make documents searchable.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Upload individual files
    ragindex add -tenant acme catalog.pdf notes.txt

    # Ingest a folder with default patterns
    ragindex add -tenant acme -folder ./docs

    # Ingest only markdown, skipping drafts
    ragindex add -tenant acme -folder ./docs -pattern "**/*.md" -exclude "drafts/**"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if folder == "" && fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one file or -folder is required\n\n")
		fs.Usage()
		os.Exit(1)
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

	added, deduped := 0, 0

	if folder != "" {
		include := []string(patterns)
		if len(include) == 0 {
			include = cfg.Ingest.Patterns
		}
		skip := []string(exclude)
		if len(skip) == 0 {
			skip = cfg.Ingest.Exclude
		}
		docs, err := a.docs.AddFromFolder(ctx, t.ID, folder, include, skip)
		if err != nil {
			log.Fatalf("Folder ingestion failed: %v", err)
		}
		added += len(docs)
	}

	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		doc, created, err := a.docs.AddDocument(ctx, t.ID, filepath.Base(path), content)
		if err != nil {
			log.Fatalf("Failed to add %s: %v", path, err)
		}
		if created {
			added++
		} else {
			deduped++
			fmt.Printf("Skipped %s: identical to existing document %q\n", path, doc.Filename)
		}
	}

	fmt.Printf("Added %d document(s) for tenant %q", added, t.Name)
	if deduped > 0 {
		fmt.Printf(" (%d duplicate(s) skipped)", deduped)
	}
	fmt.Println()
	fmt.Println("Run 'ragindex index -tenant", t.Name+"' to make them searchable.")
}
