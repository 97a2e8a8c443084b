package internal

import (
	"fmt"
	"os"
	"strings"
)

const Version = "0.3.1"

// PrintUsage prints the top-level usage and subcommand list to stderr
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `ragindex - Multi-Tenant Document Retrieval Backend

Version: %s

USAGE:
    ragindex [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.ragindex/config/ragindex.yaml)

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    tenant
        Create and list tenants

    add
        Upload documents or ingest a folder for a tenant

    index
        Embed pending documents and rebuild the tenant's search index

    search
        Retrieve the most relevant chunks for a natural language query

    stats
        Show per-tenant document, embedding, and index statistics

    prune
        Remove retired index versions

EXAMPLES:
    # Create a tenant
    ragindex tenant create acme

    # Upload documents
    ragindex add -tenant acme catalog.pdf notes.txt

    # Ingest a folder
    ragindex add -tenant acme -folder ./docs

    # Embed and build the index
    ragindex index -tenant acme

    # Search
    ragindex search -tenant acme "house with a pool under 200k"

    # Statistics
    ragindex stats -tenant acme

For detailed help on each command, use:
    ragindex <command> -help
`, Version)
}

// StringList is a flag.Value that collects repeated string flags
type StringList []string

func (s *StringList) String() string {
	return strings.Join(*s, ",")
}

func (s *StringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
