package store

import "time"

// Tenant is the isolation boundary. Internal numeric ids scope every other
// row; the opaque public id is the only identifier exposed at system
// boundaries.
type Tenant struct {
	ID        int64
	PublicID  string
	Name      string
	CreatedAt time.Time
}

// Document holds raw uploaded content plus the text derived from it
type Document struct {
	ID            int64
	TenantID      int64
	Filename      string
	FileType      string // "pdf" | "txt" | "md" | ...
	FileSize      int64
	Content       []byte
	ExtractedText string
	ContentHash   string // sha256 hex over the raw bytes
	IsProcessed   bool
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

// Embedding is one chunk of a document's text with its vector
type Embedding struct {
	ID         int64
	TenantID   int64
	DocumentID int64
	ChunkText  string
	ChunkIndex int // position within the document, the citation key
	Vector     []byte
	Dimension  int
	Model      string
	CreatedAt  time.Time
}

// Index is a serialized similarity-search structure over a tenant's
// embeddings. Exactly one row per (tenant, name) is active at any time;
// rebuilds insert a new active row and retire the old one.
type Index struct {
	ID           int64
	TenantID     int64
	Name         string
	Data         []byte
	Metadata     string // JSON, includes the ordered embedding id list
	Dimension    int
	TotalVectors int
	IndexType    string
	IsActive     bool
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IndexMetadata is the JSON blob stored alongside a serialized index
type IndexMetadata struct {
	EmbeddingIDs []int64   `json:"embedding_ids"`
	Model        string    `json:"model"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	CreatedAt    time.Time `json:"created_at"`
}
