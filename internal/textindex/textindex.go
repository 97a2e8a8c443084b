// Package textindex maintains per-tenant bleve keyword indexes over chunk
// text. It is the keyword side of hybrid retrieval; the vector path never
// depends on it.
package textindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// ChunkDoc is the indexed view of one embedded chunk
type ChunkDoc struct {
	EmbeddingID int64  `json:"-"`
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunk_index"`
}

// Hit is one keyword search result
type Hit struct {
	EmbeddingID int64
	Score       float64
}

// Manager creates, rebuilds, and queries tenant keyword indexes on disk
type Manager struct {
	dataDir string
}

// NewManager creates a manager rooted at dataDir
func NewManager(dataDir string) *Manager {
	return &Manager{dataDir: dataDir}
}

func (m *Manager) indexPath(tenantPublicID, name string) string {
	return filepath.Join(m.dataDir, "textindex", tenantPublicID, name)
}

// Rebuild recreates a tenant's keyword index from the full chunk set,
// mirroring the full-rebuild discipline of the vector index.
func (m *Manager) Rebuild(tenantPublicID, name string, docs []ChunkDoc) error {
	dir := m.indexPath(tenantPublicID, name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("reset text index dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create text index dir: %w", err)
	}

	index, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create bleve index: %w", err)
	}
	defer index.Close()

	batch := index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(strconv.FormatInt(doc.EmbeddingID, 10), doc); err != nil {
			return fmt.Errorf("index chunk %d: %w", doc.EmbeddingID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("commit text index batch: %w", err)
	}
	return nil
}

// Search runs a keyword match query against a tenant's index. A missing
// index yields no hits rather than an error so hybrid retrieval can degrade
// to pure vector scoring.
func (m *Manager) Search(tenantPublicID, name, query string, topK int) ([]Hit, error) {
	dir := m.indexPath(tenantPublicID, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	index, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	defer index.Close()

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK

	result, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{EmbeddingID: id, Score: hit.Score})
	}
	return hits, nil
}

// Remove deletes a tenant's keyword index from disk
func (m *Manager) Remove(tenantPublicID, name string) error {
	return os.RemoveAll(m.indexPath(tenantPublicID, name))
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	filenameField := bleve.NewTextFieldMapping()
	filenameField.Store = true
	filenameField.Index = true
	docMapping.AddFieldMappingsAt("filename", filenameField)

	chunkField := bleve.NewNumericFieldMapping()
	chunkField.Store = true
	chunkField.Index = false
	docMapping.AddFieldMappingsAt("chunk_index", chunkField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
