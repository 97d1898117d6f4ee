package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// historyDocument is the indexed form of a history entry. The document ID
// is the query.
type historyDocument struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Sources   string    `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

// historyIndex is an in-memory full-text index over one session's history.
type historyIndex struct {
	index bleve.Index
}

func newHistoryIndex() (*historyIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}
	return &historyIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	docMapping.AddFieldMappingsAt("query", textFieldMapping)
	docMapping.AddFieldMappingsAt("answer", textFieldMapping)
	docMapping.AddFieldMappingsAt("sources", textFieldMapping)
	docMapping.AddFieldMappingsAt("timestamp", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

func document(e HistoryEntry) historyDocument {
	doc := historyDocument{Query: e.Query, Timestamp: e.Timestamp}
	if e.Result != nil {
		doc.Answer = e.Result.Answer
		doc.Sources = strings.Join(e.Result.SourceNames(), " ")
	}
	return doc
}

// update indexes e and drops evicted in one batch, so a failure leaves the
// index as it was.
func (h *historyIndex) update(e HistoryEntry, evicted []HistoryEntry) error {
	b := h.index.NewBatch()
	if err := b.Index(e.Query, document(e)); err != nil {
		return fmt.Errorf("failed to index history entry: %w", err)
	}
	for _, old := range evicted {
		b.Delete(old.Query)
	}
	if err := h.index.Batch(b); err != nil {
		return fmt.Errorf("failed to update history index: %w", err)
	}
	return nil
}

// search returns the IDs of documents matching term.
func (h *historyIndex) search(term string, limit int) (map[string]bool, error) {
	if limit <= 0 {
		return map[string]bool{}, nil
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(term))
	req.Size = limit

	res, err := h.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("history search failed: %w", err)
	}
	ids := make(map[string]bool, len(res.Hits))
	for _, hit := range res.Hits {
		ids[hit.ID] = true
	}
	return ids, nil
}

func (h *historyIndex) close() error {
	return h.index.Close()
}
