package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// SentenceIndex keeps one in-memory collection of sentence embeddings per
// document. Collections live as long as the process.
type SentenceIndex struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// NewSentenceIndex initializes an empty in-memory index using embed for
// both documents and queries.
func NewSentenceIndex(embed chromem.EmbeddingFunc) *SentenceIndex {
	return &SentenceIndex{
		db:    chromem.NewDB(),
		embed: embed,
	}
}

// Has reports whether documentID has been indexed.
func (m *SentenceIndex) Has(documentID string) bool {
	c := m.db.GetCollection(documentID, m.embed)
	return c != nil && c.Count() > 0
}

// AddSentences embeds sentences into the collection for documentID. A
// document that is already indexed is left as is.
func (m *SentenceIndex) AddSentences(ctx context.Context, documentID string, sentences []string) error {
	c, err := m.db.GetOrCreateCollection(documentID, nil, m.embed)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	if c.Count() > 0 || len(sentences) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(sentences))
	for i, sentence := range sentences {
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s-%d", documentID, i),
			Content:  sentence,
			Metadata: map[string]string{"position": strconv.Itoa(i)},
		})
	}

	log.Debug().Str("document_id", documentID).Msgf("Indexing %d sentences", len(docs))
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add sentences: %w", err)
	}
	return nil
}

// Nearest returns up to n sentences of documentID most similar to query,
// best match first.
func (m *SentenceIndex) Nearest(ctx context.Context, documentID, query string, n int) ([]string, error) {
	if query == "" {
		return nil, fmt.Errorf("query must be provided")
	}
	c := m.db.GetCollection(documentID, m.embed)
	if c == nil {
		return nil, fmt.Errorf("document %s is not indexed", documentID)
	}

	n = min(n, c.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := c.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	sentences := make([]string, 0, len(results))
	for _, r := range results {
		sentences = append(sentences, r.Content)
	}
	return sentences, nil
}

// Delete drops the collection for documentID.
func (m *SentenceIndex) Delete(documentID string) error {
	if err := m.db.DeleteCollection(documentID); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}
