package embedding

import (
	"context"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"docuquest/internal/config"
)

// maxEmbedChars caps the text sent to the embedding model per sentence.
const maxEmbedChars = 4000

// NewOllamaEmbedder creates an embedder backed by an ollama embedding model
func NewOllamaEmbedder(embedConfig *config.EmbedConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        embedConfig.BaseURL,
		"embedding_model": embedConfig.Model,
	}).Msg("Initializing embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(embedConfig.BaseURL),
		ollama.WithModel(embedConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewEmbeddingFunc adapts embedder to the function shape the sentence index
// expects. Long inputs are embedded by their first chunk only.
func NewEmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		chunks := chunkContent(text, maxEmbedChars)
		if len(chunks) == 0 {
			chunks = []string{text}
		}
		return embedder.EmbedQuery(ctx, chunks[0])
	}
}

func chunkContent(content string, maxChars int) []string {
	var chunks []string
	var chunk strings.Builder
	for _, word := range strings.Fields(content) {
		if chunk.Len() > 0 && chunk.Len()+len(word)+1 > maxChars {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
		}
		if chunk.Len() > 0 {
			chunk.WriteByte(' ')
		}
		chunk.WriteString(word)
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}
