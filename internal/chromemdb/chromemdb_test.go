package chromemdb

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// letterEmbedding maps text to normalized-ish letter frequencies, enough for
// lexical overlap to dominate similarity.
func letterEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 27)
	vec[26] = 0.01
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

var sentences = []string{
	"Kubernetes schedules containers onto nodes.",
	"Prometheus scrapes metrics from exporters.",
	"Zzz zzz zzz buzz fuzz jazz.",
}

func TestAddSentencesAndNearest(t *testing.T) {
	ctx := context.Background()
	index := NewSentenceIndex(letterEmbedding)

	assert.False(t, index.Has("doc1"))
	require.NoError(t, index.AddSentences(ctx, "doc1", sentences))
	assert.True(t, index.Has("doc1"))

	got, err := index.Nearest(ctx, "doc1", "zzz jazz buzz", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{sentences[2]}, got)

	all, err := index.Nearest(ctx, "doc1", "metrics", 10)
	require.NoError(t, err)
	assert.Len(t, all, len(sentences))
}

func TestAddSentencesIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	embed := func(ctx context.Context, text string) ([]float32, error) {
		calls.Add(1)
		return letterEmbedding(ctx, text)
	}
	index := NewSentenceIndex(embed)

	require.NoError(t, index.AddSentences(context.Background(), "doc1", sentences))
	require.NoError(t, index.AddSentences(context.Background(), "doc1", sentences))

	assert.Equal(t, int32(len(sentences)), calls.Load())
}

func TestNearestUnknownDocument(t *testing.T) {
	index := NewSentenceIndex(letterEmbedding)

	_, err := index.Nearest(context.Background(), "missing", "query", 3)
	assert.Error(t, err)
}

func TestAddSentencesEmbeddingError(t *testing.T) {
	boom := errors.New("embedding backend down")
	index := NewSentenceIndex(func(context.Context, string) ([]float32, error) {
		return nil, boom
	})

	err := index.AddSentences(context.Background(), "doc1", sentences)
	assert.ErrorIs(t, err, boom)
	assert.False(t, index.Has("doc1"))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	index := NewSentenceIndex(letterEmbedding)
	require.NoError(t, index.AddSentences(ctx, "doc1", sentences))

	require.NoError(t, index.Delete("doc1"))
	assert.False(t, index.Has("doc1"))
}
