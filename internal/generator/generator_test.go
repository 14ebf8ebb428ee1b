package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuquest/internal/analyzer"
	"docuquest/internal/models"
)

const sampleDocument = `Machine Learning is a subset of Artificial Intelligence.
Machine Learning systems learn patterns from historical data instead of explicit rules.
The training process adjusts model parameters using Gradient Descent.
Deep Learning models perform better than classical models on Image Recognition tasks.
Machine Learning is used for fraud detection and Recommendation engines.
A key advantage of Neural Networks is that they improve with more data.
Python remains the most popular language for building Machine Learning pipelines.
Data quality remains the biggest factor in the success of Analytics projects.`

func widgetAnalysis() *models.ContentAnalysis {
	return &models.ContentAnalysis{
		FullText: "",
		Sentences: []string{
			"Gadget and Widget both appear in this general overview",
			"A Widget is a small mechanical device",
			"The Widget assembly process has four steps",
			"Widget costs less than Gadget in most markets",
			"The main advantage of a Widget is its size",
		},
		KeyConcepts: []string{"Widget", "Gadget", "Sprocket", "Gizmo", "Doohickey"},
		CategorizedSentences: map[models.Category][]string{
			models.CategoryDefinition: {"A Widget is a small mechanical device"},
			models.CategoryProcess:    {"The Widget assembly process has four steps"},
			models.CategoryComparison: {"Widget costs less than Gadget in most markets"},
			models.CategoryAdvantage:  {"The main advantage of a Widget is its size"},
		},
	}
}

func assertValidQuestion(t *testing.T, q models.GeneratedQuestion, d models.Difficulty) {
	t.Helper()
	assert.NotEmpty(t, q.ID)
	assert.Contains(t, q.Text, "'"+q.CorrectAnswer+"'")
	assert.Equal(t, d, q.Difficulty)
	assert.Equal(t, d.QuestionType(), q.QuestionType)
	assert.LessOrEqual(t, len(q.Options), models.MaxOptions)

	seen := make(map[string]bool)
	answers := 0
	for _, o := range q.Options {
		assert.False(t, seen[o], "duplicate option %q", o)
		seen[o] = true
		if o == q.CorrectAnswer {
			answers++
		}
	}
	assert.Equal(t, 1, answers, "correct answer must appear exactly once in %v", q.Options)
}

func TestGenerateBatchFollowsConceptRank(t *testing.T) {
	analysis := analyzer.Analyze(sampleDocument)
	used := models.NewQuestionSet()

	questions, err := NewSeededHeuristic(1, 2).GenerateBatch(context.Background(), analysis, models.DifficultyBasic, 5, used)
	require.NoError(t, err)
	require.Len(t, questions, 5)

	for i, q := range questions {
		assert.Equal(t, analysis.KeyConcepts[i], q.CorrectAnswer)
		assert.True(t, strings.HasPrefix(q.Explanation, "📖 According to the document: "))
		assert.True(t, used.Has(q.Text))
		assertValidQuestion(t, q, models.DifficultyBasic)
	}
	assert.Equal(t, 5, used.Len())
}

func TestGenerateBatchNeverRepeatsAcrossCalls(t *testing.T) {
	analysis := analyzer.Analyze(sampleDocument)
	h := NewHeuristic()

	for _, d := range models.Difficulties {
		t.Run(string(d), func(t *testing.T) {
			used := models.NewQuestionSet()
			issued := make(map[string]bool)
			for call := 0; call < 20; call++ {
				size := models.MoreBatchSize
				if call == 0 {
					size = models.InitialBatchSize
				}
				questions, err := h.GenerateBatch(context.Background(), analysis, d, size, used)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(questions), size)
				for _, q := range questions {
					require.False(t, issued[q.Text], "question repeated: %q", q.Text)
					issued[q.Text] = true
					assertValidQuestion(t, q, d)
				}
			}
			assert.Equal(t, len(issued), used.Len())
		})
	}
}

func TestGenerateBatchPartialWhenConceptsRunOut(t *testing.T) {
	analysis := widgetAnalysis()
	analysis.KeyConcepts = []string{"Widget", "Gadget", "Sprocket"}

	questions, err := NewHeuristic().GenerateBatch(context.Background(), analysis, models.DifficultyMedium, 10, models.NewQuestionSet())

	require.NoError(t, err)
	assert.Len(t, questions, 3)
}

func TestGenerateBatchAllTemplatesUsed(t *testing.T) {
	analysis := widgetAnalysis()
	used := models.NewQuestionSet()
	for _, concept := range analysis.KeyConcepts {
		for _, tmpl := range tiers[models.DifficultyAdvanced].templates {
			used.Add(fmt.Sprintf(tmpl, concept))
		}
	}

	questions, err := NewHeuristic().GenerateBatch(context.Background(), analysis, models.DifficultyAdvanced, 5, used)

	require.NoError(t, err)
	assert.Empty(t, questions)
	assert.Equal(t, 0, Remaining(analysis, used.Len()))
}

func TestGenerateBatchFewDistractors(t *testing.T) {
	analysis := widgetAnalysis()
	analysis.KeyConcepts = []string{"Widget", "Gadget"}

	questions, err := NewHeuristic().GenerateBatch(context.Background(), analysis, models.DifficultyBasic, 10, models.NewQuestionSet())

	require.NoError(t, err)
	require.Len(t, questions, 2)
	for _, q := range questions {
		assert.ElementsMatch(t, []string{"Widget", "Gadget"}, q.Options)
	}
}

func TestGenerateBatchInvalidDifficulty(t *testing.T) {
	_, err := NewHeuristic().GenerateBatch(context.Background(), widgetAnalysis(), models.Difficulty("expert"), 5, models.NewQuestionSet())

	assert.ErrorIs(t, err, models.ErrInvalidDifficulty)
}

func TestGenerateBatchWithoutSentences(t *testing.T) {
	analysis := analyzer.Analyze("")

	questions, err := NewHeuristic().GenerateBatch(context.Background(), analysis, models.DifficultyBasic, 10, models.NewQuestionSet())

	require.NoError(t, err)
	assert.Empty(t, questions)
	assert.Equal(t, 0, Remaining(analysis, 0))
}

func TestSeededHeuristicIsReproducible(t *testing.T) {
	analysis := analyzer.Analyze(sampleDocument)

	a, err := NewSeededHeuristic(7, 7).GenerateBatch(context.Background(), analysis, models.DifficultyMedium, 10, models.NewQuestionSet())
	require.NoError(t, err)
	b, err := NewSeededHeuristic(7, 7).GenerateBatch(context.Background(), analysis, models.DifficultyMedium, 10, models.NewQuestionSet())
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Text, b[i].Text)
		assert.Equal(t, a[i].Options, b[i].Options)
		assert.NotEqual(t, a[i].ID, b[i].ID)
	}
}

func TestExplainSearchOrder(t *testing.T) {
	analysis := widgetAnalysis()
	tests := []struct {
		difficulty models.Difficulty
		concept    string
		want       string
	}{
		{models.DifficultyBasic, "Widget", "📖 According to the document: Gadget and Widget both appear in this general overview"},
		{models.DifficultyBasic, "widget", "📖 According to the document: Gadget and Widget both appear in this general overview"},
		{models.DifficultyMedium, "Widget", "📚 Document Insight: A Widget is a small mechanical device"},
		{models.DifficultyMedium, "Gadget", "📚 Document Insight: Gadget and Widget both appear in this general overview"},
		{models.DifficultyAdvanced, "Widget", "🔍 Analytical Finding: The main advantage of a Widget is its size"},
		{models.DifficultyAdvanced, "Gadget", "🔍 Analytical Finding: Widget costs less than Gadget in most markets"},
		{models.DifficultyBasic, "Sprocket", "📖 According to the document: The document discusses Sprocket and its importance in the context."},
		{models.DifficultyMedium, "Gizmo", "📚 Document Insight: The document provides detailed information about Gizmo and its implementation."},
		{models.DifficultyAdvanced, "Doohickey", "🔍 Analytical Finding: The document analyzes Doohickey from multiple perspectives including its applications and strategic value."},
	}
	for _, tt := range tests {
		t.Run(string(tt.difficulty)+"/"+tt.concept, func(t *testing.T) {
			got, err := Explain(analysis, tt.difficulty, tt.concept)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemaining(t *testing.T) {
	analysis := widgetAnalysis()
	used := models.NewQuestionSet()
	assert.Equal(t, 50, Remaining(analysis, used.Len()))

	used.Add("anything")
	assert.Equal(t, 49, Remaining(analysis, used.Len()))
}

func TestHeuristicConcurrentBatches(t *testing.T) {
	analysis := analyzer.Analyze(sampleDocument)
	h := NewHeuristic()

	var wg sync.WaitGroup
	for _, d := range models.Difficulties {
		wg.Add(1)
		go func(d models.Difficulty) {
			defer wg.Done()
			questions, err := h.GenerateBatch(context.Background(), analysis, d, models.InitialBatchSize, models.NewQuestionSet())
			assert.NoError(t, err)
			assert.NotEmpty(t, questions)
		}(d)
	}
	wg.Wait()
}
