package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuquest/internal/config"
	"docuquest/internal/generator"
	"docuquest/internal/metrics"
	"docuquest/internal/quiz"
	"docuquest/internal/session"
)

const document = `Machine Learning is a subset of Artificial Intelligence.
Machine Learning systems learn patterns from historical data instead of explicit rules.
The training process adjusts model parameters using Gradient Descent.
Deep Learning models perform better than classical models on Image Recognition tasks.
Machine Learning is used for fraud detection and Recommendation engines.
A key advantage of Neural Networks is that they improve with more data.
Python remains the most popular language for building Machine Learning pipelines.
Data quality remains the biggest factor in the success of Analytics projects.`

type readyFlag bool

func (r readyFlag) Ready() bool { return bool(r) }

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	m := metrics.New("test")
	svc := quiz.NewService(session.NewStore(0), generator.NewSeededHeuristic(3, 5), m, cfg.Quiz)
	return NewServer(svc, m, readyFlag(false), cfg.Server).Handler()
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func upload(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, body := do(t, h, uploadRequest(t, "notes.txt", document))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["document_id"].(string)
}

func TestUploadDocument(t *testing.T) {
	h := newTestServer(t, nil)

	rec, body := do(t, h, uploadRequest(t, "notes.txt", document))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	stats := body["stats"].(map[string]any)
	assert.Equal(t, "TXT", stats["file_type"])
	assert.Equal(t, float64(8), stats["sentence_count"])

	questions := body["questions"].(map[string]any)
	assert.Len(t, questions, 3)
	assert.NotEmpty(t, questions["basic"])

	again, body2 := do(t, h, uploadRequest(t, "copy.txt", document))
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, body["document_id"], body2["document_id"])
}

func TestUploadValidation(t *testing.T) {
	h := newTestServer(t, nil)

	rec, body := do(t, h, uploadRequest(t, "malware.exe", document))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = do(t, h, uploadRequest(t, "tiny.txt", "Too little text."))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["error"], "enough readable text")

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("not multipart"))
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	h := newTestServer(t, func(cfg *config.Config) { cfg.Server.UploadDir = dir })

	upload(t, h)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQuestionsAndStats(t *testing.T) {
	h := newTestServer(t, nil)
	id := upload(t, h)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/documents/"+id+"/questions/medium", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	questions := body["questions"].([]any)
	assert.Equal(t, float64(len(questions)), body["total_count"])
	first := questions[0].(map[string]any)
	assert.Equal(t, "comprehension", first["type"])
	assert.True(t, strings.HasPrefix(first["explanation"].(string), "📚 Document Insight: "))

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/documents/"+id+"/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "stats")

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["document_id"])
}

func TestMoreQuestions(t *testing.T) {
	h := newTestServer(t, nil)
	id := upload(t, h)

	seen := make(map[string]bool)
	var lastTotal float64
	for i := 0; i < 2; i++ {
		rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/documents/"+id+"/questions/basic/more", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, body["success"])

		for _, q := range body["questions"].([]any) {
			text := q.(map[string]any)["question"].(string)
			assert.False(t, seen[text], "repeated %q", text)
			seen[text] = true
		}
		total := body["total_count"].(float64)
		assert.Greater(t, total, lastTotal)
		lastTotal = total
		assert.Contains(t, body, "has_more")
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t, nil)
	id := upload(t, h)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/documents/ffffffffffff/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "upload the document again")

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/documents/ffffffffffff/questions/basic/more", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/documents/"+id+"/questions/expert", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoreIsRateLimited(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 0.001
		cfg.Server.RateBurst = 1
	})
	id := upload(t, h)

	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/documents/"+id+"/questions/advanced/more", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/documents/"+id+"/questions/advanced/more", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, false, body["success"])
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestServer(t, nil)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["model_ready"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docuquest_http_requests_total")
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, mapErrorToHTTPStatus(assert.AnError))
}
