package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"storygraph/backend/internal/pipeline"
)

type stubExtract struct {
	result *pipeline.ExtractResult
	err    error
	got    pipeline.ChunkInput
}

func (s *stubExtract) ExtractAndSave(ctx context.Context, in pipeline.ChunkInput) (*pipeline.ExtractResult, error) {
	s.got = in
	return s.result, s.err
}

type stubAugment struct {
	result *pipeline.AugmentResult
	err    error
}

func (s *stubAugment) AugmentContext(ctx context.Context, in pipeline.ChunkInput) (*pipeline.AugmentResult, error) {
	return s.result, s.err
}

func testServer(extract extractService, augment augmentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(zap.NewNop(), "secret-token", 1000, extract, augment)
}

func doPost(router *gin.Engine, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := testServer(&stubExtract{}, &stubAugment{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractSave_RequiresBearerToken(t *testing.T) {
	router := testServer(&stubExtract{}, &stubAugment{})

	body := `{"text": "Zorian trains", "chapter": 1, "stage": "final"}`
	assert.Equal(t, http.StatusUnauthorized, doPost(router, "/extract-save", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, doPost(router, "/extract-save", "wrong-token", body).Code)
}

func TestExtractSave_Success(t *testing.T) {
	extract := &stubExtract{result: &pipeline.ExtractResult{
		ChunkID:       "abc",
		ClusterID:     "cluster-1",
		Relationships: []string{"a MEMBER_OF b"},
		Aliases:       []string{"Zorian = character-aabbccdd"},
	}}
	router := testServer(extract, &stubAugment{})

	w := doPost(router, "/extract-save", "secret-token",
		`{"text": "Zorian trains", "chapter": 2, "stage": "draft_3", "tags": ["training"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var response pipeline.ExtractResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "cluster-1", response.ClusterID)
	assert.Equal(t, 2, extract.got.Chapter)
	assert.Equal(t, 3, int(extract.got.Stage))
	assert.Equal(t, []string{"training"}, extract.got.Tags)
}

func TestExtractSave_ValidatesInput(t *testing.T) {
	router := testServer(&stubExtract{}, &stubAugment{})

	cases := []string{
		`{"chapter": 1, "stage": "final"}`,                       // missing text
		`{"text": "x", "chapter": 0, "stage": "final"}`,          // chapter < 1
		`{"text": "x", "chapter": 1, "stage": "mystery"}`,        // bad stage name
		`{"text": "x", "chapter": 1, "stage": 12}`,               // stage out of range
		`not json`,                                               // malformed body
	}
	for _, body := range cases {
		w := doPost(router, "/extract-save", "secret-token", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "body: %s", body)
	}
}

func TestExtractSave_RejectsOversizedText(t *testing.T) {
	router := testServer(&stubExtract{}, &stubAugment{})

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	payload, _ := json.Marshal(map[string]any{"text": string(long), "chapter": 1, "stage": "final"})

	w := doPost(router, "/extract-save", "secret-token", string(payload))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExtractSave_StageAcceptsOrdinal(t *testing.T) {
	extract := &stubExtract{result: &pipeline.ExtractResult{}}
	router := testServer(extract, &stubAugment{})

	w := doPost(router, "/extract-save", "secret-token", `{"text": "x", "chapter": 1, "stage": -1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, int(extract.got.Stage))
}

func TestAugmentContext_Success(t *testing.T) {
	augment := &stubAugment{result: &pipeline.AugmentResult{
		Rows:    []map[string]any{{"source": "Zorian", "relation": "MEMBER_OF", "target": "the guild"}},
		Summary: "Zorian belongs to the guild",
	}}
	router := testServer(&stubExtract{}, augment)

	w := doPost(router, "/augment-context", "secret-token", `{"text": "Where does Zorian belong?", "chapter": 1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Context pipeline.AugmentResult `json:"context"`
		TraceID string                 `json:"traceId"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Context.Rows, 1)
	assert.Equal(t, "Zorian belongs to the guild", response.Context.Summary)
	assert.NotEmpty(t, response.TraceID)
}

func TestAugmentContext_StageAndTagsOptional(t *testing.T) {
	augment := &stubAugment{result: &pipeline.AugmentResult{}}
	router := testServer(&stubExtract{}, augment)

	w := doPost(router, "/augment-context", "secret-token", `{"text": "query", "chapter": 3}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInternalErrorsDoNotLeakDetail(t *testing.T) {
	extract := &stubExtract{err: assert.AnError}
	router := testServer(extract, &stubAugment{})

	w := doPost(router, "/extract-save", "secret-token", `{"text": "x", "chapter": 1, "stage": "final"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "internal error", response["error"])
}
