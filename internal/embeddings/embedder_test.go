package embeddings

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v", v)
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("normalized vector has length %f", math.Sqrt(sum))
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for _, x := range v {
		if x != 0 {
			t.Errorf("zero vector changed: %v", v)
		}
	}
}

func TestOllamaEmbedBatchesInputs(t *testing.T) {
	requests := 0
	var inputs []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/api/embed" {
			t.Errorf("path: %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		inputs = req.Input
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{float32(i), 1}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, ts.URL)
	texts := []string{"অনুপম", "কল্যাণী", "গজানন"}
	vecs, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	// The whole batch travels in one request.
	if requests != 1 {
		t.Errorf("requests: %d, want 1", requests)
	}
	if len(inputs) != len(texts) {
		t.Errorf("inputs sent: %d, want %d", len(inputs), len(texts))
	}
	if len(vecs) != len(texts) {
		t.Fatalf("vectors: %d, want %d", len(vecs), len(texts))
	}
	if vecs[2][0] != 2 {
		t.Errorf("vector order lost: %v", vecs[2])
	}
}

func TestOllamaEmbedCountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 0}}})
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, ts.URL)
	if _, err := e.Embed(context.Background(), []string{"অনুপম", "কল্যাণী"}); err == nil {
		t.Fatal("expected an error when the embedding count disagrees with the input count")
	}
}

func TestOpenAIModelDimensions(t *testing.T) {
	tests := []struct {
		model OpenAIModel
		want  int
	}{
		{ModelTextEmbedding3Small, 1536},
		{ModelTextEmbedding3Large, 3072},
		{OpenAIModel("unknown"), 1536},
	}
	for _, tt := range tests {
		if got := tt.model.dimensions(); got != tt.want {
			t.Errorf("%s dimensions: got %d, want %d", tt.model, got, tt.want)
		}
	}
}
