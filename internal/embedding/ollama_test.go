package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOllamaServer(t *testing.T, handler func(req embedRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedBatch(t *testing.T) {
	var got embedRequest
	srv := newOllamaServer(t, func(req embedRequest) (int, any) {
		got = req
		out := make([][]float32, len(req.Input))
		for i := range req.Input {
			out[i] = []float32{float32(i), 1, 2}
		}
		return http.StatusOK, embedResponse{Embeddings: out}
	})

	p := NewOllamaProvider(srv.URL+"/", "all-minilm")
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if got.Model != "all-minilm" || len(got.Input) != 2 || got.Input[1] != "b" {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
}

func TestOllamaEmbedSendsTextVerbatim(t *testing.T) {
	var got []string
	srv := newOllamaServer(t, func(req embedRequest) (int, any) {
		got = req.Input
		return http.StatusOK, embedResponse{Embeddings: [][]float32{{0.5, 0.5}}}
	})

	p := NewOllamaProvider(srv.URL, "m")
	if _, err := p.Embed(context.Background(), "space adventure"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(got) != 1 || got[0] != "space adventure" {
		t.Errorf("expected verbatim prompt, got %q", got)
	}
}

func TestOllamaErrorsAreUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"server error", http.StatusInternalServerError, embedResponse{Error: "model not loaded"}},
		{"missing vectors", http.StatusOK, embedResponse{}},
		{"empty vector", http.StatusOK, embedResponse{Embeddings: [][]float32{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOllamaServer(t, func(embedRequest) (int, any) { return tt.status, tt.body })
			_, err := NewOllamaProvider(srv.URL, "m").Embed(context.Background(), "x")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestOllamaConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaProvider(url, "m").Embed(context.Background(), "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestProbeDimensions(t *testing.T) {
	srv := newOllamaServer(t, func(embedRequest) (int, any) {
		return http.StatusOK, embedResponse{Embeddings: [][]float32{make([]float32, 384)}}
	})

	dim, err := ProbeDimensions(context.Background(), NewOllamaProvider(srv.URL, "m"))
	if err != nil {
		t.Fatalf("ProbeDimensions failed: %v", err)
	}
	if dim != 384 {
		t.Errorf("expected 384, got %d", dim)
	}
}
