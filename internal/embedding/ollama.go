package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// embedRequest Ollama /api/embed 请求结构
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse Ollama /api/embed 响应结构
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// OllamaProvider 调用 Ollama 生成向量
type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider 创建 Ollama 向量服务
func NewOllamaProvider(host, model string) *OllamaProvider {
	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Embed 生成单条文本的向量
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 批量生成向量，返回顺序与输入一致
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonData, err := json.Marshal(embedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, unavailable("post request to ollama failed: %v", err)
	}
	defer resp.Body.Close()

	var result embedResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return nil, unavailable("ollama returned status %d: %s", resp.StatusCode, result.Error)
		}
		return nil, unavailable("ollama returned error status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, unavailable("decode response failed: %v", decodeErr)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, unavailable("ollama returned %d vectors for %d inputs", len(result.Embeddings), len(texts))
	}
	for i, vec := range result.Embeddings {
		if len(vec) == 0 {
			return nil, unavailable("ollama returned an empty vector at %d", i)
		}
	}

	return result.Embeddings, nil
}
