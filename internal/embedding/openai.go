package embedding

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider 使用 OpenAI Embeddings API
type OpenAIProvider struct {
	model  string
	client *openai.Client
}

// NewOpenAIProvider 创建 OpenAI 向量服务
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		model:  model,
		client: openai.NewClient(apiKey),
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	rsp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, unavailable("openai embeddings failed: %v", err)
	}

	if len(rsp.Data) != len(texts) {
		return nil, unavailable("openai returned %d vectors for %d inputs", len(rsp.Data), len(texts))
	}

	// Data 按 Index 回填，不依赖返回顺序
	vecs := make([][]float32, len(texts))
	for _, d := range rsp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, unavailable("openai returned an invalid embedding at index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, unavailable("openai returned no embedding for input %d", i)
		}
	}

	return vecs, nil
}
