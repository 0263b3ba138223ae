package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable 向量服务不可用（网络失败、非 200、空向量）
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider 文本向量化
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

const probeText = "dimension probe"

// ProbeDimensions 启动时探测向量维度
func ProbeDimensions(ctx context.Context, p Provider) (int, error) {
	vec, err := p.Embed(ctx, probeText)
	if err != nil {
		return 0, err
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("%w: empty probe vector", ErrUnavailable)
	}
	return len(vec), nil
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// Options 向量服务配置
type Options struct {
	OllamaHost  string
	OllamaModel string
	OpenAIKey   string
	OpenAIModel string
	HashDim     int
}

// NewProvider 按名称创建向量服务：ollama / openai / hash
func NewProvider(name string, opts Options) (Provider, error) {
	switch name {
	case "ollama":
		return NewOllamaProvider(opts.OllamaHost, opts.OllamaModel), nil
	case "openai":
		if opts.OpenAIKey == "" {
			return nil, errors.New("openai provider requires an API key")
		}
		return NewOpenAIProvider(opts.OpenAIKey, opts.OpenAIModel), nil
	case "hash":
		return NewHashProvider(opts.HashDim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
}
