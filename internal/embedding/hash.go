package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashProvider 本地确定性向量（字符三元组哈希），用于离线开发和测试
// 不依赖外部模型，相似文本共享三元组因而余弦相似度较高
type HashProvider struct {
	dim int
}

// NewHashProvider 创建哈希向量服务
func NewHashProvider(dim int) *HashProvider {
	if dim < 1 {
		dim = 384
	}
	return &HashProvider{dim: dim}
}

func (p *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dim)
	runes := []rune(strings.ToLower(text))
	if len(runes) == 0 {
		vec[0] = 1
		return vec, nil
	}

	h := fnv.New32a()
	for i := 0; i < len(runes); i++ {
		end := min(i+3, len(runes))
		h.Reset()
		h.Write([]byte(string(runes[i:end])))
		vec[h.Sum32()%uint32(p.dim)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
