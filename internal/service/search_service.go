package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/user/moviesearch/internal/config"
	"github.com/user/moviesearch/internal/embedding"
	"github.com/user/moviesearch/internal/model"
	"github.com/user/moviesearch/internal/utils"
	"golang.org/x/sync/singleflight"
)

// 单次查询向量调用的超时
const embedTimeout = 30 * time.Second

// VectorSearcher 向量检索存储
type VectorSearcher interface {
	VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SearchResult, error)
}

// SearchService 语义搜索服务
type SearchService struct {
	provider  embedding.Provider
	store     VectorSearcher
	indexName string
	dim       int
	cfg       config.SearchConfig
	vectors   *utils.TTLCache[[]float32] // prompt -> 查询向量
	sf        singleflight.Group
}

// NewSearchService 创建语义搜索服务，dim 为模型输出维度（0 表示不校验）
func NewSearchService(
	provider embedding.Provider,
	store VectorSearcher,
	indexName string,
	dim int,
	cfg config.SearchConfig,
) *SearchService {
	return &SearchService{
		provider:  provider,
		store:     store,
		indexName: indexName,
		dim:       dim,
		cfg:       cfg,
		vectors:   utils.NewTTLCache[[]float32](cfg.QueryCacheSize, cfg.QueryCacheTTL),
	}
}

// Config 返回搜索参数
func (s *SearchService) Config() config.SearchConfig {
	return s.cfg
}

// NumCandidates HNSW 候选池大小 = 过采样倍数 × limit
func (s *SearchService) NumCandidates(limit int) int {
	return s.cfg.OversamplingFactor * limit
}

// SemanticSearch 语义搜索
// 1. 校验输入（失败时不调用向量服务）
// 2. 仅对 prompt 生成查询向量
// 3. 计算候选池大小
// 4. 向量检索并裁剪为 SearchResult
func (s *SearchService) SemanticSearch(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
	if err := ValidateSearchQuery(q, s.cfg); err != nil {
		return nil, err
	}

	vec, err := s.queryVector(ctx, q.Prompt)
	if err != nil {
		return nil, err
	}

	results, err := s.store.VectorSearch(ctx, model.VectorQuery{
		Index:         s.indexName,
		Path:          "embedding",
		Vector:        vec,
		NumCandidates: s.NumCandidates(q.Limit),
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, storeError("vector search", err)
	}

	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	for i := range results {
		if results[i].Genres == nil {
			results[i].Genres = []string{}
		}
	}
	return results, nil
}

// queryVector 生成查询向量；相同 prompt 的并发请求共享一次调用
// 共享调用不跟随任何单个请求取消，调用方断开只影响自己
func (s *SearchService) queryVector(ctx context.Context, prompt string) ([]float32, error) {
	if vec, ok := s.vectors.Get(prompt); ok {
		return vec, nil
	}

	ch := s.sf.DoChan(prompt, func() (interface{}, error) {
		embedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), embedTimeout)
		defer cancel()

		vec, err := s.provider.Embed(embedCtx, prompt)
		if err != nil {
			return nil, err
		}
		if s.dim > 0 && len(vec) != s.dim {
			return nil, fmt.Errorf("query vector has %d dimensions, expected %d", len(vec), s.dim)
		}
		s.vectors.Set(prompt, vec)
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			log.Printf("[SearchService] 生成查询向量失败: %v", res.Err)
			return nil, providerError(res.Err)
		}
		return res.Val.([]float32), nil
	}
}
