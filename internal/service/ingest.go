package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/user/moviesearch/internal/embedding"
	"github.com/user/moviesearch/internal/model"
)

// IngestStore 数据集导入所需的存储操作
type IngestStore interface {
	Count(ctx context.Context) (int64, error)
	ReplaceAll(ctx context.Context, movies []*model.Movie, batchSize int) error
}

// DatasetStats 数据集清洗统计
type DatasetStats struct {
	Rows       int // CSV 数据行数
	Dropped    int // 缺少 title/overview 的行
	Duplicates int // 标题重复的行
}

// IngestReport 导入结果
type IngestReport struct {
	Skipped bool
	Stats   DatasetStats
	Count   int64 // 导入后的文档数
}

// Ingestor TMDB 5000 数据集导入
type Ingestor struct {
	store     IngestStore
	provider  embedding.Provider
	dim       int
	batchSize int
}

// NewIngestor 创建导入器
func NewIngestor(store IngestStore, provider embedding.Provider, dim, batchSize int) *Ingestor {
	if batchSize < 1 {
		batchSize = 64
	}
	return &Ingestor{
		store:     store,
		provider:  provider,
		dim:       dim,
		batchSize: batchSize,
	}
}

// IngestFile 从 CSV 文件导入
func (i *Ingestor) IngestFile(ctx context.Context, path string, force bool) (*IngestReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开数据集失败: %w", err)
	}
	defer f.Close()
	return i.Ingest(ctx, f, force)
}

// Ingest 导入数据集并替换整个集合
// 集合非空时跳过（force 为 true 除外）
func (i *Ingestor) Ingest(ctx context.Context, r io.Reader, force bool) (*IngestReport, error) {
	count, err := i.store.Count(ctx)
	if err != nil {
		return nil, storeError("count", err)
	}
	if count > 0 && !force {
		log.Printf("[Ingest] 集合已有 %d 条数据，跳过导入", count)
		return &IngestReport{Skipped: true, Count: count}, nil
	}

	movies, stats, err := ParseDataset(r)
	if err != nil {
		return nil, err
	}
	log.Printf("[Ingest] 读取 %d 行，丢弃 %d 行缺失数据，去重 %d 行，待导入 %d 部电影",
		stats.Rows, stats.Dropped, stats.Duplicates, len(movies))

	if err := i.embedAll(ctx, movies); err != nil {
		return nil, err
	}

	if err := i.store.ReplaceAll(ctx, movies, i.batchSize); err != nil {
		return nil, storeError("replace all", err)
	}

	count, err = i.store.Count(ctx)
	if err != nil {
		return nil, storeError("count", err)
	}
	log.Printf("[Ingest] 导入完成，集合共 %d 条数据", count)

	return &IngestReport{Stats: stats, Count: count}, nil
}

// embedAll 分批生成文档向量
func (i *Ingestor) embedAll(ctx context.Context, movies []*model.Movie) error {
	for start := 0; start < len(movies); start += i.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+i.batchSize, len(movies))

		texts := make([]string, 0, end-start)
		for _, m := range movies[start:end] {
			texts = append(texts, model.EmbeddingText(m.Title, m.Overview))
		}

		vecs, err := i.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return providerError(err)
		}
		if len(vecs) != len(texts) {
			return providerError(fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
		}

		for j, vec := range vecs {
			if i.dim > 0 && len(vec) != i.dim {
				return providerError(fmt.Errorf("document vector has %d dimensions, expected %d", len(vec), i.dim))
			}
			v := pgvector.NewVector(vec)
			movies[start+j].Embedding = &v
		}
		log.Printf("[Ingest] 已生成向量 %d/%d", end, len(movies))
	}
	return nil
}

// ParseDataset 解析 tmdb_5000_movies.csv
// 丢弃缺少 title/overview 的行，按标题去重（保留首次出现），规范化可选字段
func ParseDataset(r io.Reader) ([]*model.Movie, DatasetStats, error) {
	var stats DatasetStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("读取表头失败: %w", err)
	}
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = idx
	}
	for _, required := range []string{"title", "overview"} {
		if _, ok := cols[required]; !ok {
			return nil, stats, fmt.Errorf("数据集缺少 %s 列", required)
		}
	}

	field := func(rec []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	seen := make(map[string]struct{})
	var movies []*model.Movie

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("解析第 %d 行失败: %w", stats.Rows+2, err)
		}
		stats.Rows++

		title := field(rec, "title")
		overview := field(rec, "overview")
		if title == "" || overview == "" {
			stats.Dropped++
			continue
		}
		if _, dup := seen[title]; dup {
			stats.Duplicates++
			continue
		}
		seen[title] = struct{}{}

		m := &model.Movie{Title: title, Overview: overview}
		if v := field(rec, "homepage"); v != "" {
			m.Homepage = &v
		}
		if genres := parseGenres(field(rec, "genres")); len(genres) > 0 {
			m.Genres = pq.StringArray(genres)
		}
		if n, ok := parseNumber(field(rec, "runtime")); ok {
			runtime := int(n)
			m.Runtime = &runtime
		}
		if d, err := time.Parse("2006-01-02", field(rec, "release_date")); err == nil {
			m.ReleaseDate = &d
		}
		if n, ok := parseNumber(field(rec, "budget")); ok {
			budget := int64(n)
			m.Budget = &budget
		}
		if n, ok := parseNumber(field(rec, "revenue")); ok {
			revenue := int64(n)
			m.Revenue = &revenue
		}

		movies = append(movies, m)
	}

	return movies, stats, nil
}

// parseGenres 解析 [{"id": 28, "name": "Action"}] 格式的类型列表
func parseGenres(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		if name := strings.TrimSpace(it.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseNumber 兼容 "136" 和 "136.0"
func parseNumber(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return math.Round(n), true
}
