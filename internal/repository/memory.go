package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/user/moviesearch/internal/model"
)

// MemoryStore 进程内电影存储，暴力余弦检索，用于开发和测试
// 行为与 MovieRepository 保持一致：标题唯一、更新不新建、索引必须存在
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	movies  map[int64]*model.Movie
	indexes map[string]bool

	// 最近一次向量检索请求
	LastQuery *model.VectorQuery
}

// NewMemoryStore 创建内存存储，indexes 为已配置的向量索引名
func NewMemoryStore(indexes ...string) *MemoryStore {
	s := &MemoryStore{
		movies:  make(map[int64]*model.Movie),
		indexes: make(map[string]bool),
	}
	for _, name := range indexes {
		s.indexes[name] = true
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, movie *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.titleTaken(movie.Title, 0) {
		return ErrDuplicateTitle
	}
	s.nextID++
	now := time.Now()
	movie.ID = s.nextID
	movie.CreatedAt = now
	movie.UpdatedAt = now
	s.movies[movie.ID] = clone(movie)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m), nil
}

func (s *MemoryStore) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m := s.byTitle(title); m != nil {
		return clone(m), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateByID(ctx context.Context, id int64, movie *model.Movie) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.movies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.replace(existing, movie)
}

func (s *MemoryStore) UpdateByTitle(ctx context.Context, title string, movie *model.Movie) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.byTitle(title)
	if existing == nil {
		return nil, ErrNotFound
	}
	return s.replace(existing, movie)
}

func (s *MemoryStore) replace(existing, movie *model.Movie) (*model.Movie, error) {
	if s.titleTaken(movie.Title, existing.ID) {
		return nil, ErrDuplicateTitle
	}
	movie.ID = existing.ID
	movie.CreatedAt = existing.CreatedAt
	movie.UpdatedAt = time.Now()
	s.movies[movie.ID] = clone(movie)
	return movie, nil
}

func (s *MemoryStore) DeleteByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[id]; !ok {
		return ErrNotFound
	}
	delete(s.movies, id)
	return nil
}

func (s *MemoryStore) DeleteByTitle(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.byTitle(title)
	if m == nil {
		return ErrNotFound
	}
	delete(s.movies, m.ID)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.movies)), nil
}

func (s *MemoryStore) ReplaceAll(ctx context.Context, movies []*model.Movie, batchSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(movies))
	for _, m := range movies {
		if seen[m.Title] {
			return ErrDuplicateTitle
		}
		seen[m.Title] = true
	}

	s.movies = make(map[int64]*model.Movie, len(movies))
	now := time.Now()
	for _, m := range movies {
		s.nextID++
		m.ID = s.nextID
		m.CreatedAt = now
		m.UpdatedAt = now
		s.movies[m.ID] = clone(m)
	}
	return nil
}

// VectorSearch 暴力计算余弦相似度，降序返回
func (s *MemoryStore) VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := q
	s.LastQuery = &last

	if q.Path != vectorPath || !s.indexes[q.Index] {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, q.Index)
	}

	type scored struct {
		movie *model.Movie
		score float64
	}
	candidates := make([]scored, 0, len(s.movies))
	for _, m := range s.movies {
		if m.Embedding == nil {
			continue
		}
		candidates = append(candidates, scored{m, cosineSimilarity(q.Vector, m.Embedding.Slice())})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	results := make([]model.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, model.ProjectSearchResult(c.movie))
	}
	return results, nil
}

func (s *MemoryStore) byTitle(title string) *model.Movie {
	for _, m := range s.movies {
		if m.Title == title {
			return m
		}
	}
	return nil
}

func (s *MemoryStore) titleTaken(title string, exceptID int64) bool {
	m := s.byTitle(title)
	return m != nil && m.ID != exceptID
}

func clone(m *model.Movie) *model.Movie {
	c := *m
	if m.Genres != nil {
		c.Genres = append([]string(nil), m.Genres...)
	}
	return &c
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
