package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/user/moviesearch/internal/embedding"
	"github.com/user/moviesearch/internal/model"
)

// MovieStore 电影 CRUD 存储
type MovieStore interface {
	Create(ctx context.Context, movie *model.Movie) error
	FindByID(ctx context.Context, id int64) (*model.Movie, error)
	FindByTitle(ctx context.Context, title string) (*model.Movie, error)
	UpdateByID(ctx context.Context, id int64, movie *model.Movie) (*model.Movie, error)
	UpdateByTitle(ctx context.Context, title string, movie *model.Movie) (*model.Movie, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteByTitle(ctx context.Context, title string) error
}

// MovieService 电影 CRUD，写入时由 title + ". " + overview 计算 embedding
type MovieService struct {
	store    MovieStore
	provider embedding.Provider
	dim      int
}

// NewMovieService 创建电影服务
func NewMovieService(store MovieStore, provider embedding.Provider, dim int) *MovieService {
	return &MovieService{
		store:    store,
		provider: provider,
		dim:      dim,
	}
}

// ParseMovieID 解析路径中的电影 ID
func ParseMovieID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "invalid movie ID")
	}
	return id, nil
}

// Insert 创建电影，标题重复返回 ErrConflict
func (s *MovieService) Insert(ctx context.Context, in *model.MovieInput) (*model.Movie, error) {
	movie, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, movie); err != nil {
		return nil, storeError("insert", err)
	}
	return movie, nil
}

// GetByID 根据 ID 获取
func (s *MovieService) GetByID(ctx context.Context, id int64) (*model.Movie, error) {
	movie, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("get by id", err)
	}
	return movie, nil
}

// GetByTitle 根据标题获取
func (s *MovieService) GetByTitle(ctx context.Context, title string) (*model.Movie, error) {
	if err := requireTitle(title); err != nil {
		return nil, err
	}
	movie, err := s.store.FindByTitle(ctx, title)
	if err != nil {
		return nil, storeError("get by title", err)
	}
	return movie, nil
}

// UpdateByID 更新电影并重新计算 embedding，id 与创建时间保持不变
func (s *MovieService) UpdateByID(ctx context.Context, id int64, in *model.MovieInput) (*model.Movie, error) {
	movie, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateByID(ctx, id, movie)
	if err != nil {
		return nil, storeError("update by id", err)
	}
	return updated, nil
}

// UpdateByTitle 按原标题更新
func (s *MovieService) UpdateByTitle(ctx context.Context, title string, in *model.MovieInput) (*model.Movie, error) {
	if err := requireTitle(title); err != nil {
		return nil, err
	}
	movie, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateByTitle(ctx, title, movie)
	if err != nil {
		return nil, storeError("update by title", err)
	}
	return updated, nil
}

// DeleteByID 删除电影
func (s *MovieService) DeleteByID(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return storeError("delete by id", err)
	}
	return nil
}

// DeleteByTitle 按标题删除
func (s *MovieService) DeleteByTitle(ctx context.Context, title string) error {
	if err := requireTitle(title); err != nil {
		return err
	}
	if err := s.store.DeleteByTitle(ctx, title); err != nil {
		return storeError("delete by title", err)
	}
	return nil
}

// prepare 校验输入并生成文档向量
func (s *MovieService) prepare(ctx context.Context, in *model.MovieInput) (*model.Movie, error) {
	if err := ValidateMovieInput(in); err != nil {
		return nil, err
	}

	movie := in.ToMovie()
	vec, err := s.provider.Embed(ctx, model.EmbeddingText(movie.Title, movie.Overview))
	if err != nil {
		return nil, providerError(err)
	}
	if s.dim > 0 && len(vec) != s.dim {
		return nil, providerError(fmt.Errorf("document vector has %d dimensions, expected %d", len(vec), s.dim))
	}

	v := pgvector.NewVector(vec)
	movie.Embedding = &v
	return movie, nil
}

func requireTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("movie_title", "is required")
	}
	return nil
}
