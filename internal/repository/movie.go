package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/patrickmn/go-cache"
	"github.com/pgvector/pgvector-go"
	"github.com/user/moviesearch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 可被客户端更新的列（id、created_at 保持不变）
var updatableColumns = []string{
	"title", "overview", "homepage", "genres", "runtime",
	"release_date", "budget", "revenue", "embedding", "updated_at",
}

const vectorPath = "embedding"

type MovieRepository struct {
	db *gorm.DB
	// 向量索引存在性检查结果，只缓存命中
	indexes *cache.Cache
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{
		db:      db,
		indexes: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Create 插入电影，标题重复返回 ErrDuplicateTitle
func (r *MovieRepository) Create(ctx context.Context, movie *model.Movie) error {
	return translateError(r.db.WithContext(ctx).Create(movie).Error)
}

// FindByID 根据 ID 查找电影
func (r *MovieRepository) FindByID(ctx context.Context, id int64) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Omit(vectorPath).Where("id = ?", id).First(&movie).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &movie, nil
}

// FindByTitle 根据标题精确查找（区分大小写）
func (r *MovieRepository) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Omit(vectorPath).Where("title = ?", title).First(&movie).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &movie, nil
}

// UpdateByID 覆盖可写字段，不存在返回 ErrNotFound，不会新建记录
func (r *MovieRepository) UpdateByID(ctx context.Context, id int64, movie *model.Movie) (*model.Movie, error) {
	return r.update(ctx, "id = ?", id, movie)
}

// UpdateByTitle 同 UpdateByID，按原标题定位
func (r *MovieRepository) UpdateByTitle(ctx context.Context, title string, movie *model.Movie) (*model.Movie, error) {
	return r.update(ctx, "title = ?", title, movie)
}

func (r *MovieRepository) update(ctx context.Context, where string, key any, movie *model.Movie) (*model.Movie, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Movie
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "created_at").
			Where(where, key).
			First(&existing).Error; err != nil {
			return err
		}

		movie.ID = existing.ID
		movie.CreatedAt = existing.CreatedAt
		movie.UpdatedAt = time.Now()

		return tx.Model(&model.Movie{ID: existing.ID}).
			Select(updatableColumns).
			Updates(movie).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return movie, nil
}

// DeleteByID 删除电影
func (r *MovieRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.delete(ctx, "id = ?", id)
}

// DeleteByTitle 按标题删除电影
func (r *MovieRepository) DeleteByTitle(ctx context.Context, title string) error {
	return r.delete(ctx, "title = ?", title)
}

func (r *MovieRepository) delete(ctx context.Context, where string, key any) error {
	res := r.db.WithContext(ctx).Where(where, key).Delete(&model.Movie{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count 统计文档数
func (r *MovieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Movie{}).Count(&count).Error
	return count, err
}

// ReplaceAll 清空集合并批量写入（单事务）
func (r *MovieRepository) ReplaceAll(ctx context.Context, movies []*model.Movie, batchSize int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Movie{}).Error; err != nil {
			return err
		}
		if len(movies) == 0 {
			return nil
		}
		return tx.CreateInBatches(movies, batchSize).Error
	})
	return translateError(err)
}

// VectorSearch HNSW 近似最近邻检索
// 在同一事务内设置 hnsw.ef_search = NumCandidates，按余弦距离升序返回 Limit 条
func (r *MovieRepository) VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SearchResult, error) {
	if q.Path != vectorPath {
		return nil, fmt.Errorf("%w: movies has no vector field %q", ErrIndexNotFound, q.Path)
	}

	ok, err := r.IndexExists(ctx, q.Index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, q.Index)
	}

	type row struct {
		Title    string
		Overview string
		Genres   pq.StringArray
	}
	var rows []row

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SET 不支持绑定参数，NumCandidates 为整数
		if err := tx.Exec(fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", q.NumCandidates)).Error; err != nil {
			return err
		}
		return tx.Model(&model.Movie{}).
			Select("title", "overview", "genres").
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:  "embedding <=> ?",
				Vars: []any{pgvector.NewVector(q.Vector)},
			}}).
			Limit(q.Limit).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(rows))
	for _, rw := range rows {
		results = append(results, model.ProjectSearchResult(&model.Movie{
			Title:    rw.Title,
			Overview: rw.Overview,
			Genres:   rw.Genres,
		}))
	}
	return results, nil
}

// IndexExists 检查 movies.embedding 上是否存在指定名称的 HNSW 索引
func (r *MovieRepository) IndexExists(ctx context.Context, name string) (bool, error) {
	if _, found := r.indexes.Get(name); found {
		return true, nil
	}

	var defs []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT indexdef FROM pg_indexes
		WHERE tablename = 'movies' AND indexname = ?
	`, name).Scan(&defs).Error
	if err != nil {
		return false, err
	}

	for _, def := range defs {
		if strings.Contains(def, "USING hnsw") && strings.Contains(def, vectorPath) {
			r.indexes.Set(name, true, cache.DefaultExpiration)
			return true, nil
		}
	}
	return false, nil
}

// translateError 将驱动/ORM 错误转为仓库错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateTitle
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTitle
	}
	return err
}
