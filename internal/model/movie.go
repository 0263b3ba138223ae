package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Movie 电影模型（TMDB 数据）
// Embedding 由 title + ". " + overview 生成，不对外序列化
type Movie struct {
	ID          int64            `json:"id" gorm:"primaryKey"`
	Title       string           `json:"title" gorm:"uniqueIndex;not null"`
	Overview    string           `json:"overview" gorm:"not null"`
	Homepage    *string          `json:"homepage,omitempty"`
	Genres      pq.StringArray   `json:"genres,omitempty" gorm:"type:text[]"`
	Runtime     *int             `json:"runtime,omitempty"`
	ReleaseDate *time.Time       `json:"release_date,omitempty"`
	Budget      *int64           `json:"budget,omitempty"`
	Revenue     *int64           `json:"revenue,omitempty"`
	Embedding   *pgvector.Vector `json:"-" gorm:"type:vector"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName 表名
func (Movie) TableName() string {
	return "movies"
}

// MovieInput 客户端可写字段（创建/更新请求体）
type MovieInput struct {
	Title       string     `json:"title" validate:"required,max=512"`
	Overview    string     `json:"overview" validate:"required"`
	Homepage    *string    `json:"homepage" validate:"omitempty,url"`
	Genres      []string   `json:"genres" validate:"omitempty,dive,required"`
	Runtime     *int       `json:"runtime" validate:"omitempty,gte=0"`
	ReleaseDate *time.Time `json:"release_date"`
	Budget      *int64     `json:"budget" validate:"omitempty,gte=0"`
	Revenue     *int64     `json:"revenue" validate:"omitempty,gte=0"`
}

// ToMovie 转换为 Movie（不含 embedding 与系统字段）
func (in *MovieInput) ToMovie() *Movie {
	m := &Movie{
		Title:       in.Title,
		Overview:    in.Overview,
		Homepage:    in.Homepage,
		Runtime:     in.Runtime,
		ReleaseDate: in.ReleaseDate,
		Budget:      in.Budget,
		Revenue:     in.Revenue,
	}
	if len(in.Genres) > 0 {
		m.Genres = pq.StringArray(in.Genres)
	}
	return m
}

// EmbeddingText 文档向量的原始文本
func EmbeddingText(title, overview string) string {
	return title + ". " + overview
}
