package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateTitle 标题唯一约束冲突
	ErrDuplicateTitle = errors.New("duplicate movie title")
	// ErrIndexNotFound 向量索引未配置
	ErrIndexNotFound = errors.New("vector index not found")
	// ErrDimensionMismatch embedding 列维度与模型不一致
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

var driverName string

func init() {
	driver, err := otelsql.Register(
		"pgx",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		panic(fmt.Sprintf("注册 otelsql 驱动失败: %v", err))
	}
	driverName = driver
}

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	sqlDB, err := sql.Open(driverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := otelsql.RecordStats(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库监控初始化失败: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("gorm 初始化失败: %w", err)
	}

	return db, nil
}

// Migrate 建表并校验 embedding 维度；autoCreateIndex 为 true 时创建 HNSW 索引
func Migrate(ctx context.Context, db *gorm.DB, dim int, indexName string, autoCreateIndex bool) error {
	db = db.WithContext(ctx)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		return fmt.Errorf("创建 vector 扩展失败: %w", err)
	}

	if err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS movies (
			id           BIGSERIAL PRIMARY KEY,
			title        TEXT NOT NULL,
			overview     TEXT NOT NULL,
			homepage     TEXT,
			genres       TEXT[],
			runtime      INTEGER,
			release_date TIMESTAMPTZ,
			budget       BIGINT,
			revenue      BIGINT,
			embedding    vector(%d),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dim)).Error; err != nil {
		return fmt.Errorf("创建 movies 表失败: %w", err)
	}

	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_movies_title ON movies (title)`).Error; err != nil {
		return fmt.Errorf("创建标题唯一索引失败: %w", err)
	}

	// pgvector 把维度存放在 atttypmod
	var typmod int
	if err := db.Raw(`
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'movies'::regclass AND attname = 'embedding'
	`).Scan(&typmod).Error; err != nil {
		return fmt.Errorf("读取 embedding 维度失败: %w", err)
	}
	if typmod != dim {
		return fmt.Errorf("%w: column has %d, model produces %d", ErrDimensionMismatch, typmod, dim)
	}

	if autoCreateIndex {
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON movies USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{indexName}.Sanitize())
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("创建向量索引失败: %w", err)
		}
		log.Printf("[Repository] 向量索引已就绪: %s", indexName)
	}

	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB    *gorm.DB
	Movie *MovieRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:    db,
		Movie: NewMovieRepository(db),
	}
}

// Close 关闭底层连接池
func (r *Repositories) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
