package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/user/moviesearch/internal/config"
	"github.com/user/moviesearch/internal/embedding"
	"github.com/user/moviesearch/internal/repository"
	"github.com/user/moviesearch/internal/service"
)

var cli struct {
	Dataset   string `help:"Path to tmdb_5000_movies.csv. Defaults to DATASET_PATH." type:"existingfile"`
	Force     bool   `help:"Replace the collection even if it already has documents."`
	BatchSize int    `help:"Embedding batch size. Defaults to INGEST_BATCH_SIZE."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("ingest"),
		kong.Description("Load the TMDB 5000 movie dataset into the vector store."),
	)

	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	cfg := config.Load()
	if cli.Dataset != "" {
		cfg.DatasetPath = cli.Dataset
	}
	if cli.BatchSize > 0 {
		cfg.IngestBatchSize = cli.BatchSize
	}
	if cfg.DatasetPath == "" {
		log.Fatal("未指定数据集：使用 --dataset 或设置 DATASET_PATH")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("导入失败: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	provider, err := embedding.NewProvider(cfg.EmbeddingProvider, embedding.Options{
		OllamaHost:  cfg.OllamaHost,
		OllamaModel: cfg.OllamaModel,
		OpenAIKey:   cfg.OpenAIKey,
		OpenAIModel: cfg.OpenAIEmbeddingModel,
		HashDim:     cfg.HashEmbeddingDim,
	})
	if err != nil {
		return err
	}
	dim, err := embedding.ProbeDimensions(ctx, provider)
	if err != nil {
		return err
	}

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	repos := repository.NewRepositories(db)
	defer repos.Close()

	if err := repository.Migrate(ctx, db, dim, cfg.VectorIndexName, cfg.VectorIndexAutoCreate); err != nil {
		return err
	}

	report, err := service.NewIngestor(repos.Movie, provider, dim, cfg.IngestBatchSize).
		IngestFile(ctx, cfg.DatasetPath, cli.Force)
	if err != nil {
		return err
	}
	if report.Skipped {
		log.Printf("集合已有 %d 条数据，使用 --force 重新导入", report.Count)
		return nil
	}
	log.Printf("导入完成: %d 部电影（原始 %d 行，丢弃 %d，重复 %d）",
		report.Count, report.Stats.Rows, report.Stats.Dropped, report.Stats.Duplicates)
	return nil
}
