package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/moviesearch/internal/config"
	"github.com/user/moviesearch/internal/embedding"
	"github.com/user/moviesearch/internal/handler"
	"github.com/user/moviesearch/internal/middleware"
	"github.com/user/moviesearch/internal/repository"
	"github.com/user/moviesearch/internal/router"
	"github.com/user/moviesearch/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
}

func run() error {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 初始化向量服务并探测维度
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

	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 30*time.Second)
	dim, err := embedding.ProbeDimensions(probeCtx, provider)
	cancelProbe()
	if err != nil {
		return err
	}
	log.Printf("向量模型 %s 维度: %d", cfg.EmbeddingProvider, dim)

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	repos := repository.NewRepositories(db)
	defer repos.Close()

	if err := repository.Migrate(context.Background(), db, dim, cfg.VectorIndexName, cfg.VectorIndexAutoCreate); err != nil {
		return err
	}

	// 初始化服务
	movies := service.NewMovieService(repos.Movie, provider, dim)
	search := service.NewSearchService(provider, repos.Movie, cfg.VectorIndexName, dim, cfg.Search)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件（页面记住搜索方式和结果数）
	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 天
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("moviesearch", store))

	// 加载模板
	r.HTMLRender = router.LoadTemplates("./web/templates")

	// 中间件
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// 注册路由
	router.RegisterRoutes(r, handler.NewHandler(movies, search))

	// 后台导入数据集，不阻塞服务启动
	ingestCtx, cancelIngest := context.WithCancel(context.Background())
	defer cancelIngest()
	if cfg.DatasetPath != "" {
		ingestor := service.NewIngestor(repos.Movie, provider, dim, cfg.IngestBatchSize)
		go func() {
			if _, err := ingestor.IngestFile(ingestCtx, cfg.DatasetPath, false); err != nil {
				log.Printf("[Ingest] 数据集导入失败: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	errCh := make(chan error, 1)
	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Println("正在关闭服务器...")
	cancelIngest()

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("服务器强制关闭: %v", err)
	}

	log.Println("服务器已退出")
	return nil
}
