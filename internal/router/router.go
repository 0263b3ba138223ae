package router

import (
	"path/filepath"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/user/moviesearch/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)

	// ==================== 页面 ====================
	r.GET("/", h.SearchPage)

	// ==================== 电影 API ====================
	movies := r.Group("/movies")
	{
		movies.POST("", h.CreateMovie)
		movies.GET("/semantic-search", h.SemanticSearch)

		movies.GET("/id/:id", h.GetMovieByID)
		movies.PUT("/id/:id", h.UpdateMovieByID)
		movies.DELETE("/id/:id", h.DeleteMovieByID)

		movies.GET("/title", h.GetMovieByTitle)
		movies.PUT("/title", h.UpdateMovieByTitle)
		movies.DELETE("/title", h.DeleteMovieByTitle)
	}
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	// 获取布局和局部模板
	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	partials, err := filepath.Glob(templatesDir + "/partials/*.html")
	if err != nil {
		panic(err)
	}

	// 组装模板文件列表
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 注册所有页面模板
	pages := []string{"search"}

	for _, page := range pages {
		viewPath := templatesDir + "/pages/" + page + ".html"
		r.AddFromFiles(page, assemble(viewPath)...)
	}

	return r
}
