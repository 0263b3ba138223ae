package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesearch/internal/middleware"
	"github.com/user/moviesearch/internal/service"
	"github.com/user/moviesearch/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Movies *service.MovieService
	Search *service.SearchService
}

// NewHandler 创建处理器
func NewHandler(movies *service.MovieService, search *service.SearchService) *Handler {
	return &Handler{
		Movies: movies,
		Search: search,
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError 将服务层错误映射为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.BadRequest(c, verr.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, service.ErrConflict):
		utils.Conflict(c, "")
	case errors.Is(err, service.ErrProvider):
		log.Printf("[Handler] rid=%s 向量服务不可用: %v", middleware.GetRequestID(c), err)
		utils.ServiceUnavailable(c, "embedding provider unavailable")
	case errors.Is(err, service.ErrConfiguration):
		log.Printf("[Handler] rid=%s 配置错误: %v", middleware.GetRequestID(c), err)
		utils.InternalServerError(c, "vector search is not configured")
	default:
		log.Printf("[Handler] rid=%s 内部错误: %v", middleware.GetRequestID(c), err)
		utils.InternalServerError(c, "")
	}
}
