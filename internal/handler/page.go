package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/moviesearch/internal/model"
	"github.com/user/moviesearch/internal/service"
)

const (
	modeClassic  = "classic"
	modeSemantic = "semantic"
)

// 页面可选的结果数量
var limitOptions = []int{1, 3, 5, 10}

// movieCard 页面展示的电影卡片
type movieCard struct {
	Title       string
	Overview    string
	Genres      string
	Homepage    string
	Runtime     int
	ReleaseDate string
	Budget      string
	Revenue     string
}

// SearchPage 首页：按标题精确查找或语义搜索
// 上次选择的搜索方式和结果数量保存在 session 中
func (h *Handler) SearchPage(c *gin.Context) {
	session := sessions.Default(c)

	mode := c.Query("mode")
	if mode != modeClassic && mode != modeSemantic {
		mode, _ = session.Get("mode").(string)
		if mode == "" {
			mode = modeSemantic
		}
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || !validLimit(limit) {
		limit, _ = session.Get("limit").(int)
		if !validLimit(limit) {
			limit = 3
		}
	}

	query := strings.TrimSpace(c.Query("q"))
	data := gin.H{
		"Title":        "TMDB 5000 Movies Search",
		"Mode":         mode,
		"Limit":        limit,
		"LimitOptions": limitOptions,
		"Query":        query,
		"MaxLength":    h.Search.Config().PromptMaxLength,
		"Searched":     query != "",
	}

	if query != "" {
		rememberSearch(session, mode, limit)

		cards, err := h.searchCards(c, mode, query, limit)
		if err != nil {
			data["Error"] = pageError(err)
		}
		data["Movies"] = cards
	}

	c.HTML(http.StatusOK, "search", data)
}

// rememberSearch 保存本次搜索方式和结果数，失败只记日志
func rememberSearch(session sessions.Session, mode string, limit int) {
	session.Set("mode", mode)
	session.Set("limit", limit)
	if err := session.Save(); err != nil {
		log.Printf("[Handler] 保存 session 失败: %v", err)
	}
}

func (h *Handler) searchCards(c *gin.Context, mode, query string, limit int) ([]movieCard, error) {
	ctx := c.Request.Context()

	if mode == modeClassic {
		movie, err := h.Movies.GetByTitle(ctx, query)
		if errors.Is(err, service.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []movieCard{fullCard(movie)}, nil
	}

	results, err := h.Search.SemanticSearch(ctx, model.SearchQuery{Prompt: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	cards := make([]movieCard, 0, len(results))
	for _, r := range results {
		cards = append(cards, movieCard{
			Title:    r.Title,
			Overview: r.Overview,
			Genres:   strings.Join(r.Genres, ", "),
		})
	}
	return cards, nil
}

func fullCard(m *model.Movie) movieCard {
	card := movieCard{
		Title:    m.Title,
		Overview: m.Overview,
		Genres:   strings.Join(m.Genres, ", "),
	}
	if m.Homepage != nil {
		card.Homepage = *m.Homepage
	}
	if m.Runtime != nil {
		card.Runtime = *m.Runtime
	}
	if m.ReleaseDate != nil {
		card.ReleaseDate = m.ReleaseDate.Format("02-01-2006")
	}
	if m.Budget != nil {
		card.Budget = millions(*m.Budget)
	}
	if m.Revenue != nil {
		card.Revenue = millions(*m.Revenue)
	}
	return card
}

func millions(n int64) string {
	return strconv.FormatFloat(float64(n)/1e6, 'f', 2, 64) + " M"
}

func validLimit(n int) bool {
	for _, opt := range limitOptions {
		if n == opt {
			return true
		}
	}
	return false
}

// pageError 页面上展示的错误提示
func pageError(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, service.ErrProvider):
		return "The embedding service is unavailable. Please try again later."
	default:
		return "Search failed. Please try again."
	}
}
